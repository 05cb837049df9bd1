// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopByDefault(t *testing.T) {
	// must not panic without a backend
	Counter("noop_counter").Add(1)
	Gauge("noop_gauge").Set(42)
	CounterVec("noop_counter_vec", []string{"a"}).AddWithLabel(1, map[string]string{"a": "b"})
	HistogramVec("noop_histogram", []string{"a"}, BucketHTTPReqs).
		ObserveWithLabels(10, map[string]string{"a": "b"})

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 501, rec.Code)
}

func TestPrometheusBackend(t *testing.T) {
	InitializePrometheusMetrics()

	Counter("test_counter").Add(3)
	Counter("test_counter").Add(2)
	Gauge("test_gauge").Set(7)
	CounterVec("test_counter_vec", []string{"path"}).
		AddWithLabel(1, map[string]string{"path": "/staking"})
	HistogramVec("test_histogram", []string{"code"}, BucketHTTPReqs).
		ObserveWithLabels(12, map[string]string{"code": "200"})

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.Contains(out, "keel_metrics_test_counter 5"))
	assert.True(t, strings.Contains(out, "keel_metrics_test_gauge 7"))
	assert.True(t, strings.Contains(out, `keel_metrics_test_counter_vec{path="/staking"} 1`))

	// meters survive re-creation under the same name
	Counter("test_counter").Add(1)
}

func TestLazyLoading(t *testing.T) {
	calls := 0
	lazy := LazyLoad(func() int {
		calls++
		return 42
	})

	assert.Equal(t, 0, calls, "not instantiated before first use")
	assert.Equal(t, 42, lazy())
	assert.Equal(t, 42, lazy())
	assert.Equal(t, 1, calls, "instantiated exactly once")

	lazyCounter := LazyLoadCounter("lazy_counter")
	lazyCounter().Add(1)
}
