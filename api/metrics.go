// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/keel-fi/keel/metrics"
)

var (
	metricHTTPReqCounter  = metrics.LazyLoadCounterVec("api_request_count", []string{"path", "code", "method"})
	metricHTTPReqDuration = metrics.LazyLoadHistogramVec("api_duration_ms", []string{"path", "code", "method"}, metrics.BucketHTTPReqs)
)

// statusResponseWriter captures the response status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records a counter and duration histogram per request.
func metricsMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		srw := &statusResponseWriter{w, http.StatusOK}
		h.ServeHTTP(srw, r)

		labels := map[string]string{
			"path":   strings.ReplaceAll(strings.TrimLeft(r.URL.Path, "/"), "/", "_"),
			"code":   strconv.Itoa(srw.statusCode),
			"method": r.Method,
		}
		metricHTTPReqCounter().AddWithLabel(1, labels)
		metricHTTPReqDuration().ObserveWithLabels(time.Since(started).Milliseconds(), labels)
	})
}

// requestLoggerHandler logs each request with its outcome and duration.
func requestLoggerHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		srw := &statusResponseWriter{w, http.StatusOK}
		h.ServeHTTP(srw, r)

		logger.Info("api request",
			"method", r.Method,
			"uri", r.URL.String(),
			"code", srw.statusCode,
			"duration", time.Since(started),
		)
	})
}
