// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api serves the node's read interface: staking state, sale pool
// state, the persisted event history and operational endpoints.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/keel-fi/keel/eventdb"
	"github.com/keel-fi/keel/health"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/metrics"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

var logger = log.WithContext("pkg", "api")

// Backend supplies the live node state the handlers read from.
type Backend struct {
	// State returns the current head state.
	State func() *state.State
	// BlockContext returns a snapshot of the node's block clock.
	BlockContext func() *xenv.BlockContext
	// EventDB is optional; without it the events endpoint is not mounted.
	EventDB *eventdb.EventDB
	// Health is optional; without it the health endpoint is not mounted.
	Health *health.Health
}

// Options tunes the assembled handler.
type Options struct {
	AllowedOrigins  string
	EnableMetrics   bool
	EnableReqLogger bool
}

// New assembles the api router.
func New(backend *Backend, opts Options) http.Handler {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	newStaking(backend).mount(router, "/staking")
	newPools(backend).mount(router, "/pools")
	if backend.EventDB != nil {
		newEvents(backend.EventDB).mount(router, "/events")
	}
	if backend.Health != nil {
		newHealthEndpoint(backend.Health).mount(router, "/health")
	}
	if opts.EnableMetrics {
		router.Path("/metrics").Handler(metrics.HTTPHandler())
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = requestLoggerHandler(handler)
	}
	return handler
}
