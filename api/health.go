// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/keel-fi/keel/api/utils"
	"github.com/keel-fi/keel/health"
)

type healthEndpoint struct {
	health *health.Health
}

func newHealthEndpoint(h *health.Health) *healthEndpoint {
	return &healthEndpoint{h}
}

func (e *healthEndpoint) handleGet(w http.ResponseWriter, _ *http.Request) error {
	status := e.health.Status()
	if !status.Healthy {
		w.Header().Set("Content-Type", utils.JSONContentType)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return utils.WriteJSON(w, status)
}

func (e *healthEndpoint) mount(root *mux.Router, path string) {
	root.Path(path).
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGet)).
		Name("GET /health")
}
