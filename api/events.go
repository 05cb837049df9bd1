// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/keel-fi/keel/api/utils"
	"github.com/keel-fi/keel/eventdb"
)

// defaultEventsLimit caps unbounded event queries.
const defaultEventsLimit = 1000

type eventsEndpoint struct {
	db *eventdb.EventDB
}

func newEvents(db *eventdb.EventDB) *eventsEndpoint {
	return &eventsEndpoint{db}
}

func (e *eventsEndpoint) handleFilter(w http.ResponseWriter, r *http.Request) error {
	var filter eventdb.Filter
	if err := utils.ParseJSON(r.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Options == nil {
		filter.Options = &eventdb.Options{Limit: defaultEventsLimit}
	}

	events, err := e.db.Filter(&filter)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*eventdb.Event{}
	}
	return utils.WriteJSON(w, events)
}

func (e *eventsEndpoint) mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter)).
		Name("POST /events")
}
