// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists contract events in sqlite so the API can serve
// filtered history without replaying state.
package eventdb

import (
	"database/sql"
	"strings"

	// registers the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/xenv"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	blockNumber INTEGER NOT NULL,
	blockTime INTEGER NOT NULL,
	eventIndex INTEGER NOT NULL,
	address BLOB(20) NOT NULL,
	name TEXT NOT NULL,
	payload BLOB,
	PRIMARY KEY (blockNumber, eventIndex)
);
CREATE INDEX IF NOT EXISTS event_address ON event(address);
CREATE INDEX IF NOT EXISTS event_name ON event(name);`

// Event is one persisted contract event.
type Event struct {
	BlockNumber uint32       `json:"blockNumber"`
	BlockTime   uint64       `json:"blockTime"`
	Index       uint32       `json:"index"`
	Address     keel.Address `json:"address"`
	Name        string       `json:"name"`
	// Payload is the JSON-encoded event payload.
	Payload []byte `json:"payload"`
}

// RangeType selects the unit a range filters on.
type RangeType string

const (
	Block RangeType = "block"
	Time  RangeType = "time"
)

// OrderType query result ordering.
type OrderType string

const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Range bounds a query by block number or block time, inclusive.
type Range struct {
	Unit RangeType `json:"unit"`
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
}

// Options pagination options.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter narrows a query. Zero fields are ignored.
type Filter struct {
	Address *keel.Address `json:"address"`
	Names   []string      `json:"names"`
	Order   OrderType     `json:"order"` // default asc
	Range   *Range        `json:"range"`
	Options *Options      `json:"options"`
}

// EventDB manages the persisted event history.
type EventDB struct {
	path string
	db   *sql.DB
}

// New opens an event db at path.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithMessage(err, "open event db")
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.WithMessage(err, "create event table")
	}
	return &EventDB{path: path, db: db}, nil
}

// NewMem creates an in-memory event db.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Insert persists one block's events in a single transaction. The event index
// is the event's position within the block.
func (db *EventDB) Insert(blockNumber uint32, blockTime uint64, events []*xenv.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for i, ev := range events {
		payload, err := ev.MarshalPayload()
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO event(blockNumber, blockTime, eventIndex, address, name, payload) VALUES (?, ?, ?, ?, ?, ?);",
			blockNumber,
			blockTime,
			i,
			ev.Address.Bytes(),
			ev.Name,
			payload,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Filter returns events matching the filter.
func (db *EventDB) Filter(filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.query("SELECT * FROM event ORDER BY blockNumber, eventIndex ASC")
	}
	var args []any
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		condition := "blockNumber"
		if filter.Range.Unit == Time {
			condition = "blockTime"
		}
		args = append(args, filter.Range.From)
		stmt += " AND " + condition + " >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND " + condition + " <= ?"
		}
	}
	if filter.Address != nil {
		args = append(args, filter.Address.Bytes())
		stmt += " AND address = ?"
	}
	if len(filter.Names) > 0 {
		stmt += " AND name IN (?" + strings.Repeat(", ?", len(filter.Names)-1) + ")"
		for _, name := range filter.Names {
			args = append(args, name)
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY blockNumber ASC, eventIndex ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(stmt, args...)
}

func (db *EventDB) query(stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			ev      Event
			address []byte
		)
		if err := rows.Scan(
			&ev.BlockNumber,
			&ev.BlockTime,
			&ev.Index,
			&address,
			&ev.Name,
			&ev.Payload,
		); err != nil {
			return nil, err
		}
		ev.Address = keel.BytesToAddress(address)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path returns the db file path.
func (db *EventDB) Path() string {
	return db.path
}

// Close closes the underlying sqlite handle.
func (db *EventDB) Close() {
	db.db.Close()
}
