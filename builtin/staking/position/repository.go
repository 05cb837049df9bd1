// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
)

var (
	slotPositions = keel.BytesToBytes32([]byte("positions"))
	slotIDCounter = keel.BytesToBytes32([]byte("position-id-counter"))
)

// Repository owns position storage: one record per minted position token id.
// Ids are monotonically increasing, starting at 1.
type Repository struct {
	positions *sslot.Mapping[sslot.U64Key, *Position]
	idCounter *sslot.Uint64
}

func NewRepository(sctx *sslot.Context) *Repository {
	return &Repository{
		positions: sslot.NewMapping[sslot.U64Key, *Position](sctx, slotPositions),
		idCounter: sslot.NewUint64(sctx, slotIDCounter),
	}
}

// NextID reserves and returns a fresh position id.
func (r *Repository) NextID() (uint64, error) {
	return r.idCounter.Next()
}

// Get returns the position for the given id. An empty position is returned
// for unknown ids; check with IsEmpty.
func (r *Repository) Get(id uint64) (*Position, error) {
	return r.positions.Get(sslot.U64Key(id))
}

// Set stores the position under the given id.
func (r *Repository) Set(id uint64, pos *Position) error {
	return r.positions.Set(sslot.U64Key(id), pos)
}

// Delete removes the position storage for the given id.
func (r *Repository) Delete(id uint64) error {
	return r.positions.Delete(sslot.U64Key(id))
}
