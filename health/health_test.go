// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	var h Health

	status := h.Status()
	assert.False(t, status.Healthy, "no block seen yet")

	h.NewBestBlock(7)
	status = h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, uint32(7), status.BlockIngestion.BestBlock)
	assert.False(t, status.BlockIngestion.BestBlockTimestamp.IsZero())
}
