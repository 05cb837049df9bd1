// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package salepool

import (
	"bytes"
	"sort"

	"github.com/keel-fi/keel/keel"
)

// MembershipProver verifies that an account belongs to the whitelist
// committed to by a pool's Merkle root.
type MembershipProver interface {
	Verify(root keel.Bytes32, member keel.Address, proof [][]byte) bool
}

// MerkleProver verifies keccak-pair Merkle proofs. Leaves are
// keccak256(address); internal nodes hash their children in sorted order so
// proofs need no left/right flags.
type MerkleProver struct{}

func (MerkleProver) Verify(root keel.Bytes32, member keel.Address, proof [][]byte) bool {
	node := keel.Keccak256(member.Bytes())
	for _, sibling := range proof {
		if len(sibling) != 32 {
			return false
		}
		node = hashPair(node.Bytes(), sibling)
	}
	return node == root
}

func hashPair(a, b []byte) keel.Bytes32 {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return keel.Keccak256(a, b)
}

// MerkleTree is a whitelist commitment built over a member set. Pools store
// only the root; off-chain tooling hands buyers their proof.
type MerkleTree struct {
	leaves []keel.Bytes32
	levels [][]keel.Bytes32
}

// NewMerkleTree builds the tree for the given members. Leaf order is
// canonicalized by sorting, so the root is independent of input order.
func NewMerkleTree(members []keel.Address) *MerkleTree {
	leaves := make([]keel.Bytes32, len(members))
	for i, m := range members {
		leaves[i] = keel.Keccak256(m.Bytes())
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i].Bytes(), leaves[j].Bytes()) < 0
	})

	levels := [][]keel.Bytes32{leaves}
	for level := leaves; len(level) > 1; {
		next := make([]keel.Bytes32, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i].Bytes(), level[i+1].Bytes()))
			} else {
				// odd node carries up unchanged
				next = append(next, level[i])
			}
		}
		levels = append(levels, next)
		level = next
	}
	return &MerkleTree{leaves: leaves, levels: levels}
}

// Root returns the tree's commitment. Empty trees commit to the zero value.
func (t *MerkleTree) Root() keel.Bytes32 {
	if len(t.leaves) == 0 {
		return keel.Bytes32{}
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for a member, or false if the member is not
// in the tree.
func (t *MerkleTree) Proof(member keel.Address) ([][]byte, bool) {
	leaf := keel.Keccak256(member.Bytes())
	idx := -1
	for i, l := range t.leaves {
		if l == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	var proof [][]byte
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling].Bytes())
		}
		idx /= 2
	}
	return proof, true
}
