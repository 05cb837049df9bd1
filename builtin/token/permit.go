// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/keel"
)

var (
	errPermitExpired   = reverts.New("token: permit deadline passed")
	errPermitSignature = reverts.New("token: invalid permit signature")
)

// PermitDigest computes the digest an owner signs to grant an allowance
// without an on-chain approve call.
func PermitDigest(tokenAddr, owner, spender keel.Address, value *big.Int, nonce uint64, deadline uint64) keel.Bytes32 {
	var nb, db [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	binary.BigEndian.PutUint64(db[:], deadline)
	return keel.Keccak256(
		[]byte("keel-permit"),
		tokenAddr.Bytes(),
		owner.Bytes(),
		spender.Bytes(),
		keel.BytesToBytes32(value.Bytes()).Bytes(),
		nb[:],
		db[:],
	)
}

// PermitNonce returns owner's next permit nonce.
func (t *Token) PermitNonce(owner keel.Address) (uint64, error) {
	return t.nonces.Get(owner)
}

// Permit grants spender an allowance authorized by owner's off-chain
// signature. Failure here is a typed revert; callers that treat permit as
// optional should fall back to checking the existing allowance instead of
// aborting.
func (t *Token) Permit(owner, spender keel.Address, value *big.Int, deadline, blockTime uint64, sig []byte) error {
	if deadline < blockTime {
		return errPermitExpired
	}
	nonce, err := t.nonces.Get(owner)
	if err != nil {
		return err
	}
	digest := PermitDigest(t.addr, owner, spender, value, nonce, deadline)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return errPermitSignature
	}
	if keel.Address(crypto.PubkeyToAddress(*pub)) != owner {
		return errPermitSignature
	}
	if err := t.nonces.Set(owner, nonce+1); err != nil {
		return err
	}
	return t.Approve(owner, spender, value)
}
