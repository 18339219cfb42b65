// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// BlockNonce is the 8-byte proof-of-work nonce field.  BSC is a
// proof-of-stake-authority chain so the value is always zero on the wire, but
// the field remains part of the canonical header encoding.
type BlockNonce [8]byte

// Bloom is the 2048-bit log bloom filter carried by every header.
type Bloom [256]byte

// BlockHeader defines information about a block and is used in the bsc
// block (MsgNewBlock) and headers (MsgBlockHeaders) messages.  The field set
// and order are the canonical eth header encoding, which the block hash is
// defined over.
type BlockHeader struct {
	ParentHash  common.Hash
	UncleHash   common.Hash
	Coinbase    common.Address
	Root        common.Hash
	TxHash      common.Hash
	ReceiptHash common.Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   common.Hash
	Nonce       BlockNonce

	// BaseFee was added by the london hardfork and is only present in
	// headers from that fork on.
	BaseFee *big.Int `rlp:"optional"`
}

// BlockHash computes the hash of the header, which is the keccak256 digest
// of its RLP encoding.
func (h *BlockHeader) BlockHash() common.Hash {
	var hash common.Hash
	hw := sha3.NewLegacyKeccak256()
	// Encoding a fully populated header cannot fail and a truncated
	// digest from a failed write would never match anything on the chain,
	// so the error is intentionally ignored.
	_ = rlp.Encode(hw, h)
	hw.Sum(hash[:0])
	return hash
}

// BlockNumber returns the header's number as a uint64, tolerating a nil
// field from a partially populated header.
func (h *BlockHeader) BlockNumber() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}
