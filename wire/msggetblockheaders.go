// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// MaxHeadersPerMsg is the maximum number of block headers that may be
// requested or delivered in a single message.
const MaxHeadersPerMsg = 1024

// HashOrNumber is a combined field for specifying a block by either its hash
// or its number.  Exactly one of the two may be set.
type HashOrNumber struct {
	Hash   common.Hash // Block hash, or zero when the number is used
	Number uint64      // Block number, ignored when the hash is set
}

// EncodeRLP is a specialized encoder for HashOrNumber to encode only one of
// the two contained union fields.
func (hn *HashOrNumber) EncodeRLP(w io.Writer) error {
	if hn.Hash == (common.Hash{}) {
		return rlp.Encode(w, hn.Number)
	}
	if hn.Number != 0 {
		return fmt.Errorf("both origin hash (%x) and number (%d) "+
			"provided", hn.Hash, hn.Number)
	}
	return rlp.Encode(w, &hn.Hash)
}

// DecodeRLP is a specialized decoder for HashOrNumber to decode the contents
// into either a block hash or a block number.  The two are told apart by
// their encoded size since a hash is always exactly 32 bytes.
func (hn *HashOrNumber) DecodeRLP(s *rlp.Stream) error {
	_, size, err := s.Kind()
	switch {
	case err != nil:
		return err
	case size == 32:
		hn.Number = 0
		return s.Decode(&hn.Hash)
	default:
		hn.Hash = common.Hash{}
		return s.Decode(&hn.Number)
	}
}

// GetBlockHeadersQuery is the body of a header request.  It is nested inside
// MsgGetBlockHeaders underneath the eth/66 request id.
type GetBlockHeadersQuery struct {
	Origin  HashOrNumber // Block from which to retrieve headers
	Amount  uint64       // Maximum number of headers to retrieve
	Skip    uint64       // Blocks to skip between consecutive headers
	Reverse bool         // Query direction (false = rising towards latest)
}

// MsgGetBlockHeaders implements the Message interface and represents a
// request for a span of block headers.
type MsgGetBlockHeaders struct {
	// RequestID correlates the eventual response at the transport level.
	// This node issues requests fire-and-forget and matches blocks via
	// the announcement stream instead, but the field is still required
	// on the wire for eth/66 and newer.
	RequestID uint64

	Query GetBlockHeadersQuery
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgGetBlockHeaders) BscDecode(r io.Reader, pver uint32) error {
	if err := rlp.Decode(r, msg); err != nil {
		str := fmt.Sprintf("invalid get block headers body: %v", err)
		return messageErrorWrapped("MsgGetBlockHeaders.BscDecode", str,
			ErrMalformedMessage)
	}
	if msg.Query.Amount > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many headers requested - %d, max %d",
			msg.Query.Amount, MaxHeadersPerMsg)
		return messageError("MsgGetBlockHeaders.BscDecode", str)
	}
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgGetBlockHeaders) BscEncode(w io.Writer, pver uint32) error {
	return rlp.Encode(w, msg)
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgGetBlockHeaders) MsgID() uint8 {
	return GetBlockHeadersMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgGetBlockHeaders) MaxPayloadLength(pver uint32) uint32 {
	// Request id + origin hash + three integers with list overhead.
	return 128
}

// NewMsgGetBlockHeaders returns a new header request for exactly one block
// number, rising, with no skip.  This is the only request shape the sync
// tracker issues.
func NewMsgGetBlockHeaders(requestID, number uint64) *MsgGetBlockHeaders {
	return &MsgGetBlockHeaders{
		RequestID: requestID,
		Query: GetBlockHeadersQuery{
			Origin: HashOrNumber{Number: number},
			Amount: 1,
		},
	}
}
