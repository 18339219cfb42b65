// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// BlockBody holds the transactions and uncle headers of a propagated block.
// Both are kept as raw RLP since this node tracks heads and never executes
// payloads; holding them opaque avoids decoding attacker-priced transaction
// data on the hot path.
type BlockBody struct {
	Transactions []rlp.RawValue
	Uncles       []rlp.RawValue
}

// PropagatedBlock is the header/body pair inside a new block message.
type PropagatedBlock struct {
	Header BlockHeader
	Body   BlockBody
}

// propagatedBlockRLP matches the wire layout of a block, which inlines the
// body lists next to the header rather than nesting them.
type propagatedBlockRLP struct {
	Header       BlockHeader
	Transactions []rlp.RawValue
	Uncles       []rlp.RawValue
}

// MsgNewBlock implements the Message interface and represents a full block
// propagation.  The payload is the pair [block, total difficulty].
type MsgNewBlock struct {
	Block PropagatedBlock
	TD    *big.Int
}

// newBlockBody mirrors MsgNewBlock for RLP coding.
type newBlockBody struct {
	Block propagatedBlockRLP
	TD    *big.Int
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgNewBlock) BscDecode(r io.Reader, pver uint32) error {
	var body newBlockBody
	if err := rlp.Decode(r, &body); err != nil {
		str := fmt.Sprintf("invalid new block body: %v", err)
		return messageErrorWrapped("MsgNewBlock.BscDecode", str,
			ErrMalformedMessage)
	}
	msg.Block = PropagatedBlock{
		Header: body.Block.Header,
		Body: BlockBody{
			Transactions: body.Block.Transactions,
			Uncles:       body.Block.Uncles,
		},
	}
	msg.TD = body.TD
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgNewBlock) BscEncode(w io.Writer, pver uint32) error {
	td := msg.TD
	if td == nil {
		td = new(big.Int)
	}
	return rlp.Encode(w, &newBlockBody{
		Block: propagatedBlockRLP{
			Header:       msg.Block.Header,
			Transactions: msg.Block.Body.Transactions,
			Uncles:       msg.Block.Body.Uncles,
		},
		TD: td,
	})
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgNewBlock) MsgID() uint8 {
	return NewBlockMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgNewBlock) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}
