// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ForkID is the EIP-2124 fork identifier advertised in the status message.
// Peers whose fork history is incompatible with ours are rejected during the
// base handshake.
type ForkID struct {
	// Hash is the CRC32 checksum of the genesis hash and the passed fork
	// activation points.
	Hash [4]byte

	// Next is the activation point of the next upcoming fork, or zero if
	// none are known.
	Next uint64
}

// MsgStatus implements the Message interface and represents the eth status
// message which opens every session.  Both peers send one and the session
// only proceeds when the advertised chains agree.
type MsgStatus struct {
	ProtocolVersion uint32
	NetworkID       BscNet
	TD              *big.Int
	Head            common.Hash
	Genesis         common.Hash
	ForkID          ForkID
}

// statusBody mirrors MsgStatus for RLP coding.  A separate type keeps the
// exported struct free of rlp struct tags for optional future fields.
type statusBody struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *big.Int
	Head            common.Hash
	Genesis         common.Hash
	ForkID          ForkID
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgStatus) BscDecode(r io.Reader, pver uint32) error {
	var body statusBody
	if err := rlp.Decode(r, &body); err != nil {
		str := fmt.Sprintf("invalid status body: %v", err)
		return messageErrorWrapped("MsgStatus.BscDecode", str,
			ErrMalformedMessage)
	}
	msg.ProtocolVersion = body.ProtocolVersion
	msg.NetworkID = BscNet(body.NetworkID)
	msg.TD = body.TD
	msg.Head = body.Head
	msg.Genesis = body.Genesis
	msg.ForkID = body.ForkID
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgStatus) BscEncode(w io.Writer, pver uint32) error {
	td := msg.TD
	if td == nil {
		td = new(big.Int)
	}
	return rlp.Encode(w, &statusBody{
		ProtocolVersion: msg.ProtocolVersion,
		NetworkID:       uint64(msg.NetworkID),
		TD:              td,
		Head:            msg.Head,
		Genesis:         msg.Genesis,
		ForkID:          msg.ForkID,
	})
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgStatus) MsgID() uint8 {
	return StatusMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgStatus) MaxPayloadLength(pver uint32) uint32 {
	// Version + network + a generously sized difficulty + two hashes +
	// fork id with list overhead.
	return 256
}

// NewMsgStatus returns a new bsc status message that conforms to the Message
// interface.  See MsgStatus for details.
func NewMsgStatus(pver uint32, net BscNet, td *big.Int, head,
	genesis common.Hash, forkID ForkID) *MsgStatus {

	return &MsgStatus{
		ProtocolVersion: pver,
		NetworkID:       net,
		TD:              td,
		Head:            head,
		Genesis:         genesis,
		ForkID:          forkID,
	}
}
