// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// UpgradeStatusExtension carries the negotiable session flags of the upgrade
// status exchange.  Only one flag is defined so far; more are anticipated.
// Values are immutable once constructed and exchanged exactly once per
// session.
type UpgradeStatusExtension struct {
	// DisableTxBroadcast asks the remote peer not to broadcast
	// transactions to us.  The flag is recorded but not yet enforced by
	// the reference implementation.
	DisableTxBroadcast bool
}

// MsgUpgradeStatus implements the Message interface and represents the BSC
// capability extension message.  It is sent by both sides immediately after
// the base status handshake on protocol versions newer than eth/66.
type MsgUpgradeStatus struct {
	Extension UpgradeStatusExtension
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgUpgradeStatus) BscDecode(r io.Reader, pver uint32) error {
	if err := rlp.Decode(r, &msg.Extension); err != nil {
		str := fmt.Sprintf("invalid upgrade status body: %v", err)
		return messageErrorWrapped("MsgUpgradeStatus.BscDecode", str,
			ErrMalformedMessage)
	}
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgUpgradeStatus) BscEncode(w io.Writer, pver uint32) error {
	return rlp.Encode(w, &msg.Extension)
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgUpgradeStatus) MsgID() uint8 {
	return UpgradeStatusMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgUpgradeStatus) MaxPayloadLength(pver uint32) uint32 {
	// RLP list header + room for future extension flags.
	return 64
}

// EncodeFrame returns the full wire frame for the message, which is the
// message id byte followed by the RLP encoding of the extension list.
func (msg *MsgUpgradeStatus) EncodeFrame() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg, MaxProtocolVersion); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUpgradeStatus parses a full wire frame as an upgrade status message.
// The id byte is validated before the body is touched so an unexpected
// message surfaces as ErrWrongMessageID rather than a decode failure.
func DecodeUpgradeStatus(frame []byte) (*MsgUpgradeStatus, error) {
	if len(frame) == 0 {
		return nil, messageErrorWrapped("DecodeUpgradeStatus",
			"empty frame", ErrMalformedMessage)
	}
	if frame[0] != UpgradeStatusMsgID {
		str := fmt.Sprintf("message id %#02x, want %#02x", frame[0],
			UpgradeStatusMsgID)
		return nil, messageErrorWrapped("DecodeUpgradeStatus", str,
			ErrWrongMessageID)
	}

	msg := &MsgUpgradeStatus{}
	err := msg.BscDecode(bytes.NewReader(frame[1:]), MaxProtocolVersion)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// NewMsgUpgradeStatus returns a new bsc upgrade status message that conforms
// to the Message interface.  See MsgUpgradeStatus for details.
func NewMsgUpgradeStatus(disableTxBroadcast bool) *MsgUpgradeStatus {
	return &MsgUpgradeStatus{
		Extension: UpgradeStatusExtension{
			DisableTxBroadcast: disableTxBroadcast,
		},
	}
}
