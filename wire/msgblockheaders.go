// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// MsgBlockHeaders implements the Message interface and represents the
// response to a header request.  The payload is the eth/66 pair
// [request-id, [header...]].
type MsgBlockHeaders struct {
	RequestID uint64
	Headers   []BlockHeader
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgBlockHeaders) BscDecode(r io.Reader, pver uint32) error {
	if err := rlp.Decode(r, msg); err != nil {
		str := fmt.Sprintf("invalid block headers body: %v", err)
		return messageErrorWrapped("MsgBlockHeaders.BscDecode", str,
			ErrMalformedMessage)
	}
	if len(msg.Headers) > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many headers in message [%d] - max %d",
			len(msg.Headers), MaxHeadersPerMsg)
		return messageError("MsgBlockHeaders.BscDecode", str)
	}
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgBlockHeaders) BscEncode(w io.Writer, pver uint32) error {
	if len(msg.Headers) > MaxHeadersPerMsg {
		str := fmt.Sprintf("too many headers in message [%d] - max %d",
			len(msg.Headers), MaxHeadersPerMsg)
		return messageError("MsgBlockHeaders.BscEncode", str)
	}
	return rlp.Encode(w, msg)
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgBlockHeaders) MsgID() uint8 {
	return BlockHeadersMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgBlockHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}
