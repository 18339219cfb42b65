// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
)

// MaxMessagePayload is the maximum bytes a message body can be regardless of
// other individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 10 // 10MB

// Message is an interface that describes a bsc wire message.  A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	BscDecode(io.Reader, uint32) error
	BscEncode(io.Writer, uint32) error
	MsgID() uint8
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the message id.
func makeEmptyMessage(msgID uint8) (Message, error) {
	var msg Message
	switch msgID {
	case StatusMsgID:
		msg = &MsgStatus{}

	case NewBlockHashesMsgID:
		msg = &MsgNewBlockHashes{}

	case GetBlockHeadersMsgID:
		msg = &MsgGetBlockHeaders{}

	case BlockHeadersMsgID:
		msg = &MsgBlockHeaders{}

	case NewBlockMsgID:
		msg = &MsgNewBlock{}

	case UpgradeStatusMsgID:
		msg = &MsgUpgradeStatus{}

	default:
		return nil, ErrUnknownMessage
	}
	return msg, nil
}

// WriteMessageN writes a bsc Message to w prefixed by its message id byte and
// returns the number of bytes written.  The payload is rejected before any
// bytes hit the wire when it exceeds either the global or the per-message
// maximum.
func WriteMessageN(w io.Writer, msg Message, pver uint32) (int, error) {
	totalBytes := 0

	// Encode the message payload.
	var bw bytes.Buffer
	if err := msg.BscEncode(&bw, pver); err != nil {
		return totalBytes, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	// Enforce maximum overall message payload.
	if lenp > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, MaxMessagePayload)
		return totalBytes, messageError("WriteMessage", str)
	}

	// Enforce maximum message payload based on the message type.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for "+
			"messages of id [%#02x] is %d", lenp, msg.MsgID(), mpl)
		return totalBytes, messageError("WriteMessage", str)
	}

	n, err := w.Write([]byte{msg.MsgID()})
	totalBytes += n
	if err != nil {
		return totalBytes, err
	}

	n, err = w.Write(payload)
	totalBytes += n
	return totalBytes, err
}

// WriteMessage writes a bsc Message to w prefixed by its message id byte.
// This function is the same as WriteMessageN except it doesn't return the
// number of bytes written.
func WriteMessage(w io.Writer, msg Message, pver uint32) error {
	_, err := WriteMessageN(w, msg, pver)
	return err
}

// ReadMessage takes a fully reassembled frame payload and attempts to
// construct a Message from the bytes.  The first byte selects the concrete
// message type and the remainder is handed to that type's decoder.
func ReadMessage(frame []byte, pver uint32) (Message, error) {
	if len(frame) == 0 {
		return nil, messageErrorWrapped("ReadMessage",
			"empty frame", ErrMalformedMessage)
	}

	msg, err := makeEmptyMessage(frame[0])
	if err != nil {
		return nil, err
	}

	payload := frame[1:]

	// Check the payload length against the per-message maximum since a
	// malicious peer could otherwise force large allocations during
	// decoding.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(len(payload)) > mpl {
		str := fmt.Sprintf("payload exceeds max length - frame "+
			"carries %d bytes, but max payload size for messages "+
			"of id [%#02x] is %d", len(payload), frame[0], mpl)
		return nil, messageError("ReadMessage", str)
	}

	if err := msg.BscDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, err
	}
	return msg, nil
}
