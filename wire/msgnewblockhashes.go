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

// MaxBlockHashesPerMsg is the maximum number of block hash announcements
// that may appear in a single new block hashes message.
const MaxBlockHashesPerMsg = 128

// BlockAnnouncement pairs a block hash with its number in a new block hashes
// message.
type BlockAnnouncement struct {
	Hash   common.Hash // Hash of the announced block
	Number uint64      // Number of the announced block
}

// MsgNewBlockHashes implements the Message interface and represents a batch
// of block availability announcements.  The wire payload is the bare list of
// [hash, number] pairs.
type MsgNewBlockHashes struct {
	Announcements []BlockAnnouncement
}

// BscDecode decodes r using the protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgNewBlockHashes) BscDecode(r io.Reader, pver uint32) error {
	if err := rlp.Decode(r, &msg.Announcements); err != nil {
		str := fmt.Sprintf("invalid new block hashes body: %v", err)
		return messageErrorWrapped("MsgNewBlockHashes.BscDecode", str,
			ErrMalformedMessage)
	}
	if len(msg.Announcements) > MaxBlockHashesPerMsg {
		str := fmt.Sprintf("too many announcements in message [%d] - "+
			"max %d", len(msg.Announcements), MaxBlockHashesPerMsg)
		return messageError("MsgNewBlockHashes.BscDecode", str)
	}
	return nil
}

// BscEncode encodes the receiver to w using the protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgNewBlockHashes) BscEncode(w io.Writer, pver uint32) error {
	if len(msg.Announcements) > MaxBlockHashesPerMsg {
		str := fmt.Sprintf("too many announcements in message [%d] - "+
			"max %d", len(msg.Announcements), MaxBlockHashesPerMsg)
		return messageError("MsgNewBlockHashes.BscEncode", str)
	}
	return rlp.Encode(w, msg.Announcements)
}

// MsgID returns the protocol message id for the message.  This is part of
// the Message interface implementation.
func (msg *MsgNewBlockHashes) MsgID() uint8 {
	return NewBlockHashesMsgID
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgNewBlockHashes) MaxPayloadLength(pver uint32) uint32 {
	// Per entry: list header + 33 byte hash string + up to 9 byte number,
	// plus the outer list header.
	return MaxBlockHashesPerMsg*48 + 16
}

// AddAnnouncement adds a new announced block to the message.
func (msg *MsgNewBlockHashes) AddAnnouncement(hash common.Hash, number uint64) error {
	if len(msg.Announcements)+1 > MaxBlockHashesPerMsg {
		str := fmt.Sprintf("too many announcements in message [max %d]",
			MaxBlockHashesPerMsg)
		return messageError("MsgNewBlockHashes.AddAnnouncement", str)
	}
	msg.Announcements = append(msg.Announcements,
		BlockAnnouncement{Hash: hash, Number: number})
	return nil
}

// NewMsgNewBlockHashes returns a new bsc new block hashes message that
// conforms to the Message interface.  See MsgNewBlockHashes for details.
func NewMsgNewBlockHashes() *MsgNewBlockHashes {
	return &MsgNewBlockHashes{
		Announcements: make([]BlockAnnouncement, 0, MaxBlockHashesPerMsg),
	}
}
