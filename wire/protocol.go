// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// Eth66 is the oldest protocol version this node will speak.  Peers on
	// this version do not exchange the upgrade status message.
	Eth66 uint32 = 66

	// Eth67 added the upgrade status exchange on BSC.
	Eth67 uint32 = 67

	// Eth68 added transaction announcement metadata.
	Eth68 uint32 = 68

	// MaxProtocolVersion is the max protocol version this package supports.
	MaxProtocolVersion = Eth68
)

// Message ids which describe the type of message.  The id occupies the first
// byte of every wire frame.
const (
	StatusMsgID          uint8 = 0x00
	NewBlockHashesMsgID  uint8 = 0x01
	GetBlockHeadersMsgID uint8 = 0x03
	BlockHeadersMsgID    uint8 = 0x04
	NewBlockMsgID        uint8 = 0x07

	// UpgradeStatusMsgID identifies the BSC capability extension message
	// exchanged once per session after the base status handshake.
	UpgradeStatusMsgID uint8 = 0x0b
)

// BscNet represents which BSC network a message belongs to.  The value
// doubles as the eth status network id.
type BscNet uint64

// Constants used to indicate the bsc network.
const (
	// MainNet represents the main bsc network.
	MainNet BscNet = 56

	// TestNet represents the chapel test network.
	TestNet BscNet = 97
)

// bnStrings is a map of bsc networks back to their constant names for
// pretty printing.
var bnStrings = map[BscNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
}

// String returns the BscNet in human-readable form.
func (n BscNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BscNet (%d)", uint64(n))
}

// DisconnectReason is the devp2p reason code sent to a peer when tearing a
// session down.
type DisconnectReason uint8

// Disconnect reason codes as defined by the devp2p base protocol.
const (
	DisconnectRequested      DisconnectReason = 0x00
	DisconnectNetworkError   DisconnectReason = 0x01
	DisconnectProtocolBreach DisconnectReason = 0x02
	DisconnectUselessPeer    DisconnectReason = 0x03
	DisconnectTooManyPeers   DisconnectReason = 0x04
	DisconnectIncompatible   DisconnectReason = 0x06
	DisconnectTimeout        DisconnectReason = 0x0b
)

// drStrings is a map of disconnect reasons back to their description for
// pretty printing.
var drStrings = map[DisconnectReason]string{
	DisconnectRequested:      "disconnect requested",
	DisconnectNetworkError:   "network error",
	DisconnectProtocolBreach: "protocol breach",
	DisconnectUselessPeer:    "useless peer",
	DisconnectTooManyPeers:   "too many peers",
	DisconnectIncompatible:   "incompatible protocol version",
	DisconnectTimeout:        "timeout",
}

// String returns the DisconnectReason in human-readable form.
func (r DisconnectReason) String() string {
	if s, ok := drStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("unknown reason (%d)", uint8(r))
}

// PeerIDSize is the number of bytes in a peer identifier.
const PeerIDSize = 64

// PeerID is the enode-style identifier of a peer.  It is the 64-byte tail of
// the uncompressed secp256k1 public key the peer authenticated with and is
// copied by value into sets and maps.
type PeerID [PeerIDSize]byte

// NewPeerID derives the peer identifier for the passed public key.
func NewPeerID(pub *btcec.PublicKey) PeerID {
	var id PeerID
	// SerializeUncompressed is 65 bytes with a 0x04 format prefix.  The
	// identifier is everything after the prefix.
	copy(id[:], pub.SerializeUncompressed()[1:])
	return id
}

// String returns the peer identifier as a hexadecimal string.
func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}
