// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/bscsuite/bscd/wire"
)

const (
	// DefaultGapFillWindow is the maximum number of consecutive missing
	// blocks requested ahead of the tracked height when a gap is detected.
	DefaultGapFillWindow = 5

	// DefaultSweepThreshold is the number of outstanding requests above
	// which the maintenance pass prunes stale request state.
	DefaultSweepThreshold = 100

	// DefaultSweepKeepDepth is how far below the tracked height request
	// state survives a sweep.
	DefaultSweepKeepDepth = 50

	// DefaultMaintenanceInterval is how often the manager runs its
	// periodic sweep and retry pass.
	DefaultMaintenanceInterval = 10 * time.Second
)

// RequestSender delivers block header requests to a specific peer.  The
// server layer implements this against its active transport sessions.
//
// Implementations must not call back into the sync manager.
type RequestSender interface {
	// SendGetBlockHeaders sends the passed request to the given peer.
	SendGetBlockHeaders(peer wire.PeerID, req *wire.MsgGetBlockHeaders) error
}

// PeerSelector chooses which of the currently connected peers should serve
// the next block request.
type PeerSelector interface {
	// SelectPeer returns the chosen peer and true, or false when none of
	// the candidates is acceptable.
	SelectPeer(peers []wire.PeerID) (wire.PeerID, bool)
}

// firstAvailableSelector picks the longest-connected peer.  It is the
// default selection policy.
type firstAvailableSelector struct{}

func (firstAvailableSelector) SelectPeer(peers []wire.PeerID) (wire.PeerID, bool) {
	if len(peers) == 0 {
		return wire.PeerID{}, false
	}
	return peers[0], true
}

// Config is a configuration struct used to initialize a new SyncManager.
type Config struct {
	// StartHeight is the chain height the manager starts tracking from.
	StartHeight uint64

	// GapFillWindow overrides DefaultGapFillWindow when nonzero.
	GapFillWindow uint64

	// SweepThreshold overrides DefaultSweepThreshold when nonzero.
	SweepThreshold int

	// SweepKeepDepth overrides DefaultSweepKeepDepth when nonzero.
	SweepKeepDepth uint64

	// MaintenanceInterval overrides DefaultMaintenanceInterval when
	// nonzero.
	MaintenanceInterval time.Duration

	// AdvanceOnReceipt makes the manager advance its tracked height when
	// the block directly above it is received, instead of waiting for the
	// height to be confirmed by announcements.
	AdvanceOnReceipt bool

	// Sender delivers outbound block header requests.
	Sender RequestSender

	// Selector chooses the peer for each request.  Defaults to picking
	// the longest-connected peer when nil.
	Selector PeerSelector
}
