// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"sync"

	"github.com/bscsuite/bscd/wire"
)

// PeerSet tracks the identities of connected peers in connection order.  It
// is safe for concurrent access.
type PeerSet struct {
	mtx     sync.Mutex
	ordered []wire.PeerID
	members map[wire.PeerID]struct{}
}

// NewPeerSet returns an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		members: make(map[wire.PeerID]struct{}),
	}
}

// Add inserts the peer and returns true.  It returns false when the peer is
// already a member, leaving the set unchanged.
func (ps *PeerSet) Add(peer wire.PeerID) bool {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()

	if _, exists := ps.members[peer]; exists {
		return false
	}
	ps.members[peer] = struct{}{}
	ps.ordered = append(ps.ordered, peer)
	return true
}

// Remove deletes the peer from the set.  Removing a peer that is not a
// member is a no-op.
func (ps *PeerSet) Remove(peer wire.PeerID) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()

	if _, exists := ps.members[peer]; !exists {
		return
	}
	delete(ps.members, peer)
	for i, member := range ps.ordered {
		if member == peer {
			ps.ordered = append(ps.ordered[:i], ps.ordered[i+1:]...)
			break
		}
	}
}

// Snapshot returns the current members in connection order.  The returned
// slice is a copy owned by the caller.
func (ps *PeerSet) Snapshot() []wire.PeerID {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()

	snapshot := make([]wire.PeerID, len(ps.ordered))
	copy(snapshot, ps.ordered)
	return snapshot
}

// Count returns the number of connected peers.
func (ps *PeerSet) Count() int {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	return len(ps.ordered)
}
