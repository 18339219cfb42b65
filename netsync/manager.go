// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bscsuite/bscd/wire"
)

// newPeerMsg signifies a newly connected peer to the block handler.
type newPeerMsg struct {
	peer wire.PeerID
}

// donePeerMsg signifies a newly disconnected peer to the block handler.
type donePeerMsg struct {
	peer wire.PeerID
}

// blockMsg packages a propagated block message and the peer it came from
// together so the block handler has access to that information.
type blockMsg struct {
	block *wire.MsgNewBlock
	peer  wire.PeerID
}

// blockHashesMsg packages a block announcement message and the peer it came
// from together so the block handler has access to that information.
type blockHashesMsg struct {
	hashes *wire.MsgNewBlockHashes
	peer   wire.PeerID
}

// SyncManager tracks the locally known chain height and drives block
// requests towards connected peers.  It communicates with the rest of the
// node in an event (message passing) style; inbound events are queued and
// processed by a single block handler goroutine while the tracking state
// itself is guarded by a mutex so height queries never block on the event
// queue.
type SyncManager struct {
	started  int32
	shutdown int32

	cfg   Config
	peers *PeerSet

	mtx             sync.Mutex
	height          uint64
	pendingRequests map[uint64]struct{}
	receivedBlocks  map[uint64]struct{}
	nextRequestID   uint64

	progressLogger *blockProgressLogger

	// msgQueue is the producer side of the event queue.  The queue handler
	// drains it into an unbounded buffer so enqueuing never blocks on a
	// busy block handler, then feeds the block handler one message at a
	// time through msgChan.  msgDone acknowledges each processed message.
	msgQueue chan interface{}
	msgChan  chan interface{}
	msgDone  chan struct{}

	wg   sync.WaitGroup
	quit chan struct{}
}

// New constructs a new SyncManager.  Use Start to begin processing
// asynchronous block and peer notifications.
func New(config *Config) *SyncManager {
	cfg := *config
	if cfg.GapFillWindow == 0 {
		cfg.GapFillWindow = DefaultGapFillWindow
	}
	if cfg.SweepThreshold == 0 {
		cfg.SweepThreshold = DefaultSweepThreshold
	}
	if cfg.SweepKeepDepth == 0 {
		cfg.SweepKeepDepth = DefaultSweepKeepDepth
	}
	if cfg.MaintenanceInterval == 0 {
		cfg.MaintenanceInterval = DefaultMaintenanceInterval
	}
	if cfg.Selector == nil {
		cfg.Selector = firstAvailableSelector{}
	}

	return &SyncManager{
		cfg:             cfg,
		peers:           NewPeerSet(),
		height:          cfg.StartHeight,
		pendingRequests: make(map[uint64]struct{}),
		receivedBlocks:  make(map[uint64]struct{}),
		progressLogger:  newBlockProgressLogger("Processed", log),
		msgQueue:        make(chan interface{}, wire.MaxBlockHashesPerMsg*2),
		msgChan:         make(chan interface{}, 1),
		msgDone:         make(chan struct{}, 1),
		quit:            make(chan struct{}),
	}
}

// Height returns the chain height the manager is currently tracking.
func (sm *SyncManager) Height() uint64 {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	return sm.height
}

// PendingCount returns the number of outstanding block requests.
func (sm *SyncManager) PendingCount() int {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	return len(sm.pendingRequests)
}

// IsPending returns whether a request for the given height is outstanding.
func (sm *SyncManager) IsPending(height uint64) bool {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	_, pending := sm.pendingRequests[height]
	return pending
}

// UpdateHeight raises the tracked chain height.  The height only ever moves
// forward; attempts to lower it are ignored and false is returned.
func (sm *SyncManager) UpdateHeight(height uint64) bool {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	if height <= sm.height {
		return false
	}
	sm.height = height
	return true
}

// RequestBlock requests the block at the given height from a connected peer
// unless a request for it is already outstanding.  Requests are fire and
// forget; send failures are logged and left for the maintenance sweep to
// reclaim.
func (sm *SyncManager) RequestBlock(height uint64) {
	if height == 0 {
		return
	}

	peers := sm.peers.Snapshot()
	if len(peers) == 0 {
		log.Warnf("No peer available to request block %d", height)
		return
	}

	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	sm.requestBlock(peers, height)
}

// requestBlock marks the height pending and sends a single header request
// for it.  Heights that are already pending are skipped; callers that want
// to avoid re-requesting received blocks check receivedBlocks themselves so
// an explicit request can still refetch a block the caller knows it needs.
//
// This function MUST be called with the manager mutex held.
func (sm *SyncManager) requestBlock(peers []wire.PeerID, height uint64) {
	if height == 0 {
		return
	}
	if _, pending := sm.pendingRequests[height]; pending {
		return
	}

	peer, ok := sm.cfg.Selector.SelectPeer(peers)
	if !ok {
		log.Warnf("No peer available to request block %d", height)
		return
	}

	sm.pendingRequests[height] = struct{}{}
	sm.nextRequestID++
	req := wire.NewMsgGetBlockHeaders(sm.nextRequestID, height)

	log.Debugf("Requesting block %d from peer %s", height, peer)
	if err := sm.cfg.Sender.SendGetBlockHeaders(peer, req); err != nil {
		log.Errorf("Failed to request block %d from peer %s: %v",
			height, peer, err)
	}
}

// RequestNextBlock requests the block directly above the tracked height.
func (sm *SyncManager) RequestNextBlock() {
	sm.RequestBlock(sm.Height() + 1)
}

// OnBlockReceived records that the block at the given height arrived,
// retires any outstanding request for it and requests the blocks still
// missing between the tracked height and the received one.
func (sm *SyncManager) OnBlockReceived(height uint64) {
	if height == 0 {
		return
	}

	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	sm.receivedBlocks[height] = struct{}{}
	delete(sm.pendingRequests, height)

	if sm.cfg.AdvanceOnReceipt {
		for {
			if _, ok := sm.receivedBlocks[sm.height+1]; !ok {
				break
			}
			sm.height++
		}
	}

	sm.fillGap(height)
}

// OnBlockHashes processes block announcements from a peer.  Every announced
// number above the tracked height that has not been received yet is
// requested.  Gaps are only filled once a block actually arrives.
func (sm *SyncManager) OnBlockHashes(announcements []wire.BlockAnnouncement) {
	peers := sm.peers.Snapshot()

	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	for _, ann := range announcements {
		if ann.Number <= sm.height {
			continue
		}
		if _, received := sm.receivedBlocks[ann.Number]; received {
			continue
		}
		if len(peers) == 0 {
			log.Warnf("No peer available to request block %d",
				ann.Number)
			continue
		}
		sm.requestBlock(peers, ann.Number)
	}
}

// fillGap requests the window of blocks between the tracked height and the
// observed height, exclusive of both.  The window is bounded so a single
// observation far ahead of the local chain cannot flood peers with requests.
//
// This function MUST be called with the manager mutex held.
func (sm *SyncManager) fillGap(observed uint64) {
	start := sm.height + 1
	end := start + sm.cfg.GapFillWindow
	if observed < end {
		end = observed
	}
	if end <= start {
		return
	}

	peers := sm.peers.Snapshot()
	if len(peers) == 0 {
		log.Warnf("No peer available to fill block gap at %d", start)
		return
	}

	log.Debugf("Filling block gap [%d, %d)", start, end)
	for height := start; height < end; height++ {
		if _, received := sm.receivedBlocks[height]; received {
			continue
		}
		sm.requestBlock(peers, height)
	}
}

// SweepStaleRequests prunes request state that has fallen too far below the
// tracked height.  The prune only runs once the number of outstanding
// requests crosses the configured threshold; it bounds memory by count
// pressure rather than tracking per-request deadlines.  It returns the
// number of pending requests removed.
func (sm *SyncManager) SweepStaleRequests() int {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	if len(sm.pendingRequests) <= sm.cfg.SweepThreshold {
		return 0
	}

	var cutoff uint64
	if sm.height > sm.cfg.SweepKeepDepth {
		cutoff = sm.height - sm.cfg.SweepKeepDepth
	}

	swept := 0
	for height := range sm.pendingRequests {
		if height <= cutoff {
			delete(sm.pendingRequests, height)
			swept++
		}
	}

	if swept > 0 {
		log.Debugf("Swept %d stale block requests below height %d",
			swept, cutoff)
	}
	return swept
}

// enqueue hands an event to the queue handler.  The queue handler buffers
// without bound, so once the manager is started this returns as soon as the
// handler picks the event up regardless of how busy the block handler is.
func (sm *SyncManager) enqueue(msg interface{}) {
	select {
	case sm.msgQueue <- msg:
	case <-sm.quit:
	}
}

// NewPeer informs the sync manager of a newly active peer.
func (sm *SyncManager) NewPeer(peer wire.PeerID) {
	// Ignore if we are shutting down.
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.enqueue(&newPeerMsg{peer: peer})
}

// DonePeer informs the sync manager that a peer has gone away.
func (sm *SyncManager) DonePeer(peer wire.PeerID) {
	// Ignore if we are shutting down.
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.enqueue(&donePeerMsg{peer: peer})
}

// QueueBlock adds the passed propagated block message to the block handling
// queue.
func (sm *SyncManager) QueueBlock(block *wire.MsgNewBlock, peer wire.PeerID) {
	// Don't accept more blocks if we're shutting down.
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.enqueue(&blockMsg{block: block, peer: peer})
}

// QueueBlockHashes adds the passed block announcement message to the block
// handling queue.
func (sm *SyncManager) QueueBlockHashes(hashes *wire.MsgNewBlockHashes,
	peer wire.PeerID) {

	// Don't accept more announcements if we're shutting down.
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	sm.enqueue(&blockHashesMsg{hashes: hashes, peer: peer})
}

// handleNewPeerMsg registers the peer and immediately puts it to work on the
// next block the node needs.
func (sm *SyncManager) handleNewPeerMsg(peer wire.PeerID) {
	if !sm.peers.Add(peer) {
		log.Debugf("Ignoring duplicate peer %s", peer)
		return
	}
	log.Infof("New valid peer %s (%d connected)", peer, sm.peers.Count())
	sm.RequestNextBlock()
}

// handleDonePeerMsg deregisters the peer.
func (sm *SyncManager) handleDonePeerMsg(peer wire.PeerID) {
	sm.peers.Remove(peer)
	log.Infof("Lost peer %s (%d connected)", peer, sm.peers.Count())
}

// handleBlockMsg handles propagated block messages from all peers.
func (sm *SyncManager) handleBlockMsg(bmsg *blockMsg) {
	header := &bmsg.block.Block.Header
	number := header.BlockNumber()
	if number == 0 {
		log.Debugf("Ignoring block with no number from peer %s",
			bmsg.peer)
		return
	}

	sm.progressLogger.LogBlockHeight(header,
		len(bmsg.block.Block.Body.Transactions))
	sm.OnBlockReceived(number)
}

// handleBlockHashesMsg handles block announcement messages from all peers.
func (sm *SyncManager) handleBlockHashesMsg(hmsg *blockHashesMsg) {
	sm.OnBlockHashes(hmsg.hashes.Announcements)
}

// maintenance runs the periodic sweep and retries the next needed block so
// syncing recovers from lost responses without any peer interaction.
func (sm *SyncManager) maintenance() {
	sm.SweepStaleRequests()
	if sm.peers.Count() > 0 {
		sm.RequestNextBlock()
	}
}

// queueHandler sits between the producers and the block handler.  Events
// arriving while the block handler is busy are parked on an unbounded list
// instead of backing up into the transport layer, so one peer wedging the
// block handler cannot stall delivery from the others.  It must be run as a
// goroutine.
func (sm *SyncManager) queueHandler() {
	pending := list.New()

	// waiting is true while a message has been handed to the block handler
	// and not yet acknowledged on msgDone.
	waiting := false

out:
	for {
		select {
		case msg := <-sm.msgQueue:
			if !waiting {
				sm.msgChan <- msg
				waiting = true
			} else {
				pending.PushBack(msg)
			}

		case <-sm.msgDone:
			next := pending.Front()
			if next == nil {
				waiting = false
				continue
			}
			pending.Remove(next)
			sm.msgChan <- next.Value

		case <-sm.quit:
			break out
		}
	}

	sm.wg.Done()
	log.Trace("Queue handler done")
}

// blockHandler is the main handler for the sync manager.  It must be run as
// a goroutine.  It processes block and peer messages from a single goroutine
// so handlers never need to worry about racing each other, and interleaves
// the periodic maintenance pass.
func (sm *SyncManager) blockHandler() {
	ticker := time.NewTicker(sm.cfg.MaintenanceInterval)
	defer ticker.Stop()

out:
	for {
		select {
		case m := <-sm.msgChan:
			switch msg := m.(type) {
			case *newPeerMsg:
				sm.handleNewPeerMsg(msg.peer)

			case *donePeerMsg:
				sm.handleDonePeerMsg(msg.peer)

			case *blockMsg:
				sm.handleBlockMsg(msg)

			case *blockHashesMsg:
				sm.handleBlockHashesMsg(msg)

			default:
				log.Warnf("Invalid message type in block "+
					"handler: %T", msg)
			}

			// Release the next buffered event.
			select {
			case sm.msgDone <- struct{}{}:
			case <-sm.quit:
			}

		case <-ticker.C:
			sm.maintenance()

		case <-sm.quit:
			break out
		}
	}

	sm.wg.Done()
	log.Trace("Block handler done")
}

// Start begins the core block handler which processes block and peer
// messages.
func (sm *SyncManager) Start() {
	// Already started?
	if atomic.AddInt32(&sm.started, 1) != 1 {
		return
	}

	log.Trace("Starting sync manager")
	sm.wg.Add(2)
	go sm.queueHandler()
	go sm.blockHandler()
}

// Stop gracefully shuts down the sync manager by stopping all asynchronous
// handlers and waiting for them to finish.
func (sm *SyncManager) Stop() error {
	if atomic.AddInt32(&sm.shutdown, 1) != 1 {
		log.Warnf("Sync manager is already in the process of " +
			"shutting down")
		return nil
	}

	log.Infof("Sync manager shutting down")
	close(sm.quit)
	sm.wg.Wait()
	return nil
}
