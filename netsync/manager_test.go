// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bscsuite/bscd/wire"
)

// sentRequest records one outbound header request.
type sentRequest struct {
	peer      wire.PeerID
	height    uint64
	requestID uint64
}

// recordingSender implements RequestSender and records every request.
type recordingSender struct {
	mtx  sync.Mutex
	sent []sentRequest
	err  error
}

func (s *recordingSender) SendGetBlockHeaders(peer wire.PeerID,
	req *wire.MsgGetBlockHeaders) error {

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sent = append(s.sent, sentRequest{
		peer:      peer,
		height:    req.Query.Origin.Number,
		requestID: req.RequestID,
	})
	return s.err
}

// heights returns the requested block heights in send order.
func (s *recordingSender) heights() []uint64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	heights := make([]uint64, len(s.sent))
	for i, req := range s.sent {
		heights[i] = req.height
	}
	return heights
}

func (s *recordingSender) count() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.sent)
}

// newTestManager returns a manager with one connected peer and a recording
// sender.  The manager is not started; the synchronous API is exercised
// directly.
func newTestManager(startHeight uint64) (*SyncManager, *recordingSender) {
	sender := &recordingSender{}
	sm := New(&Config{
		StartHeight: startHeight,
		Sender:      sender,
	})
	sm.peers.Add(testPeerID(1))
	return sm, sender
}

func assertHeights(t *testing.T, sender *recordingSender, want []uint64) {
	t.Helper()
	got := sender.heights()
	if len(got) != len(want) {
		t.Fatalf("sent %d requests %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent requests %v, want %v", got, want)
		}
	}
}

// TestUpdateHeight ensures the tracked height only ever moves forward.
func TestUpdateHeight(t *testing.T) {
	sm, _ := newTestManager(0)

	if !sm.UpdateHeight(5) {
		t.Error("raising the height was rejected")
	}
	if sm.UpdateHeight(3) {
		t.Error("lowering the height was accepted")
	}
	if sm.UpdateHeight(5) {
		t.Error("repeating the height was accepted")
	}
	if height := sm.Height(); height != 5 {
		t.Errorf("height %d, want 5", height)
	}
}

// TestRequestBlock ensures at most one request is outstanding per height and
// that requests carry the expected query shape.
func TestRequestBlock(t *testing.T) {
	sm, sender := newTestManager(6)

	sm.RequestBlock(7)
	sm.RequestBlock(7)
	assertHeights(t, sender, []uint64{7})
	if !sm.IsPending(7) {
		t.Error("height 7 is not pending after request")
	}

	req := sender.sent[0]
	if req.peer != testPeerID(1) {
		t.Errorf("request went to peer %s", req.peer)
	}
	if req.requestID == 0 {
		t.Error("request id was not assigned")
	}

	// Height zero is never requested.
	sm.RequestBlock(0)
	assertHeights(t, sender, []uint64{7})

	// Once the block arrives the pending slot clears.  An explicit request
	// for the same height goes out again; only gap fill and announcement
	// handling skip received blocks.
	sm.OnBlockReceived(7)
	if sm.IsPending(7) {
		t.Error("height 7 still pending after receipt")
	}
	sm.RequestBlock(7)
	assertHeights(t, sender, []uint64{7, 7})
	if !sm.IsPending(7) {
		t.Error("height 7 is not pending after re-request")
	}
}

// TestRequestBlockNoPeer ensures a request without connected peers changes
// no state and sends nothing.
func TestRequestBlockNoPeer(t *testing.T) {
	sender := &recordingSender{}
	sm := New(&Config{Sender: sender})

	sm.RequestBlock(7)
	if sender.count() != 0 {
		t.Errorf("sent %d requests, want 0", sender.count())
	}
	if pending := sm.PendingCount(); pending != 0 {
		t.Errorf("%d pending requests, want 0", pending)
	}
}

// TestRequestNextBlock ensures the next block is the one directly above the
// tracked height.
func TestRequestNextBlock(t *testing.T) {
	sm, sender := newTestManager(10)

	sm.RequestNextBlock()
	assertHeights(t, sender, []uint64{11})
}

// TestGapFill ensures receiving a block ahead of the tracked height requests
// exactly the bounded window of missing blocks below it.
func TestGapFill(t *testing.T) {
	// A receipt far ahead requests one full window above the tracked
	// height and nothing else.
	sm, sender := newTestManager(10)
	sm.OnBlockReceived(20)
	assertHeights(t, sender, []uint64{11, 12, 13, 14, 15})

	// A receipt inside the window only requests up to, not including, the
	// received block.
	sm, sender = newTestManager(10)
	sm.OnBlockReceived(13)
	assertHeights(t, sender, []uint64{11, 12})

	// The block directly above the height leaves no gap at all.
	sm, sender = newTestManager(10)
	sm.OnBlockReceived(11)
	assertHeights(t, sender, nil)
}

// TestGapFillSkipsSatisfied ensures gap filling does not re-request heights
// that are already pending or received.
func TestGapFillSkipsSatisfied(t *testing.T) {
	sm, sender := newTestManager(10)

	// 12 goes pending up front, then the receipt of 14 fills 11 and 13
	// around it.
	sm.RequestBlock(12)
	sm.OnBlockReceived(14)
	assertHeights(t, sender, []uint64{12, 11, 13})

	// The receipt of 20 only adds 15: 11 through 13 are pending and 14
	// was already received.
	sm.OnBlockReceived(20)
	assertHeights(t, sender, []uint64{12, 11, 13, 15})
}

// TestAdvanceOnReceipt ensures the opt-in height advancement walks through
// contiguous received blocks and stops at the first missing one.
func TestAdvanceOnReceipt(t *testing.T) {
	sender := &recordingSender{}
	sm := New(&Config{
		StartHeight:      5,
		AdvanceOnReceipt: true,
		Sender:           sender,
	})
	sm.peers.Add(testPeerID(1))

	// Block 7 alone leaves the height parked below the hole at 6.
	sm.OnBlockReceived(7)
	if height := sm.Height(); height != 5 {
		t.Errorf("height %d, want 5", height)
	}

	// Block 6 closes the hole and the height catches up through 7.
	sm.OnBlockReceived(6)
	if height := sm.Height(); height != 7 {
		t.Errorf("height %d, want 7", height)
	}

	// Without the flag the height never moves on receipts.
	sm, _ = newTestManager(5)
	sm.OnBlockReceived(6)
	sm.OnBlockReceived(7)
	if height := sm.Height(); height != 5 {
		t.Errorf("height %d, want 5", height)
	}
}

// TestSweepStaleRequests ensures the sweep only fires above the threshold
// and then removes exactly the request state too far below the height.
func TestSweepStaleRequests(t *testing.T) {
	sm, _ := newTestManager(0)
	sm.UpdateHeight(100)

	// Below the threshold nothing is touched no matter how old the
	// requests are.
	for height := uint64(1); height <= 100; height++ {
		sm.pendingRequests[height] = struct{}{}
	}
	if swept := sm.SweepStaleRequests(); swept != 0 {
		t.Fatalf("swept %d requests below threshold, want 0", swept)
	}
	if pending := sm.PendingCount(); pending != 100 {
		t.Fatalf("%d pending after no-op sweep, want 100", pending)
	}

	// One more request crosses the threshold; everything at or below
	// height-50 goes, everything above stays.
	sm.pendingRequests[101] = struct{}{}
	if swept := sm.SweepStaleRequests(); swept != 50 {
		t.Fatalf("swept %d requests, want 50", swept)
	}
	if pending := sm.PendingCount(); pending != 51 {
		t.Fatalf("%d pending after sweep, want 51", pending)
	}
	for height := uint64(51); height <= 101; height++ {
		if !sm.IsPending(height) {
			t.Fatalf("height %d was swept but is above the cutoff",
				height)
		}
	}
}

// TestOnBlockHashes ensures announcements above the tracked height trigger
// requests for exactly the announced blocks.
func TestOnBlockHashes(t *testing.T) {
	sm, sender := newTestManager(10)

	sm.OnBlockHashes([]wire.BlockAnnouncement{
		{Number: 5}, // Below the height, ignored.
		{Number: 13},
		{Number: 100},
	})
	assertHeights(t, sender, []uint64{13, 100})

	// Numbers with a request already in flight are not re-requested.
	sm.OnBlockHashes([]wire.BlockAnnouncement{{Number: 13}})
	assertHeights(t, sender, []uint64{13, 100})

	// Announcements for blocks already received are ignored too.
	sm, sender = newTestManager(10)
	sm.OnBlockReceived(11)
	sm.OnBlockHashes([]wire.BlockAnnouncement{{Number: 11}})
	assertHeights(t, sender, nil)
}

// TestManagerLifecycle exercises the asynchronous queue end to end: peer
// connect, block receipt and shutdown.
func TestManagerLifecycle(t *testing.T) {
	sender := &recordingSender{}
	sm := New(&Config{
		StartHeight:         10,
		MaintenanceInterval: time.Hour, // Keep the ticker out of the way.
		Sender:              sender,
	})

	sm.Start()
	sm.Start() // Double start is a no-op.
	defer sm.Stop()

	// Connecting a peer requests the next needed block.
	sm.NewPeer(testPeerID(1))
	waitForRequests(t, sender, 1)
	assertHeights(t, sender, []uint64{11})

	// A propagated block ahead of the height triggers the gap fill, less
	// the request already in flight for 11.
	block := &wire.MsgNewBlock{
		Block: wire.PropagatedBlock{
			Header: wire.BlockHeader{
				Number:     big.NewInt(14),
				Difficulty: big.NewInt(2),
				Time:       uint64(time.Now().Unix()),
			},
		},
		TD: big.NewInt(28),
	}
	sm.QueueBlock(block, testPeerID(1))
	waitForRequests(t, sender, 3)
	assertHeights(t, sender, []uint64{11, 12, 13})

	if err := sm.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := sm.Stop(); err != nil { // Double stop is a no-op.
		t.Fatalf("second Stop error: %v", err)
	}
}

// stallingSender blocks every send until released, simulating a peer write
// that never completes.
type stallingSender struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stallingSender) SendGetBlockHeaders(wire.PeerID,
	*wire.MsgGetBlockHeaders) error {

	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return nil
}

// TestQueueUnblockedByStalledHandler ensures enqueuing events returns even
// while the block handler is wedged inside a slow send, no matter how many
// events pile up in the meantime.
func TestQueueUnblockedByStalledHandler(t *testing.T) {
	sender := &stallingSender{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sm := New(&Config{
		StartHeight:         10,
		MaintenanceInterval: time.Hour,
		Sender:              sender,
	})

	sm.Start()

	// The new peer kicks off a request that parks the block handler in the
	// sender.
	sm.NewPeer(testPeerID(1))
	select {
	case <-sender.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("block handler never reached the sender")
	}

	// Pump far more events than any internal channel holds.  Every enqueue
	// has to return promptly even though nothing is being consumed.
	hashes := wire.NewMsgNewBlockHashes()
	if err := hashes.AddAnnouncement(common.Hash{0x2a}, 42); err != nil {
		t.Fatalf("AddAnnouncement error: %v", err)
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 4*cap(sm.msgQueue); i++ {
			sm.QueueBlockHashes(hashes, testPeerID(1))
			sm.QueueBlock(testBlock(uint64(i)+20), testPeerID(1))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked behind a stalled block handler")
	}

	close(sender.release)
	if err := sm.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

// waitForRequests polls until the sender has seen at least n requests.
func waitForRequests(t *testing.T, sender *recordingSender, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for sender.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d requests, have %d",
				n, sender.count())
		}
		time.Sleep(time.Millisecond)
	}
}
