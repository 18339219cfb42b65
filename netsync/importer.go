// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bscsuite/bscd/wire"
	"github.com/decred/dcrd/lru"
)

const (
	// maxKnownAnnouncements is the maximum number of recently seen block
	// announcements to keep for duplicate filtering.
	maxKnownAnnouncements = 1024

	// maxImportedBlocks is the maximum number of recently imported block
	// hashes to keep for duplicate filtering.
	maxImportedBlocks = 256

	// importQueueSize is the depth of the block import queue.  Blocks
	// arriving while the queue is full are dropped and re-requested by the
	// sync manager's maintenance pass.
	importQueueSize = 64
)

// importTask pairs a propagated block with the peer that sent it.
type importTask struct {
	block *wire.MsgNewBlock
	peer  wire.PeerID
}

// BlockImportSink accepts propagated blocks and block announcements from the
// server layer, filters duplicates and feeds the resulting observations into
// the sync manager.  Block import itself is a logging stub; the sink is the
// seam where chain validation and storage plug in.
type BlockImportSink struct {
	started  int32
	shutdown int32

	manager *SyncManager

	mtx                sync.Mutex
	knownAnnouncements lru.Cache
	importedBlocks     lru.Cache

	queue chan *importTask
	wg    sync.WaitGroup
	quit  chan struct{}
}

// NewBlockImportSink returns a sink feeding the passed sync manager.
func NewBlockImportSink(manager *SyncManager) *BlockImportSink {
	return &BlockImportSink{
		manager:            manager,
		knownAnnouncements: lru.NewCache(maxKnownAnnouncements),
		importedBlocks:     lru.NewCache(maxImportedBlocks),
		queue:              make(chan *importTask, importQueueSize),
		quit:               make(chan struct{}),
	}
}

// QueueBlock hands a propagated block to the import worker.  Duplicates of
// recently imported blocks are discarded, and the enqueue never blocks; when
// the import queue is full the block is dropped and will be re-requested by
// the sync manager if it is still needed.
func (s *BlockImportSink) QueueBlock(block *wire.MsgNewBlock, peer wire.PeerID) {
	// Don't accept more blocks if we're shutting down.
	if atomic.LoadInt32(&s.shutdown) != 0 {
		return
	}

	hash := block.Block.Header.BlockHash()
	s.mtx.Lock()
	known := s.importedBlocks.Contains(hash)
	if !known {
		s.importedBlocks.Add(hash)
	}
	s.mtx.Unlock()
	if known {
		log.Debugf("Ignoring duplicate block %s from peer %s", hash, peer)
		return
	}

	select {
	case s.queue <- &importTask{block: block, peer: peer}:
	default:
		log.Warnf("Import queue full, dropping block %s from peer %s",
			hash, peer)
	}
}

// QueueBlockHashes filters the announcements against recently seen ones and
// forwards anything new to the sync manager.
func (s *BlockImportSink) QueueBlockHashes(msg *wire.MsgNewBlockHashes,
	peer wire.PeerID) {

	// Don't accept more announcements if we're shutting down.
	if atomic.LoadInt32(&s.shutdown) != 0 {
		return
	}

	fresh := wire.NewMsgNewBlockHashes()
	s.mtx.Lock()
	for _, ann := range msg.Announcements {
		if s.knownAnnouncements.Contains(ann.Hash) {
			continue
		}
		s.knownAnnouncements.Add(ann.Hash)
		if err := fresh.AddAnnouncement(ann.Hash, ann.Number); err != nil {
			break
		}
	}
	s.mtx.Unlock()

	if len(fresh.Announcements) == 0 {
		return
	}
	log.Debugf("Peer %s announced %d new blocks", peer,
		len(fresh.Announcements))
	s.manager.QueueBlockHashes(fresh, peer)
}

// importBlock logs the imported block and records the receipt with the sync
// manager.
func (s *BlockImportSink) importBlock(task *importTask) {
	header := &task.block.Block.Header
	log.Infof("Imported block %d (hash %s, parent %s, time %s, gas %d/%d, "+
		"%d txs) from peer %s", header.BlockNumber(), header.BlockHash(),
		header.ParentHash, time.Unix(int64(header.Time), 0),
		header.GasUsed, header.GasLimit,
		len(task.block.Block.Body.Transactions), task.peer)

	s.manager.QueueBlock(task.block, task.peer)
}

// importHandler drains the import queue.  It must be run as a goroutine.
func (s *BlockImportSink) importHandler() {
out:
	for {
		select {
		case task := <-s.queue:
			s.importBlock(task)

		case <-s.quit:
			break out
		}
	}

	s.wg.Done()
	log.Trace("Import handler done")
}

// Start begins the asynchronous import worker.
func (s *BlockImportSink) Start() {
	// Already started?
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	log.Trace("Starting block import sink")
	s.wg.Add(1)
	go s.importHandler()
}

// Stop gracefully shuts down the sink by stopping the import worker and
// waiting for it to finish.  Queued blocks that were not processed yet are
// dropped.
func (s *BlockImportSink) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.Warnf("Block import sink is already in the process of " +
			"shutting down")
		return nil
	}

	log.Infof("Block import sink shutting down")
	close(s.quit)
	s.wg.Wait()
	return nil
}
