// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/go-socks/socks"
	"github.com/davecgh/go-spew/spew"

	"github.com/bscsuite/bscd/chaincfg"
	"github.com/bscsuite/bscd/netsync"
	"github.com/bscsuite/bscd/peer"
	"github.com/bscsuite/bscd/wire"
)

const (
	// connectionRetryInterval is the base amount of time to wait in
	// between retries when connecting to persistent peers.
	connectionRetryInterval = time.Second * 10

	// disconnectFrameID is the transport control frame carrying a
	// disconnect reason.  It sits outside the eth message id space.
	disconnectFrameID = 0x7f

	// sessionWriteTimeout bounds every frame write so a peer that stops
	// reading surfaces as a write error instead of parking the sender.
	sessionWriteTimeout = 30 * time.Second
)

// SessionActive notifies the server that a session finished its handshake
// and is ready for protocol messages.
type SessionActive struct {
	Peer   wire.PeerID
	Status *wire.MsgStatus
}

// SessionClosed notifies the server that a session ended.
type SessionClosed struct {
	Peer wire.PeerID
	Err  error
}

// InboundMessage carries one reassembled protocol frame from a peer.
type InboundMessage struct {
	Peer  wire.PeerID
	Frame []byte
}

// Transport moves protocol frames between the server and remote peers.  It
// owns connection lifecycle including the session handshake; the server only
// ever sees fully negotiated sessions.
type Transport interface {
	// Start begins accepting and establishing sessions.
	Start() error

	// Stop tears down all sessions and stops the transport.
	Stop() error

	// Events returns the channel session and message events are
	// delivered on.  The channel is closed when the transport stops.
	Events() <-chan interface{}

	// Send delivers a frame to the given peer.
	Send(peer wire.PeerID, frame []byte) error
}

// server provides a bsc server for handling communications to and from bsc
// peers.
type server struct {
	started  int32
	shutdown int32

	chainParams *params
	transport   Transport
	syncManager *netsync.SyncManager
	importSink  *netsync.BlockImportSink

	wg   sync.WaitGroup
	quit chan struct{}
}

// SendGetBlockHeaders encodes and sends a header request to the given peer.
// This is part of the netsync.RequestSender interface implementation.
func (s *server) SendGetBlockHeaders(peerID wire.PeerID,
	req *wire.MsgGetBlockHeaders) error {

	var buf bytes.Buffer
	err := wire.WriteMessage(&buf, req, wire.MaxProtocolVersion)
	if err != nil {
		return err
	}
	return s.transport.Send(peerID, buf.Bytes())
}

// handleInboundMessage decodes one protocol frame and routes it to the
// subsystem responsible for it.  Frames that fail to decode after the
// handshake are logged and dropped rather than tearing the session down.
func (s *server) handleInboundMessage(ev *InboundMessage) {
	if len(ev.Frame) == 2 && ev.Frame[0] == disconnectFrameID {
		srvrLog.Debugf("Peer %s sent disconnect notice: %s", ev.Peer,
			wire.DisconnectReason(ev.Frame[1]))
		return
	}

	msg, err := wire.ReadMessage(ev.Frame, wire.MaxProtocolVersion)
	if err != nil {
		srvrLog.Debugf("Discarding undecodable message from peer %s: %v",
			ev.Peer, err)
		return
	}
	srvrLog.Tracef("Received %T from peer %s: %v", msg, ev.Peer,
		newLogClosure(func() string {
			return spew.Sdump(msg)
		}))

	switch msg := msg.(type) {
	case *wire.MsgNewBlock:
		s.importSink.QueueBlock(msg, ev.Peer)

	case *wire.MsgNewBlockHashes:
		s.importSink.QueueBlockHashes(msg, ev.Peer)

	case *wire.MsgBlockHeaders:
		// Header responses are matched by height rather than request
		// id since requests are issued fire and forget.
		for i := range msg.Headers {
			s.syncManager.OnBlockReceived(msg.Headers[i].BlockNumber())
		}

	case *wire.MsgGetBlockHeaders:
		// This node tracks headers it has seen but serves none.  An
		// empty response keeps well-behaved peers from timing out.
		reply := &wire.MsgBlockHeaders{RequestID: msg.RequestID}
		var buf bytes.Buffer
		err := wire.WriteMessage(&buf, reply, wire.MaxProtocolVersion)
		if err == nil {
			err = s.transport.Send(ev.Peer, buf.Bytes())
		}
		if err != nil {
			srvrLog.Debugf("Unable to answer header request from "+
				"peer %s: %v", ev.Peer, err)
		}

	default:
		srvrLog.Debugf("Ignoring %T from peer %s", msg, ev.Peer)
	}
}

// eventHandler routes transport events to the sync subsystems.  It must be
// run as a goroutine.
func (s *server) eventHandler() {
out:
	for {
		select {
		case ev, ok := <-s.transport.Events():
			if !ok {
				break out
			}
			switch ev := ev.(type) {
			case *SessionActive:
				srvrLog.Infof("Session active with peer %s "+
					"(eth/%d)", ev.Peer,
					ev.Status.ProtocolVersion)
				s.syncManager.NewPeer(ev.Peer)

			case *SessionClosed:
				if ev.Err != nil {
					srvrLog.Infof("Session with peer %s "+
						"closed: %v", ev.Peer, ev.Err)
				} else {
					srvrLog.Infof("Session with peer %s "+
						"closed", ev.Peer)
				}
				s.syncManager.DonePeer(ev.Peer)

			case *InboundMessage:
				s.handleInboundMessage(ev)

			default:
				srvrLog.Warnf("Invalid transport event type: "+
					"%T", ev)
			}

		case <-s.quit:
			break out
		}
	}

	s.wg.Done()
	srvrLog.Trace("Server event handler done")
}

// Start begins accepting connections from peers.
func (s *server) Start() error {
	// Already started?
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}

	srvrLog.Trace("Starting server")
	s.syncManager.Start()
	s.importSink.Start()
	if err := s.transport.Start(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.eventHandler()
	return nil
}

// Stop gracefully shuts down the server by stopping and disconnecting all
// peers and the main event handler.
func (s *server) Stop() error {
	// Make sure this only happens once.
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		srvrLog.Infof("Server is already in the process of shutting " +
			"down")
		return nil
	}

	srvrLog.Warnf("Server shutting down")
	if err := s.transport.Stop(); err != nil {
		srvrLog.Errorf("Unable to stop transport: %v", err)
	}
	s.importSink.Stop()
	s.syncManager.Stop()
	close(s.quit)
	return nil
}

// WaitForShutdown blocks until the main listener and peer handlers are
// stopped.
func (s *server) WaitForShutdown() {
	s.wg.Wait()
}

// newServer returns a new bscd server configured to listen for and connect
// to bsc peers on the currently active network.
func newServer(cfg *config, chainParams *params) (*server, error) {
	s := server{
		chainParams: chainParams,
		quit:        make(chan struct{}),
	}

	s.syncManager = netsync.New(&netsync.Config{
		StartHeight:         cfg.StartHeight,
		GapFillWindow:       cfg.GapFillWindow,
		SweepThreshold:      cfg.SweepThreshold,
		SweepKeepDepth:      cfg.SweepKeepDepth,
		MaintenanceInterval: cfg.MaintenanceTick,
		AdvanceOnReceipt:    cfg.AdvanceOnReceipt,
		Sender:              &s,
	})
	s.importSink = netsync.NewBlockImportSink(s.syncManager)

	// Only setup a function to return new addresses to connect to when
	// running behind a proxy, since direct connections use the net
	// package dialer.
	dial := net.Dial
	if cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		dial = proxy.Dial
	}

	localStatus := wire.NewMsgStatus(wire.MaxProtocolVersion,
		chainParams.Net, big.NewInt(1), chainParams.GenesisHash,
		chainParams.GenesisHash, chaincfg.NewForkID(chainParams.Params,
			cfg.StartHeight, uint64(time.Now().Unix())))

	s.transport = newTCPTransport(&tcpTransportConfig{
		listenAddr:         cfg.Listen,
		disableListen:      cfg.DisableListen,
		connectPeers:       cfg.ConnectPeers,
		maxPeers:           cfg.MaxPeers,
		dial:               dial,
		localStatus:        localStatus,
		forkFilter:         chaincfg.NewForkFilter(chainParams.Params),
		disableTxBroadcast: cfg.DisableTxBroadcast,
		handshakeTimeout:   cfg.HandshakeTimeout,
	})

	return &s, nil
}

// tcpTransportConfig holds the knobs for the plaintext TCP transport.
type tcpTransportConfig struct {
	listenAddr         string
	disableListen      bool
	connectPeers       []string
	maxPeers           int
	dial               func(network, addr string) (net.Conn, error)
	localStatus        *wire.MsgStatus
	forkFilter         *chaincfg.ForkFilter
	disableTxBroadcast bool
	handshakeTimeout   time.Duration
}

// tcpTransport is a plaintext TCP transport carrying length-prefixed
// protocol frames.  It exists for development and testing against other bscd
// nodes; production deployments front it with an RLPx capable proxy, which
// is also why session ids are random rather than derived from a key
// exchange.
type tcpTransport struct {
	cfg tcpTransportConfig

	mtx      sync.Mutex
	sessions map[wire.PeerID]*tcpSession
	listener net.Listener
	stopped  bool

	events chan interface{}
	wg     sync.WaitGroup
	quit   chan struct{}
}

func newTCPTransport(cfg *tcpTransportConfig) *tcpTransport {
	return &tcpTransport{
		cfg:      *cfg,
		sessions: make(map[wire.PeerID]*tcpSession),
		events:   make(chan interface{}, 128),
		quit:     make(chan struct{}),
	}
}

// Events returns the transport event channel.  This is part of the Transport
// interface implementation.
func (t *tcpTransport) Events() <-chan interface{} {
	return t.events
}

// Send delivers a frame to the given peer.  This is part of the Transport
// interface implementation.
func (t *tcpTransport) Send(peerID wire.PeerID, frame []byte) error {
	t.mtx.Lock()
	session, ok := t.sessions[peerID]
	t.mtx.Unlock()
	if !ok {
		return fmt.Errorf("no active session for peer %s", peerID)
	}
	return session.WriteMsg(frame)
}

// Start begins listening for inbound sessions and dialing the configured
// persistent peers.  This is part of the Transport interface implementation.
func (t *tcpTransport) Start() error {
	if !t.cfg.disableListen {
		listener, err := net.Listen("tcp", t.cfg.listenAddr)
		if err != nil {
			return err
		}
		t.mtx.Lock()
		t.listener = listener
		t.mtx.Unlock()

		srvrLog.Infof("Transport listening on %s", listener.Addr())
		t.wg.Add(1)
		go t.acceptHandler(listener)
	}

	for _, addr := range t.cfg.connectPeers {
		t.wg.Add(1)
		go t.connectHandler(addr)
	}
	return nil
}

// Stop closes the listener and all sessions and waits for the handlers to
// finish.  This is part of the Transport interface implementation.
func (t *tcpTransport) Stop() error {
	t.mtx.Lock()
	if t.stopped {
		t.mtx.Unlock()
		return nil
	}
	t.stopped = true
	listener := t.listener
	sessions := make([]*tcpSession, 0, len(t.sessions))
	for _, session := range t.sessions {
		sessions = append(sessions, session)
	}
	t.mtx.Unlock()

	close(t.quit)
	if listener != nil {
		listener.Close()
	}
	for _, session := range sessions {
		session.conn.Close()
	}
	t.wg.Wait()
	close(t.events)
	return nil
}

// acceptHandler accepts inbound connections until the listener is closed.
func (t *tcpTransport) acceptHandler(listener net.Listener) {
	defer t.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if !t.stopping() {
				srvrLog.Errorf("Unable to accept connection: "+
					"%v", err)
			}
			return
		}
		if t.sessionCount() >= t.cfg.maxPeers {
			srvrLog.Infof("Max peers reached [%d] - disconnecting "+
				"%s", t.cfg.maxPeers, conn.RemoteAddr())
			conn.Close()
			continue
		}
		t.wg.Add(1)
		go t.sessionHandler(conn, true)
	}
}

// connectHandler dials a persistent peer and redials it with a fixed backoff
// whenever the session ends.
func (t *tcpTransport) connectHandler(addr string) {
	defer t.wg.Done()

	for {
		conn, err := t.cfg.dial("tcp", addr)
		if err != nil {
			srvrLog.Errorf("Unable to connect to %s: %v", addr, err)
		} else {
			t.wg.Add(1)
			t.sessionHandler(conn, false)
		}

		select {
		case <-time.After(connectionRetryInterval):
		case <-t.quit:
			return
		}
	}
}

// sessionHandler negotiates the handshake on a fresh connection and then
// pumps inbound frames into the event channel until the session ends.
func (t *tcpTransport) sessionHandler(conn net.Conn, inbound bool) {
	defer t.wg.Done()
	defer conn.Close()

	// Without a key exchange there is no remote identity to derive the
	// session id from, so a throwaway key supplies a unique one.
	sessionKey, err := btcec.NewPrivateKey()
	if err != nil {
		srvrLog.Errorf("Unable to generate session id: %v", err)
		return
	}
	session := &tcpSession{
		id:           wire.NewPeerID(sessionKey.PubKey()),
		conn:         conn,
		writeTimeout: sessionWriteTimeout,
	}

	direction := "outbound"
	if inbound {
		direction = "inbound"
	}
	srvrLog.Debugf("Negotiating %s session with %s", direction,
		conn.RemoteAddr())

	negotiator := peer.NewNegotiator(&peer.HandshakeConfig{
		LocalStatus:        t.cfg.localStatus,
		ForkFilter:         t.cfg.forkFilter,
		DisableTxBroadcast: t.cfg.disableTxBroadcast,
		Timeout:            t.cfg.handshakeTimeout,
	})
	status, err := negotiator.Run(session)
	if err != nil {
		srvrLog.Debugf("Handshake with %s failed: %v",
			conn.RemoteAddr(), err)
		return
	}

	t.mtx.Lock()
	if t.stopped {
		t.mtx.Unlock()
		return
	}
	t.sessions[session.id] = session
	t.mtx.Unlock()

	t.deliver(&SessionActive{Peer: session.id, Status: status})

	var readErr error
	for {
		frame, err := session.ReadMsg()
		if err != nil {
			if !errors.Is(err, io.EOF) && !t.stopping() {
				readErr = err
			}
			break
		}
		t.deliver(&InboundMessage{Peer: session.id, Frame: frame})
	}

	t.mtx.Lock()
	delete(t.sessions, session.id)
	t.mtx.Unlock()
	t.deliver(&SessionClosed{Peer: session.id, Err: readErr})
}

// deliver queues the event unless the transport is shutting down.
func (t *tcpTransport) deliver(ev interface{}) {
	select {
	case t.events <- ev:
	case <-t.quit:
	}
}

func (t *tcpTransport) stopping() bool {
	select {
	case <-t.quit:
		return true
	default:
		return false
	}
}

func (t *tcpTransport) sessionCount() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.sessions)
}

// tcpSession is one plaintext session.  Frames are prefixed with a 4-byte
// big-endian length.  It implements peer.Conn for the handshake and keeps
// serving the same framing afterwards.
type tcpSession struct {
	id           wire.PeerID
	conn         net.Conn
	writeTimeout time.Duration

	writeMtx sync.Mutex
}

// ReadMsg returns the next reassembled frame payload.  This is part of the
// peer.Conn interface implementation.
func (s *tcpSession) ReadMsg() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.conn, lenBuf[:]); err != nil {
		return nil, err
	}
	frameLen := binary.BigEndian.Uint32(lenBuf[:])
	if frameLen > wire.MaxMessagePayload+1 {
		return nil, fmt.Errorf("frame of %d bytes exceeds max of %d",
			frameLen, wire.MaxMessagePayload+1)
	}

	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(s.conn, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteMsg sends a frame payload to the peer.  This is part of the peer.Conn
// interface implementation.
func (s *tcpSession) WriteMsg(frame []byte) error {
	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()

	if s.writeTimeout != 0 {
		deadline := time.Now().Add(s.writeTimeout)
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := s.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := s.conn.Write(frame)
	return err
}

// Disconnect sends a disconnect control frame with the given reason.  This
// is part of the peer.Conn interface implementation.
func (s *tcpSession) Disconnect(reason wire.DisconnectReason) error {
	return s.WriteMsg([]byte{disconnectFrameID, byte(reason)})
}
