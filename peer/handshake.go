// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bscsuite/bscd/chaincfg"
	"github.com/bscsuite/bscd/wire"
)

const (
	// DefaultHandshakeTimeout is the duration the combined base and
	// extension negotiation may take before the session is abandoned.
	DefaultHandshakeTimeout = 10 * time.Second
)

var (
	// ErrNoResponse is returned when the peer's stream ends before it
	// answers a handshake message.
	ErrNoResponse = errors.New("peer did not respond during handshake")

	// ErrUnexpectedMessage is returned when the peer answers a handshake
	// message with bytes that do not decode as the expected message.
	ErrUnexpectedMessage = errors.New("unexpected message during handshake")

	// ErrHandshakeTimeout is returned when the combined negotiation
	// deadline elapses before the handshake completes.
	ErrHandshakeTimeout = errors.New("protocol negotiation timeout")

	// ErrNetworkMismatch is returned when the peer advertises a different
	// network id during the base handshake.
	ErrNetworkMismatch = errors.New("peer is on a different network")

	// ErrGenesisMismatch is returned when the peer advertises a different
	// genesis hash during the base handshake.
	ErrGenesisMismatch = errors.New("peer has a different genesis block")

	// ErrVersionMismatch is returned when no common protocol version
	// exists with the peer.
	ErrVersionMismatch = errors.New("no common protocol version with peer")
)

// Conn is the capability set the negotiator requires from an unauthenticated
// session stream.  ReadMsg blocks until the next complete frame payload is
// available and returns an error once the stream ends.
type Conn interface {
	// ReadMsg returns the next reassembled frame payload.
	ReadMsg() ([]byte, error)

	// WriteMsg sends a frame payload to the peer.
	WriteMsg([]byte) error

	// Disconnect sends a disconnect notice with the given reason.  The
	// caller still owns the underlying connection afterwards.
	Disconnect(wire.DisconnectReason) error
}

// BaseHandshaker performs the base status exchange which agrees on a
// protocol version and chain identity.  The production implementation is
// StatusHandshake; tests and alternative transports may substitute their
// own.
type BaseHandshaker interface {
	Handshake(conn Conn, local *wire.MsgStatus,
		filter *chaincfg.ForkFilter) (*wire.MsgStatus, error)
}

// HandshakeState identifies how far a session's negotiation has progressed.
type HandshakeState int

// Constants for the states of negotiation.
const (
	// StateAwaitingBase means the base status exchange has not finished.
	StateAwaitingBase HandshakeState = iota

	// StateNegotiatingExtension means the base exchange succeeded and the
	// upgrade status exchange is in flight.
	StateNegotiatingExtension

	// StateDone means negotiation finished and the session may proceed.
	StateDone

	// StateFailed means negotiation failed terminally for this session.
	StateFailed
)

// String returns the HandshakeState in human-readable form.
func (s HandshakeState) String() string {
	switch s {
	case StateAwaitingBase:
		return "awaiting base handshake"
	case StateNegotiatingExtension:
		return "negotiating extension"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown state (%d)", int(s))
}

// HandshakeConfig is the configuration for a session negotiation.
type HandshakeConfig struct {
	// LocalStatus is the status message advertised to the peer.
	LocalStatus *wire.MsgStatus

	// ForkFilter validates the peer's advertised fork id.
	ForkFilter *chaincfg.ForkFilter

	// Base performs the base status exchange.  Defaults to
	// StatusHandshake when nil.
	Base BaseHandshaker

	// DisableTxBroadcast is the flag value carried in the local upgrade
	// status message.
	DisableTxBroadcast bool

	// Timeout bounds the combined base and extension negotiation.
	// Defaults to DefaultHandshakeTimeout when zero.
	Timeout time.Duration
}

// Negotiator drives the two-stage handshake for a single connecting session.
// One instance negotiates exactly one session and is not reused; failures
// are terminal and never retried.
type Negotiator struct {
	cfg HandshakeConfig

	mtx   sync.Mutex
	state HandshakeState
}

// NewNegotiator returns a negotiator for one session using the passed
// configuration.
func NewNegotiator(cfg *HandshakeConfig) *Negotiator {
	return &Negotiator{
		cfg:   *cfg, // Copy so caller can't mutate.
		state: StateAwaitingBase,
	}
}

// State returns the current negotiation state.
func (n *Negotiator) State() HandshakeState {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.state
}

func (n *Negotiator) setState(state HandshakeState) {
	n.mtx.Lock()
	n.state = state
	n.mtx.Unlock()
}

// Run performs the base handshake followed by the upgrade status exchange
// under one shared deadline and returns the negotiated status on success.
// On deadline expiry the in-flight exchange is abandoned and
// ErrHandshakeTimeout is returned; anything already written to the wire is
// not rolled back.
func (n *Negotiator) Run(conn Conn) (*wire.MsgStatus, error) {
	timeout := n.cfg.Timeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}

	type result struct {
		status *wire.MsgStatus
		err    error
	}
	resultChan := make(chan result, 1)
	go func() {
		status, err := n.negotiate(conn)
		resultChan <- result{status: status, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			n.setState(StateFailed)
			return nil, res.err
		}
		n.setState(StateDone)
		return res.status, nil

	case <-time.After(timeout):
		n.setState(StateFailed)
		return nil, ErrHandshakeTimeout
	}
}

// negotiate runs both handshake stages in order.
func (n *Negotiator) negotiate(conn Conn) (*wire.MsgStatus, error) {
	base := n.cfg.Base
	if base == nil {
		base = StatusHandshake{}
	}

	negotiated, err := base.Handshake(conn, n.cfg.LocalStatus,
		n.cfg.ForkFilter)
	if err != nil {
		return nil, err
	}

	// The upgrade status exchange only exists on protocol versions newer
	// than eth/66; legacy sessions complete right after the base
	// handshake.
	if negotiated.ProtocolVersion <= wire.Eth66 {
		return negotiated, nil
	}

	n.setState(StateNegotiatingExtension)
	return n.upgradeStatus(conn, negotiated)
}

// upgradeStatus sends the local upgrade status message and awaits exactly
// one message in response.  The negotiated base status is returned unchanged
// on success; the flag value received from the peer is recorded in the log
// but not yet enforced.
func (n *Negotiator) upgradeStatus(conn Conn,
	negotiated *wire.MsgStatus) (*wire.MsgStatus, error) {

	local := wire.NewMsgUpgradeStatus(n.cfg.DisableTxBroadcast)
	frame, err := local.EncodeFrame()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMsg(frame); err != nil {
		return nil, err
	}

	reply, err := conn.ReadMsg()
	if err != nil {
		// The peer went away without answering.
		if derr := conn.Disconnect(wire.DisconnectRequested); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrNoResponse
	}

	theirs, err := wire.DecodeUpgradeStatus(reply)
	if err != nil {
		log.Debugf("Unable to decode upgrade status from peer: %v", err)
		if derr := conn.Disconnect(wire.DisconnectProtocolBreach); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrUnexpectedMessage
	}

	log.Debugf("Negotiated upgrade status (peer disables tx broadcast: %v)",
		theirs.Extension.DisableTxBroadcast)
	return negotiated, nil
}

// StatusHandshake is the production base handshake.  It exchanges status
// messages with the peer and verifies that both sides are on the same chain
// before agreeing on the lower of the two advertised protocol versions.
type StatusHandshake struct{}

// Handshake sends the local status, awaits the peer's status and validates
// chain identity.  This is part of the BaseHandshaker interface
// implementation.
func (StatusHandshake) Handshake(conn Conn, local *wire.MsgStatus,
	filter *chaincfg.ForkFilter) (*wire.MsgStatus, error) {

	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, local, local.ProtocolVersion); err != nil {
		return nil, err
	}
	if err := conn.WriteMsg(buf.Bytes()); err != nil {
		return nil, err
	}

	frame, err := conn.ReadMsg()
	if err != nil {
		if derr := conn.Disconnect(wire.DisconnectRequested); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrNoResponse
	}

	msg, err := wire.ReadMessage(frame, local.ProtocolVersion)
	if err != nil {
		if derr := conn.Disconnect(wire.DisconnectProtocolBreach); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrUnexpectedMessage
	}
	theirs, ok := msg.(*wire.MsgStatus)
	if !ok {
		if derr := conn.Disconnect(wire.DisconnectProtocolBreach); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrUnexpectedMessage
	}

	if theirs.NetworkID != local.NetworkID {
		if derr := conn.Disconnect(wire.DisconnectUselessPeer); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrNetworkMismatch
	}
	if theirs.Genesis != local.Genesis {
		if derr := conn.Disconnect(wire.DisconnectUselessPeer); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrGenesisMismatch
	}
	if filter != nil {
		if err := filter.Check(theirs.ForkID); err != nil {
			if derr := conn.Disconnect(wire.DisconnectUselessPeer); derr != nil {
				log.Debugf("Unable to send disconnect notice: %v",
					derr)
			}
			return nil, err
		}
	}

	// Settle on the newest version both sides speak.
	version := local.ProtocolVersion
	if theirs.ProtocolVersion < version {
		version = theirs.ProtocolVersion
	}
	if version < wire.Eth66 {
		if derr := conn.Disconnect(wire.DisconnectIncompatible); derr != nil {
			log.Debugf("Unable to send disconnect notice: %v", derr)
		}
		return nil, ErrVersionMismatch
	}

	negotiated := *theirs
	negotiated.ProtocolVersion = version
	return &negotiated, nil
}
