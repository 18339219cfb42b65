// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/bscsuite/bscd/chaincfg"
	"github.com/bscsuite/bscd/wire"
)

// testConn implements Conn against queued frames for deterministic
// negotiation tests.
type testConn struct {
	mtx         sync.Mutex
	inbound     [][]byte
	written     [][]byte
	disconnects []wire.DisconnectReason
	blockRead   chan struct{} // ReadMsg blocks on this when non-nil
}

func (c *testConn) ReadMsg() ([]byte, error) {
	if c.blockRead != nil {
		<-c.blockRead
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(c.inbound) == 0 {
		return nil, io.EOF
	}
	frame := c.inbound[0]
	c.inbound = c.inbound[1:]
	return frame, nil
}

func (c *testConn) WriteMsg(frame []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.written = append(c.written, frame)
	return nil
}

func (c *testConn) Disconnect(reason wire.DisconnectReason) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.disconnects = append(c.disconnects, reason)
	return nil
}

func (c *testConn) queue(t *testing.T, msg wire.Message) {
	t.Helper()
	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, msg, wire.MaxProtocolVersion); err != nil {
		t.Fatalf("queue: %v", err)
	}
	c.mtx.Lock()
	c.inbound = append(c.inbound, buf.Bytes())
	c.mtx.Unlock()
}

// localStatus returns a mainnet status message for the test node.
func localStatus() *wire.MsgStatus {
	forkID := chaincfg.NewForkID(&chaincfg.MainNetParams, 0, 0)
	return wire.NewMsgStatus(wire.Eth68, wire.MainNet, big.NewInt(1),
		chaincfg.MainNetParams.GenesisHash,
		chaincfg.MainNetParams.GenesisHash, forkID)
}

// stubBase is a BaseHandshaker returning a canned result.
type stubBase struct {
	status *wire.MsgStatus
	err    error
}

func (s stubBase) Handshake(Conn, *wire.MsgStatus,
	*chaincfg.ForkFilter) (*wire.MsgStatus, error) {

	return s.status, s.err
}

// TestNegotiateSuccess walks the full two-stage negotiation with a
// well-behaved peer where both sides allow transaction broadcast.
func TestNegotiateSuccess(t *testing.T) {
	conn := &testConn{}

	// The peer advertises a compatible status and answers the upgrade
	// exchange with broadcast allowed.
	conn.queue(t, localStatus())
	conn.queue(t, wire.NewMsgUpgradeStatus(false))

	n := NewNegotiator(&HandshakeConfig{
		LocalStatus: localStatus(),
		ForkFilter:  chaincfg.NewForkFilter(&chaincfg.MainNetParams),
	})
	status, err := n.Run(conn)
	if err != nil {
		t.Fatalf("Run error %v", err)
	}
	if status.ProtocolVersion != wire.Eth68 {
		t.Errorf("negotiated version %d, want %d",
			status.ProtocolVersion, wire.Eth68)
	}
	if state := n.State(); state != StateDone {
		t.Errorf("state %v, want %v", state, StateDone)
	}

	// Our status and our upgrade status must have hit the wire, nothing
	// else, and no disconnect may have been sent.
	if len(conn.written) != 2 {
		t.Fatalf("wrote %d frames, want 2", len(conn.written))
	}
	if conn.written[1][0] != wire.UpgradeStatusMsgID {
		t.Errorf("second frame id %#02x, want upgrade status",
			conn.written[1][0])
	}
	if len(conn.disconnects) != 0 {
		t.Errorf("sent %d disconnects, want 0", len(conn.disconnects))
	}
}

// TestNegotiateLegacyPeer ensures the extension stage is skipped entirely
// for peers on eth/66 and older.
func TestNegotiateLegacyPeer(t *testing.T) {
	conn := &testConn{}
	legacy := localStatus()
	legacy.ProtocolVersion = wire.Eth66

	n := NewNegotiator(&HandshakeConfig{
		LocalStatus: localStatus(),
		Base:        stubBase{status: legacy},
	})
	status, err := n.Run(conn)
	if err != nil {
		t.Fatalf("Run error %v", err)
	}
	if status != legacy {
		t.Error("negotiated status was not returned unchanged")
	}
	if len(conn.written) != 0 {
		t.Errorf("wrote %d frames, want 0", len(conn.written))
	}
	if state := n.State(); state != StateDone {
		t.Errorf("state %v, want %v", state, StateDone)
	}
}

// TestNegotiateNoResponse ensures a peer that hangs up before answering the
// upgrade exchange yields ErrNoResponse and a polite disconnect.
func TestNegotiateNoResponse(t *testing.T) {
	conn := &testConn{}

	n := NewNegotiator(&HandshakeConfig{
		LocalStatus: localStatus(),
		Base:        stubBase{status: localStatus()},
	})
	_, err := n.Run(conn)
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("got err <%v>, want <%v>", err, ErrNoResponse)
	}
	if len(conn.disconnects) != 1 ||
		conn.disconnects[0] != wire.DisconnectRequested {

		t.Errorf("disconnects %v, want [%v]", conn.disconnects,
			wire.DisconnectRequested)
	}
	if state := n.State(); state != StateFailed {
		t.Errorf("state %v, want %v", state, StateFailed)
	}
}

// TestNegotiateProtocolBreach ensures undecodable upgrade replies, including
// a frame too short to carry the id byte, yield ErrUnexpectedMessage and a
// protocol breach disconnect.
func TestNegotiateProtocolBreach(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
	}{
		{name: "empty frame", reply: []byte{}},
		{name: "wrong message id", reply: []byte{0x00, 0xc1, 0x80}},
		{name: "garbage body", reply: []byte{0x0b, 0xff, 0xff}},
	}

	for _, test := range tests {
		conn := &testConn{inbound: [][]byte{test.reply}}

		n := NewNegotiator(&HandshakeConfig{
			LocalStatus: localStatus(),
			Base:        stubBase{status: localStatus()},
		})
		_, err := n.Run(conn)
		if !errors.Is(err, ErrUnexpectedMessage) {
			t.Errorf("%s: got err <%v>, want <%v>", test.name, err,
				ErrUnexpectedMessage)
			continue
		}
		if len(conn.disconnects) != 1 ||
			conn.disconnects[0] != wire.DisconnectProtocolBreach {

			t.Errorf("%s: disconnects %v, want [%v]", test.name,
				conn.disconnects, wire.DisconnectProtocolBreach)
		}
	}
}

// TestNegotiateTimeout ensures the shared deadline bounds the whole
// negotiation.
func TestNegotiateTimeout(t *testing.T) {
	conn := &testConn{blockRead: make(chan struct{})}
	defer close(conn.blockRead)

	n := NewNegotiator(&HandshakeConfig{
		LocalStatus: localStatus(),
		Base:        stubBase{status: localStatus()},
		Timeout:     25 * time.Millisecond,
	})
	_, err := n.Run(conn)
	if !errors.Is(err, ErrHandshakeTimeout) {
		t.Fatalf("got err <%v>, want <%v>", err, ErrHandshakeTimeout)
	}
	if state := n.State(); state != StateFailed {
		t.Errorf("state %v, want %v", state, StateFailed)
	}
}

// TestStatusHandshakeMismatches exercises the chain identity checks of the
// base status exchange.
func TestStatusHandshakeMismatches(t *testing.T) {
	otherNet := localStatus()
	otherNet.NetworkID = wire.TestNet

	otherGenesis := localStatus()
	otherGenesis.Genesis = chaincfg.TestNetParams.GenesisHash

	otherChain := localStatus()
	otherChain.ForkID = chaincfg.NewForkID(&chaincfg.TestNetParams, 0, 0)

	tests := []struct {
		name   string
		theirs *wire.MsgStatus
		err    error
	}{
		{name: "network mismatch", theirs: otherNet, err: ErrNetworkMismatch},
		{name: "genesis mismatch", theirs: otherGenesis, err: ErrGenesisMismatch},
		{name: "fork mismatch", theirs: otherChain, err: chaincfg.ErrForkIDRejected},
	}

	for _, test := range tests {
		conn := &testConn{}
		conn.queue(t, test.theirs)

		n := NewNegotiator(&HandshakeConfig{
			LocalStatus: localStatus(),
			ForkFilter:  chaincfg.NewForkFilter(&chaincfg.MainNetParams),
		})
		_, err := n.Run(conn)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: got err <%v>, want <%v>", test.name, err,
				test.err)
		}
		if len(conn.disconnects) != 1 ||
			conn.disconnects[0] != wire.DisconnectUselessPeer {

			t.Errorf("%s: disconnects %v, want [%v]", test.name,
				conn.disconnects, wire.DisconnectUselessPeer)
		}
	}
}
