// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
)

// TestGetBlockHeaders tests the MsgGetBlockHeaders API.
func TestGetBlockHeaders(t *testing.T) {
	msg := NewMsgGetBlockHeaders(7, 1000)

	if msg.Query.Origin.Number != 1000 {
		t.Errorf("NewMsgGetBlockHeaders: wrong origin - got %v, want 1000",
			msg.Query.Origin.Number)
	}
	if msg.Query.Amount != 1 || msg.Query.Skip != 0 || msg.Query.Reverse {
		t.Errorf("NewMsgGetBlockHeaders: wrong query shape %+v", msg.Query)
	}

	wantID := uint8(0x03)
	if id := msg.MsgID(); id != wantID {
		t.Errorf("MsgID: wrong message id - got %#02x want %#02x",
			id, wantID)
	}
}

// TestGetBlockHeadersWire tests the MsgGetBlockHeaders wire encode and decode
// against known byte vectors.
func TestGetBlockHeadersWire(t *testing.T) {
	pver := MaxProtocolVersion

	tests := []struct {
		in  *MsgGetBlockHeaders // Message to encode
		buf []byte              // Wire encoding
	}{
		// Single rising block request by number, the only shape the
		// sync tracker sends.
		{
			NewMsgGetBlockHeaders(0x1234, 1000),
			[]byte{
				0xca,             // List, 10 byte payload
				0x82, 0x12, 0x34, // Request id
				0xc6,             // Query list, 6 byte payload
				0x82, 0x03, 0xe8, // Origin number 1000
				0x01, // Amount 1
				0x80, // Skip 0
				0x80, // Reverse false
			},
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		var buf bytes.Buffer
		err := test.in.BscEncode(&buf, pver)
		if err != nil {
			t.Errorf("BscEncode #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("BscEncode #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		var msg MsgGetBlockHeaders
		err = msg.BscDecode(bytes.NewReader(test.buf), pver)
		if err != nil {
			t.Errorf("BscDecode #%d error %v", i, err)
			continue
		}
		if !reflect.DeepEqual(&msg, test.in) {
			t.Errorf("BscDecode #%d\n got: %s want: %s", i,
				spew.Sdump(&msg), spew.Sdump(test.in))
			continue
		}
	}
}

// TestGetBlockHeadersOriginHash tests that a hash origin survives the wire
// round trip and is distinguished from a number origin by size.
func TestGetBlockHeadersOriginHash(t *testing.T) {
	pver := MaxProtocolVersion

	hash := common.HexToHash(
		"0d21840abff46b96c84b2ac9e10e4f5cdaeb5693cb665db62a2f3b02d2d57b5b")
	msg := &MsgGetBlockHeaders{
		RequestID: 9,
		Query: GetBlockHeadersQuery{
			Origin: HashOrNumber{Hash: hash},
			Amount: 1,
		},
	}

	var buf bytes.Buffer
	if err := msg.BscEncode(&buf, pver); err != nil {
		t.Fatalf("BscEncode error %v", err)
	}

	var got MsgGetBlockHeaders
	if err := got.BscDecode(bytes.NewReader(buf.Bytes()), pver); err != nil {
		t.Fatalf("BscDecode error %v", err)
	}
	if got.Query.Origin.Hash != hash || got.Query.Origin.Number != 0 {
		t.Errorf("origin did not round trip - got %+v", got.Query.Origin)
	}
}

// TestGetBlockHeadersErrors performs negative tests against encode and decode
// of MsgGetBlockHeaders.
func TestGetBlockHeadersErrors(t *testing.T) {
	pver := MaxProtocolVersion

	// An origin with both union fields set must refuse to encode.
	msg := &MsgGetBlockHeaders{
		Query: GetBlockHeadersQuery{
			Origin: HashOrNumber{
				Hash:   common.Hash{0x01},
				Number: 1,
			},
			Amount: 1,
		},
	}
	var buf bytes.Buffer
	if err := msg.BscEncode(&buf, pver); err == nil {
		t.Error("BscEncode with ambiguous origin did not error")
	}

	// A request for more headers than the per-message maximum must refuse
	// to decode.
	big := &MsgGetBlockHeaders{
		Query: GetBlockHeadersQuery{
			Origin: HashOrNumber{Number: 1},
			Amount: MaxHeadersPerMsg + 1,
		},
	}
	buf.Reset()
	if err := big.BscEncode(&buf, pver); err != nil {
		t.Fatalf("BscEncode error %v", err)
	}
	var got MsgGetBlockHeaders
	err := got.BscDecode(bytes.NewReader(buf.Bytes()), pver)
	if _, ok := err.(*MessageError); !ok {
		t.Errorf("BscDecode oversize amount - got err %T <%v>, want "+
			"*MessageError", err, err)
	}
}
