// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"

	"github.com/bscsuite/bscd/wire"
)

// TestParams tests the basic shape of the compiled-in network parameters.
func TestParams(t *testing.T) {
	if len(MainNetParams.Bootnodes) != 6 {
		t.Errorf("mainnet: got %d bootnodes, want 6",
			len(MainNetParams.Bootnodes))
	}
	if len(TestNetParams.Bootnodes) != 4 {
		t.Errorf("testnet: got %d bootnodes, want 4",
			len(TestNetParams.Bootnodes))
	}

	if MainNetParams.Net != wire.MainNet {
		t.Errorf("mainnet: got net %v, want %v", MainNetParams.Net,
			wire.MainNet)
	}
	if TestNetParams.Net != wire.TestNet {
		t.Errorf("testnet: got net %v, want %v", TestNetParams.Net,
			wire.TestNet)
	}

	if MainNetParams.GenesisHash == TestNetParams.GenesisHash {
		t.Error("mainnet and testnet share a genesis hash")
	}

	// Schedules must be ordered: block activations ascending, then
	// timestamp activations ascending.
	for _, params := range []*Params{&MainNetParams, &TestNetParams} {
		var lastBlock, lastTime uint64
		inTimes := false
		for _, fork := range params.Forks {
			if fork.ByTime {
				inTimes = true
				if fork.Activation < lastTime {
					t.Errorf("%s: fork %s out of order",
						params.Name, fork.Name)
				}
				lastTime = fork.Activation
				continue
			}
			if inTimes {
				t.Errorf("%s: block fork %s after time forks",
					params.Name, fork.Name)
			}
			if fork.Activation < lastBlock {
				t.Errorf("%s: fork %s out of order",
					params.Name, fork.Name)
			}
			lastBlock = fork.Activation
		}
	}
}

// TestActiveFork tests fork lookup at a few interesting heads.
func TestActiveFork(t *testing.T) {
	tests := []struct {
		height uint64
		time   uint64
		want   string
	}{
		{0, 0, "niels"},
		{5183999, 0, "niels"},
		{5184000, 0, "mirrorsync"},
		{31302048, 0, "hertz"},
		{40000000, 1705996800, "kepler"},
		{60000000, 1742436600, "prague"},
	}

	for i, test := range tests {
		got := MainNetParams.ActiveFork(test.height, test.time)
		if got != test.want {
			t.Errorf("ActiveFork #%d (%d/%d): got %q, want %q", i,
				test.height, test.time, got, test.want)
		}
	}
}

// TestForkID tests the derived fork identifier behavior across fork
// boundaries without pinning specific checksum values.
func TestForkID(t *testing.T) {
	params := &MainNetParams

	// Crossing an activation boundary must change the checksum and the
	// advertised next fork.
	before := NewForkID(params, 5183999, 0)
	after := NewForkID(params, 5184000, 0)
	if before.Hash == after.Hash {
		t.Error("fork id checksum unchanged across mirrorsync")
	}
	if before.Next != 5184000 {
		t.Errorf("got next %d, want 5184000", before.Next)
	}
	if after.Next != 13082000 {
		t.Errorf("got next %d, want 13082000", after.Next)
	}

	// Identical heads must derive identical ids.
	if NewForkID(params, 5184000, 0) != after {
		t.Error("fork id not deterministic")
	}

	// Past every scheduled fork there is no next activation.
	tip := NewForkID(params, 60000000, 1800000000)
	if tip.Next != 0 {
		t.Errorf("got next %d at tip, want 0", tip.Next)
	}
}

// TestForkFilter tests remote fork id validation.
func TestForkFilter(t *testing.T) {
	filter := NewForkFilter(&MainNetParams)

	// Every id our own chain can advertise must pass, regardless of how
	// far behind or ahead the remote head is.
	heads := []struct{ height, time uint64 }{
		{0, 0},
		{5184000, 0},
		{31302048, 0},
		{60000000, 1800000000},
	}
	for i, head := range heads {
		id := NewForkID(&MainNetParams, head.height, head.time)
		if err := filter.Check(id); err != nil {
			t.Errorf("Check #%d rejected own id: %v", i, err)
		}
	}

	// A divergent history must be rejected.
	bad := NewForkID(&TestNetParams, 0, 0)
	if err := filter.Check(bad); err != ErrForkIDRejected {
		t.Errorf("Check accepted testnet id on mainnet filter: %v", err)
	}
}
