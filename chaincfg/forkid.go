// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/bscsuite/bscd/wire"
)

// ErrForkIDRejected is returned by ForkFilter.Check when a remote fork id
// does not belong to this chain's fork history.
var ErrForkIDRejected = errors.New("remote fork id rejected")

// forkPoints returns the deduplicated activation values of the schedule with
// block-number activations first, skipping forks active from genesis since
// those are already committed to by the genesis hash.
func forkPoints(params *Params) []uint64 {
	var points []uint64
	add := func(v uint64) {
		if v == 0 {
			return
		}
		for _, p := range points {
			if p == v {
				return
			}
		}
		points = append(points, v)
	}
	for _, fork := range params.Forks {
		if !fork.ByTime {
			add(fork.Activation)
		}
	}
	for _, fork := range params.Forks {
		if fork.ByTime {
			add(fork.Activation)
		}
	}
	return points
}

// checksums returns the progressive CRC32 checksums of the chain's fork
// history per EIP-2124: entry 0 covers just the genesis hash and each
// following entry folds in one more activation point.
func checksums(params *Params) []uint32 {
	points := forkPoints(params)
	sums := make([]uint32, 0, len(points)+1)

	sum := crc32.ChecksumIEEE(params.GenesisHash[:])
	sums = append(sums, sum)

	var buf [8]byte
	for _, point := range points {
		binary.BigEndian.PutUint64(buf[:], point)
		sum = crc32.Update(sum, crc32.IEEETable, buf[:])
		sums = append(sums, sum)
	}
	return sums
}

// NewForkID computes the fork identifier advertised in the status handshake
// for the passed chain head.
func NewForkID(params *Params, height, time uint64) wire.ForkID {
	points := forkPoints(params)
	sums := checksums(params)

	// Find how many activation points the head has passed.  Points are
	// ordered with block numbers first, then timestamps; any timestamp
	// value is far larger than any plausible block number so a single
	// comparison against the matching head dimension suffices.
	passed := 0
	var next uint64
	for i, point := range points {
		head := height
		if pointIsTime(params, point) {
			head = time
		}
		if point <= head {
			passed = i + 1
			continue
		}
		next = point
		break
	}

	var id wire.ForkID
	binary.BigEndian.PutUint32(id.Hash[:], sums[passed])
	id.Next = next
	return id
}

// pointIsTime reports whether the activation value belongs to a
// timestamp-scheduled fork.
func pointIsTime(params *Params, point uint64) bool {
	for _, fork := range params.Forks {
		if fork.Activation == point {
			return fork.ByTime
		}
	}
	return false
}

// ForkFilter validates remote fork ids against the local chain's fork
// history.
type ForkFilter struct {
	valid map[uint32]struct{}
}

// NewForkFilter creates a filter for the passed network parameters.
func NewForkFilter(params *Params) *ForkFilter {
	valid := make(map[uint32]struct{})
	for _, sum := range checksums(params) {
		valid[sum] = struct{}{}
	}
	return &ForkFilter{valid: valid}
}

// Check returns ErrForkIDRejected when the remote fork id checksum does not
// appear anywhere in the local fork history.  A remote that is merely behind
// or ahead on the same chain passes; only a divergent history is rejected.
func (f *ForkFilter) Check(remote wire.ForkID) error {
	sum := binary.BigEndian.Uint32(remote.Hash[:])
	if _, ok := f.valid[sum]; !ok {
		return ErrForkIDRejected
	}
	return nil
}
