// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/bscsuite/bscd/wire"
)

// Fork describes a single hardfork activation point.  Earlier forks activate
// by block number, later ones by timestamp.
type Fork struct {
	// Name is the well-known name of the hardfork.
	Name string

	// Activation is the block number, or the unix timestamp when ByTime
	// is set, at which the fork rules take effect.
	Activation uint64

	// ByTime reports whether Activation is a timestamp rather than a
	// block number.
	ByTime bool
}

// Params defines a bsc network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses and
// keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the network id used in the status handshake.
	Net wire.BscNet

	// GenesisHash is the hash of the first block of the chain.
	GenesisHash common.Hash

	// Bootnodes defines a list of enode URLs for seeding new peers.
	Bootnodes []string

	// Forks is the hardfork schedule in ascending activation order, with
	// all block-number activations preceding all timestamp activations.
	Forks []Fork
}

// MainNetParams defines the network parameters for the main bsc network.
var MainNetParams = Params{
	Name: "mainnet",
	Net:  wire.MainNet,
	GenesisHash: common.HexToHash(
		"0x0d21840abff46b96c84b2ac9e10e4f5cdaeb5693cb665db62a2f3b02d2d57b5b"),

	Bootnodes: []string{
		"enode://433c8bfdf53a3e2268ccb1b829e47f629793291cbddf0c76ae626da802f90532251fc558e2e0d10d6725e759088439bf1cd4714716b03a259a35d4b2e4acfa7f@52.69.102.73:30311",
		"enode://571bee8fb902a625942f10a770ccf727ae2ba1bab2a2b64e121594a99c9437317f6166a395670a00b7d93647eacafe598b6bbcef15b40b6d1a10243865a3e80f@35.73.84.120:30311",
		"enode://fac42fb0ba082b7d1eebded216db42161163d42e4f52c9e47716946d64468a62da4ba0b1cac0df5e8bf1e5284861d757339751c33d51dfef318be5168803d0b5@18.203.152.54:30311",
		"enode://3063d1c9e1b824cfbb7c7b6abafa34faec6bb4e7e06941d218d760acdd7963b274278c5c3e63914bd6d1b58504c59ec5522c56f883baceb8538674b92da48a96@34.250.32.100:30311",
		"enode://ad78c64a4ade83692488aa42e4c94084516e555d3f340d9802c2bf106a3df8868bc46eae083d2de4018f40e8d9a9952c32a0943cd68855a9bc9fd07aac982a6d@34.204.214.24:30311",
		"enode://5db798deb67df75d073f8e2953dad283148133acb520625ea804c9c4ad09a35f13592a762d8f89056248f3889f6dcc33490c145774ea4ff2966982294909b37a@107.20.191.97:30311",
	},

	Forks: []Fork{
		{Name: "ramanujan", Activation: 0},
		{Name: "niels", Activation: 0},
		{Name: "mirrorsync", Activation: 5184000},
		{Name: "bruno", Activation: 13082000},
		{Name: "euler", Activation: 18907621},
		{Name: "nano", Activation: 21962149},
		{Name: "moran", Activation: 22107423},
		{Name: "gibbs", Activation: 23846001},
		{Name: "planck", Activation: 27281024},
		{Name: "luban", Activation: 29020050},
		{Name: "plato", Activation: 30720096},
		{Name: "hertz", Activation: 31302048},
		{Name: "hertzfix", Activation: 34140700},
		{Name: "kepler", Activation: 1705996800, ByTime: true},
		{Name: "feynman", Activation: 1713419340, ByTime: true},
		{Name: "feynmanfix", Activation: 1713419340, ByTime: true},
		{Name: "haber", Activation: 1718863500, ByTime: true},
		{Name: "haberfix", Activation: 1727316120, ByTime: true},
		{Name: "bohr", Activation: 1727317200, ByTime: true},
		{Name: "pascal", Activation: 1742436600, ByTime: true},
		{Name: "prague", Activation: 1742436600, ByTime: true},
	},
}

// TestNetParams defines the network parameters for the chapel test network.
var TestNetParams = Params{
	Name: "testnet",
	Net:  wire.TestNet,
	GenesisHash: common.HexToHash(
		"0x6d3c66c5357ec91d5c43af47e234a939b22557cbb552dc45bebbceeed90fbe34"),

	Bootnodes: []string{
		"enode://0637d1e62026e0c8685b1db0ca1c767c78c95c3fab64abc468d1a64b12ca4b530b46b8f80c915aec96f74f7ffc5999e8ad6d1484476f420f0c10e3d42361914b@52.199.214.252:30311",
		"enode://df1e8eb59e42cad3c4551b2a53e31a7e55a2fdde1287babd1e94b0836550b489ba16c40932e4dacb16cba346bd442c432265a299c4aca63ee7bb0f832b9f45eb@52.51.80.128:30311",
		"enode://dbcc5ec23bdf89243688321e8cfa8d80e17edce093206bcc6df998d8148385767cae3058a1c1e20c93c3b8e07962bc7a321deab0aa46c106283f1220f12c220a@3.209.122.123:30311",
		"enode://665cf77ca26a8421cfe61a52ac312958308d4912e78ce8e0f61d6902e4494d4cc38f9b0dd1b23a427a7a5734e27e5d9729231426b06bb9c73b56a142f83f6b68@52.72.123.113:30311",
	},

	Forks: []Fork{
		{Name: "ramanujan", Activation: 1010000},
		{Name: "niels", Activation: 1014369},
		{Name: "mirrorsync", Activation: 5582500},
		{Name: "bruno", Activation: 13837000},
		{Name: "euler", Activation: 19203503},
		{Name: "gibbs", Activation: 22800220},
		{Name: "nano", Activation: 23482428},
		{Name: "moran", Activation: 23603940},
		{Name: "planck", Activation: 28196022},
		{Name: "luban", Activation: 29295050},
		{Name: "plato", Activation: 29861024},
		{Name: "hertz", Activation: 31103030},
		{Name: "hertzfix", Activation: 35682300},
		{Name: "kepler", Activation: 1702972800, ByTime: true},
		{Name: "feynman", Activation: 1710136800, ByTime: true},
		{Name: "feynmanfix", Activation: 1711342800, ByTime: true},
		{Name: "cancun", Activation: 1713330442, ByTime: true},
		{Name: "haber", Activation: 1716962820, ByTime: true},
		{Name: "haberfix", Activation: 1719986788, ByTime: true},
		{Name: "bohr", Activation: 1724116996, ByTime: true},
		{Name: "pascal", Activation: 1740452880, ByTime: true},
		{Name: "prague", Activation: 1740452880, ByTime: true},
	},
}

// ActiveFork returns the name of the most recent fork active at the passed
// chain head, or the empty string when no scheduled fork has activated yet.
func (p *Params) ActiveFork(height, time uint64) string {
	active := ""
	for _, fork := range p.Forks {
		if fork.ByTime {
			if fork.Activation <= time {
				active = fork.Name
			}
			continue
		}
		if fork.Activation <= height {
			active = fork.Name
		}
	}
	return active
}
