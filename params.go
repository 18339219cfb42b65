// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bscsuite/bscd/chaincfg"
)

// params is used to group parameters for various networks such as the main
// network and test network.
type params struct {
	*chaincfg.Params
	listenPort string
}

// mainNetParams contains parameters specific to the main network.
var mainNetParams = params{
	Params:     &chaincfg.MainNetParams,
	listenPort: "30311",
}

// testNetParams contains parameters specific to the chapel test network.
var testNetParams = params{
	Params:     &chaincfg.TestNetParams,
	listenPort: "30312",
}

// activeNetParams is a pointer to the parameters specific to the currently
// active bsc network.
var activeNetParams = &mainNetParams
