// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chaincfg defines chain configuration parameters for the bsc networks.

The parameters are static data: the network id and genesis hash advertised in
the status handshake, the bootnode addresses used to seed outbound
connections, and the hardfork schedule from which the EIP-2124 fork
identifier is derived.  Nothing here is consulted after the handshake; chain
validation is out of scope for this node.
*/
package chaincfg
