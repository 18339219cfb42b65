// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package peer negotiates bsc sessions over an unauthenticated stream.

Session establishment happens in two stages.  First the base status exchange
agrees on a protocol version and checks that both sides follow the same
chain.  Second, on protocol versions newer than eth/66, both sides exchange
the BSC upgrade status message which carries negotiable session flags.  Both
stages run under one shared deadline and any failure is terminal for the
session; the caller owns the connection and is responsible for closing it.

The negotiator depends only on the small Conn interface so transports and
tests can supply their own stream implementations.
*/
package peer
