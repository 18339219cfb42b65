// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the subset of the BSC wire protocol spoken by a head
tracking peer.

# Overview

Messages on the wire consist of a single message id byte followed by the
RLP encoding of the message body.  The id space matches the eth protocol
family (status, block announcements, header requests) plus the BSC specific
upgrade status message exchanged once per session immediately after the base
status handshake.

This package only deals with serialization.  Framing, encryption, and session
multiplexing are the transport's concern and a fully decoded frame payload is
what the functions here operate on.

# Errors

Errors returned by decode functions are of type *MessageError and wrap one of
the exported sentinel errors so callers can react to the failure class with
errors.Is.  No input, however hostile, causes a panic; truncated and
malformed payloads always yield a typed error.
*/
package wire
