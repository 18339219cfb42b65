// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
bscd is a BNB Smart Chain peer written in Go.

bscd speaks the bsc capability extension of the eth wire protocol.  It
negotiates sessions with remote peers, tracks the chain head by following
block announcements and propagated blocks, and requests the headers it is
missing from the peers it is connected to.  It does not execute transactions
or maintain chain state; block import is a seam for heavier backends.

Usage:

	bscd [OPTIONS]

For an up-to-date help message:

	bscd --help

The long form of all option flags (except -C) can be specified in a
configuration file that is automatically parsed when bscd starts up.  By
default, the configuration file is located at ~/.bscd/bscd.conf on POSIX
style operating systems.  The -C (--configfile) flag can be used to override
this location.
*/
package main
