// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package netsync implements a concurrency safe block syncing protocol.

The provided implementation of SyncManager tracks the locally known chain
height, requests block headers the node is missing from connected peers and
fills gaps between the local height and block heights observed on the wire.
Requests are fire and forget; a periodic maintenance pass sweeps request
state that can no longer be satisfied and retries the next needed block.

The BlockImportSink consumes propagated blocks and block announcements,
deduplicates announcements and feeds the resulting height observations back
into the sync manager.
*/
package netsync
