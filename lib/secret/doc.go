// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials (the homeserver access token and
// login passwords) outside the Go heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM with mlock and
// excluded from core dumps with MADV_DONTDUMP. The garbage collector
// never sees the region, so it cannot leave stray copies behind. Close
// zeros, unlocks, and unmaps it; any read after Close panics.
//
// Depends only on golang.org/x/sys/unix.
package secret
