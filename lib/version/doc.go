// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports matrixbot's build version.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/matrixbot/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/matrixbot
//
// Without ldflags, [Info] falls back to the VCS revision recorded by
// the Go toolchain. [UserAgent] is the string the Matrix client sends.
package version
