// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads matrixbot's configuration file.
//
// The file is named either by the --config flag ([LoadFile]) or by the
// MATRIXBOT_CONFIG environment variable ([LoadFromEnvironment]). There
// is no discovery and no per-key environment override, so the file is
// the whole configuration.
//
// YAML (.yaml, .yml) and JSON (.json, .jsonc) are accepted; JSON may
// carry comments and trailing commas. After parsing, ${VAR} and
// ${VAR:-default} are expanded in the cursor store path and in
// top-level string values of the auth payload.
//
// [Config.Validate] reports every absent required key in one
// [MissingKeyError].
package config
