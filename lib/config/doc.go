// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the opsdesk
// compliance service and CLI.
//
// Configuration is loaded from a single file specified by either the
// OPSDESK_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no search path.
//
// The file may contain development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section turns the overdue sweep on.
//
// After loading, ${HOME}, ${OPSDESK_ROOT}, and ${VAR:-default}
// patterns are expanded in path and URL fields. No other environment
// variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Store, Schedule, Overdue,
//     Notify, and Throttle sections
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
