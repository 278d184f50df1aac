// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes the build version stamp.
package version

// version is the Skiff release version. Overridden at build time:
//
//	go build -ldflags "-X github.com/skiff-run/skiff/lib/version.version=v0.3.0"
var version = "dev"

// Info returns the version string for display in CLI output and logs.
func Info() string {
	return version
}
