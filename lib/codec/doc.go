// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Skiff's standard CBOR encoding.
//
// All internal binary serialization (today: the injected execution
// context) goes through this package rather than importing
// fxamacker/cbor directly. Encoding is Core Deterministic (RFC 8949
// §4.2), so encoding the same value twice yields identical bytes —
// the property the context injector's idempotence contract is built
// on.
package codec
