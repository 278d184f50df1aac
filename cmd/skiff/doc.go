// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

// Command skiff launches remote jobs on AWS Glue or Lambda, injects
// the report-back context, supervises them to completion, and prints
// the resulting events and terminal status. It also keeps a local
// journal of sessions, queryable with `skiff sessions`.
package main
