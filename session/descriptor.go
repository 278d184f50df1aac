// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "fmt"

// Transport identifies the kind of side-channel a descriptor points
// at.
type Transport string

const (
	// TransportCloudWatch reads records from a CloudWatch Logs
	// stream (the usual channel for Glue job runs, whose driver log
	// stream is named after the run id).
	TransportCloudWatch Transport = "cloudwatch"

	// TransportS3 reads records from objects under an S3 key prefix.
	TransportS3 Transport = "s3"

	// TransportInline reads records embedded in the invocation
	// response payload (synchronous Lambda).
	TransportInline Transport = "inline"
)

// ChannelDescriptor locates the side-channel the remote process
// writes messages to. Exactly the fields for its Transport are set;
// Validate enforces that.
type ChannelDescriptor struct {
	Transport Transport `cbor:"transport" yaml:"transport"`

	// LogGroup and LogStream locate a CloudWatch Logs stream.
	// LogStream may be empty at session creation when it is derived
	// from the launch handle (Glue names the driver stream after the
	// job run id); the channel implementation resolves it at Open.
	LogGroup  string `cbor:"log_group,omitempty" yaml:"log_group,omitempty"`
	LogStream string `cbor:"log_stream,omitempty" yaml:"log_stream,omitempty"`

	// Bucket and Prefix locate an S3 object prefix.
	Bucket string `cbor:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `cbor:"prefix,omitempty" yaml:"prefix,omitempty"`

	// InlineKey selects a queue within an inline channel. Set by the
	// launcher when it resolves the descriptor at launch (it is the
	// session id); never part of the injected context.
	InlineKey string `cbor:"-" yaml:"-"`
}

// Validate checks that the descriptor is well formed for its
// transport. Returns a *ConfigError describing the first problem
// found, or nil.
func (d ChannelDescriptor) Validate() error {
	switch d.Transport {
	case TransportCloudWatch:
		if d.LogGroup == "" {
			return &ConfigError{Detail: "cloudwatch descriptor: log_group is required"}
		}
	case TransportS3:
		if d.Bucket == "" {
			return &ConfigError{Detail: "s3 descriptor: bucket is required"}
		}
		if d.Prefix == "" {
			return &ConfigError{Detail: "s3 descriptor: prefix is required"}
		}
	case TransportInline:
		// Inline channels need no location: the launcher that
		// produced the response payload holds the records.
	case "":
		return &ConfigError{Detail: "channel descriptor: transport is required"}
	default:
		return &ConfigError{Detail: fmt.Sprintf("channel descriptor: unknown transport %q", d.Transport)}
	}
	return nil
}
