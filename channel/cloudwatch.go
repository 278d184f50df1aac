// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"

	"github.com/skiff-run/skiff/session"
)

// defaultPollTimeout bounds a single Poll call against the platform
// API so the supervising loop stays responsive to its deadline.
const defaultPollTimeout = 10 * time.Second

// CloudWatchAPI is the slice of the CloudWatch Logs client the
// channel uses. *cloudwatchlogs.Client satisfies it; tests substitute
// a fake.
type CloudWatchAPI interface {
	GetLogEvents(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
}

// CloudWatch reads channel records from a CloudWatch Logs stream —
// the usual side-channel for Glue job runs, whose driver stream is
// named after the run id. One CloudWatch value may serve many
// concurrent sessions; each Open tracks its own forward token.
type CloudWatch struct {
	// PollTimeout bounds a single GetLogEvents call. Defaults to 10
	// seconds if zero.
	PollTimeout time.Duration

	client CloudWatchAPI
}

// NewCloudWatch creates a CloudWatch channel over the given client.
func NewCloudWatch(client CloudWatchAPI) *CloudWatch {
	return &CloudWatch{client: client}
}

// Open binds a read handle to the descriptor's log stream. The stream
// name must already be resolved (the launcher fills it in from the
// launch handle when the descriptor leaves it empty).
func (c *CloudWatch) Open(ctx context.Context, descriptor session.ChannelDescriptor) (Handle, error) {
	if descriptor.Transport != session.TransportCloudWatch {
		return nil, fmt.Errorf("cloudwatch channel: unsupported transport %q", descriptor.Transport)
	}
	if descriptor.LogGroup == "" || descriptor.LogStream == "" {
		return nil, fmt.Errorf("cloudwatch channel: descriptor missing log group or stream")
	}

	pollTimeout := c.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	return &cloudWatchHandle{
		client:      c.client,
		logGroup:    descriptor.LogGroup,
		logStream:   descriptor.LogStream,
		pollTimeout: pollTimeout,
	}, nil
}

type cloudWatchHandle struct {
	client      CloudWatchAPI
	logGroup    string
	logStream   string
	pollTimeout time.Duration

	// nextToken is the forward token from the previous poll.
	// GetLogEvents returns the same token once the stream is
	// exhausted, so reusing it yields only new events.
	nextToken *string
}

// Poll fetches log events that arrived since the previous call. A
// missing stream is not an error: Glue creates the driver stream
// lazily, often seconds after the run starts, so polls before that
// simply return nothing.
func (h *cloudWatchHandle) Poll(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, h.pollTimeout)
	defer cancel()

	var records []Record
	for {
		output, err := h.client.GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
			LogGroupName:  aws.String(h.logGroup),
			LogStreamName: aws.String(h.logStream),
			NextToken:     h.nextToken,
			StartFromHead: aws.Bool(true),
		})
		if err != nil {
			if isNotFound(err) {
				return records, nil
			}
			return records, fmt.Errorf("cloudwatch channel: get log events: %w", err)
		}

		for _, event := range output.Events {
			if event.Message == nil {
				continue
			}
			records = append(records, Record{Data: []byte(*event.Message)})
		}

		// Token unchanged means the stream is drained for now.
		if output.NextForwardToken == nil ||
			(h.nextToken != nil && *output.NextForwardToken == *h.nextToken) {
			h.nextToken = output.NextForwardToken
			return records, nil
		}
		h.nextToken = output.NextForwardToken

		if len(output.Events) == 0 {
			return records, nil
		}
	}
}

func (h *cloudWatchHandle) Close() error { return nil }

// isNotFound reports whether err is the API's resource-not-found
// error (log group or stream does not exist yet).
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ResourceNotFoundException"
	}
	return false
}
