// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"

	"github.com/skiff-run/skiff/session"
)

// S3API is the slice of the S3 client the channel uses. *s3.Client
// satisfies it; tests substitute a fake.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads channel records from objects under a key prefix. The
// remote process writes batches of newline-delimited JSON records as
// write-once objects with monotonically sortable names; objects with
// a .zst suffix are zstd-compressed. Redelivery (relisting an object
// already read) is tolerated — the decoder dedups.
type S3 struct {
	// PollTimeout bounds a single Poll call (listing plus object
	// fetches). Defaults to 10 seconds if zero.
	PollTimeout time.Duration

	client S3API
}

// NewS3 creates an S3 channel over the given client.
func NewS3(client S3API) *S3 {
	return &S3{client: client}
}

// Open binds a read handle to the descriptor's bucket and prefix.
func (c *S3) Open(ctx context.Context, descriptor session.ChannelDescriptor) (Handle, error) {
	if descriptor.Transport != session.TransportS3 {
		return nil, fmt.Errorf("s3 channel: unsupported transport %q", descriptor.Transport)
	}
	if descriptor.Bucket == "" || descriptor.Prefix == "" {
		return nil, fmt.Errorf("s3 channel: descriptor missing bucket or prefix")
	}

	pollTimeout := c.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	return &s3Handle{
		client:      c.client,
		bucket:      descriptor.Bucket,
		prefix:      descriptor.Prefix,
		pollTimeout: pollTimeout,
	}, nil
}

type s3Handle struct {
	client      S3API
	bucket      string
	prefix      string
	pollTimeout time.Duration

	// startAfter is the last object key consumed. Listing with
	// StartAfter skips everything up to and including it, so each
	// poll sees only new objects (keys are write-once and sortable).
	startAfter string
}

// Poll lists objects that appeared since the previous call and reads
// their records.
func (h *s3Handle) Poll(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, h.pollTimeout)
	defer cancel()

	keys, err := h.listNewKeys(ctx)
	if err != nil {
		return nil, err
	}
	// ListObjectsV2 returns keys in ascending order per page; sort
	// across pages so startAfter advances correctly.
	sort.Strings(keys)

	var records []Record
	for _, key := range keys {
		objectRecords, err := h.readObject(ctx, key)
		if err != nil {
			// Report what was read so far; the consumed keys are
			// behind startAfter and will not be re-fetched.
			return records, err
		}
		records = append(records, objectRecords...)
		h.startAfter = key
	}
	return records, nil
}

func (h *s3Handle) Close() error { return nil }

func (h *s3Handle) listNewKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var continuationToken *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(h.bucket),
			Prefix:            aws.String(h.prefix),
			ContinuationToken: continuationToken,
		}
		if h.startAfter != "" {
			input.StartAfter = aws.String(h.startAfter)
		}
		output, err := h.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("s3 channel: list %s/%s: %w", h.bucket, h.prefix, err)
		}
		for _, object := range output.Contents {
			if object.Key != nil {
				keys = append(keys, *object.Key)
			}
		}
		if output.IsTruncated == nil || !*output.IsTruncated {
			return keys, nil
		}
		continuationToken = output.NextContinuationToken
	}
}

func (h *s3Handle) readObject(ctx context.Context, key string) ([]Record, error) {
	output, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 channel: get %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 channel: read %s: %w", key, err)
	}

	if strings.HasSuffix(key, ".zst") {
		data, err = objectDecompressor.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("s3 channel: decompress %s: %w", key, err)
		}
	}

	var records []Record
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		records = append(records, Record{Data: line})
	}
	return records, nil
}

var objectDecompressor *zstd.Decoder

func init() {
	var err error
	objectDecompressor, err = zstd.NewReader(nil)
	if err != nil {
		panic("channel: zstd decoder initialization failed: " + err.Error())
	}
}
