// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"

	"github.com/skiff-run/skiff/session"
)

// fakeS3 serves objects from an in-memory map.
type fakeS3 struct {
	objects map[string][]byte // key → body
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for key := range f.objects {
		if params.StartAfter != nil && key <= *params.StartAfter {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		output.Contents = append(output.Contents, s3types.Object{Key: aws.String(key)})
	}
	return output, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", *params.Key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func openS3(t *testing.T, api S3API) Handle {
	t.Helper()
	handle, err := NewS3(api).Open(context.Background(), session.ChannelDescriptor{
		Transport: session.TransportS3,
		Bucket:    "messages",
		Prefix:    "runs/sess-1/",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return handle
}

func TestS3PollReadsNewObjects(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"runs/sess-1/00001.jsonl": []byte("rec-1\nrec-2\n"),
		"runs/sess-1/00002.jsonl": []byte("rec-3\n\n"),
	}}
	handle := openS3(t, fake)

	records, err := handle.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if string(records[0].Data) != "rec-1" || string(records[2].Data) != "rec-3" {
		t.Fatalf("records = %q, %q, %q", records[0].Data, records[1].Data, records[2].Data)
	}

	// Already-read objects are behind the startAfter cursor.
	records, err = handle.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("second poll returned %d records, want 0", len(records))
	}

	// A new object appears; only it is read.
	fake.objects["runs/sess-1/00003.jsonl"] = []byte("rec-4\n")
	records, err = handle.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(records) != 1 || string(records[0].Data) != "rec-4" {
		t.Fatalf("third poll = %v", records)
	}
}

func TestS3PollDecompressesZstObjects(t *testing.T) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := encoder.EncodeAll([]byte("rec-1\nrec-2\n"), nil)

	fake := &fakeS3{objects: map[string][]byte{
		"runs/sess-1/00001.jsonl.zst": compressed,
	}}
	handle := openS3(t, fake)

	records, err := handle.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(records) != 2 || string(records[1].Data) != "rec-2" {
		t.Fatalf("records = %v", records)
	}
}

func TestS3OpenValidation(t *testing.T) {
	ch := NewS3(&fakeS3{})
	if _, err := ch.Open(context.Background(), session.ChannelDescriptor{
		Transport: session.TransportS3,
		Bucket:    "messages",
	}); err == nil {
		t.Error("Open accepted a descriptor without a prefix")
	}
	if _, err := ch.Open(context.Background(), session.ChannelDescriptor{
		Transport: session.TransportCloudWatch,
	}); err == nil {
		t.Error("Open accepted a non-s3 transport")
	}
}
