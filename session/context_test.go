// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skiff-run/skiff/lib/clock"
)

func testSession() Session {
	sess, err := New(PlatformGlue, ChannelDescriptor{
		Transport: TransportCloudWatch,
		LogGroup:  "/aws-glue/jobs/output",
	}, clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	if err != nil {
		panic(err)
	}
	return sess
}

func TestInjectIdempotent(t *testing.T) {
	sess := testSession()

	first, err := Inject(sess)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Inject(sess)
		if err != nil {
			t.Fatalf("Inject (repeat %d): %v", i, err)
		}
		if again != first {
			t.Fatalf("Inject not idempotent:\n  first %+v\n  again %+v", first, again)
		}
	}
}

func TestInjectRoundTrip(t *testing.T) {
	sess := testSession()
	injected, err := Inject(sess)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	parsed, err := ParseContext(injected.Blob, injected.Digest)
	if err != nil {
		t.Fatalf("ParseContext: %v", err)
	}
	if parsed.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", parsed.SessionID, sess.ID)
	}
	if parsed.Channel != sess.Descriptor {
		t.Errorf("Channel = %+v, want %+v", parsed.Channel, sess.Descriptor)
	}
}

func TestParseContextDetectsTruncation(t *testing.T) {
	injected, err := Inject(testSession())
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	truncated := injected.Blob[:len(injected.Blob)-4]
	if _, err := ParseContext(truncated, injected.Digest); err == nil {
		t.Fatal("ParseContext accepted a truncated blob")
	} else if !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("error = %v, want digest mismatch", err)
	}
}

func TestInjectRejectsBadDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		descriptor ChannelDescriptor
	}{
		{"missing transport", ChannelDescriptor{}},
		{"cloudwatch without group", ChannelDescriptor{Transport: TransportCloudWatch}},
		{"s3 without bucket", ChannelDescriptor{Transport: TransportS3, Prefix: "runs/"}},
		{"s3 without prefix", ChannelDescriptor{Transport: TransportS3, Bucket: "b"}},
		{"unknown transport", ChannelDescriptor{Transport: "carrier-pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := testSession()
			sess.Descriptor = tt.descriptor
			_, err := Inject(sess)
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Inject error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestInjectRejectsEmptySessionID(t *testing.T) {
	sess := testSession()
	sess.ID = ""
	_, err := Inject(sess)
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Inject error = %v, want *ConfigError", err)
	}
}

func TestInjectedEnv(t *testing.T) {
	injected, err := Inject(testSession())
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	env := injected.Env()
	if env[EnvContext] != injected.Blob {
		t.Errorf("%s = %q, want blob", EnvContext, env[EnvContext])
	}
	if env[EnvContextDigest] != injected.Digest {
		t.Errorf("%s = %q, want digest", EnvContextDigest, env[EnvContextDigest])
	}
}
