// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"

	"github.com/skiff-run/skiff/lib/clock"
	"github.com/skiff-run/skiff/session"
)

// fakeGlue is a scriptable GlueAPI.
type fakeGlue struct {
	startOutput *glue.StartJobRunOutput
	startErr    error
	startInput  *glue.StartJobRunInput

	state      gluetypes.JobRunState
	errMessage string
	getErr     error

	stopCalls int
	stopErr   error
}

func (f *fakeGlue) StartJobRun(ctx context.Context, params *glue.StartJobRunInput, optFns ...func(*glue.Options)) (*glue.StartJobRunOutput, error) {
	f.startInput = params
	return f.startOutput, f.startErr
}

func (f *fakeGlue) GetJobRun(ctx context.Context, params *glue.GetJobRunInput, optFns ...func(*glue.Options)) (*glue.GetJobRunOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &glue.GetJobRunOutput{JobRun: &gluetypes.JobRun{
		JobRunState:  f.state,
		ErrorMessage: aws.String(f.errMessage),
	}}, nil
}

func (f *fakeGlue) BatchStopJobRun(ctx context.Context, params *glue.BatchStopJobRunInput, optFns ...func(*glue.Options)) (*glue.BatchStopJobRunOutput, error) {
	f.stopCalls++
	return &glue.BatchStopJobRunOutput{}, f.stopErr
}

func glueSession(t *testing.T) (session.Session, session.Injected) {
	t.Helper()
	sess, err := session.New(session.PlatformGlue, session.ChannelDescriptor{
		Transport: session.TransportCloudWatch,
		LogGroup:  "/aws-glue/jobs/output",
	}, clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	injected, err := session.Inject(sess)
	if err != nil {
		t.Fatalf("session.Inject: %v", err)
	}
	return sess, injected
}

func TestGlueLaunchInjectsContextArguments(t *testing.T) {
	fake := &fakeGlue{startOutput: &glue.StartJobRunOutput{JobRunId: aws.String("jr_001")}}
	launcher := NewGlue(fake, nil)
	sess, injected := glueSession(t)

	handle, err := launcher.Launch(context.Background(), JobSpec{
		JobName:   "nightly-etl",
		Arguments: map[string]string{"--input": "s3://data/in"},
	}, sess, injected)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	arguments := fake.startInput.Arguments
	if arguments[session.GlueContextArgument] != injected.Blob {
		t.Errorf("context argument = %q, want injected blob", arguments[session.GlueContextArgument])
	}
	if arguments[session.GlueContextDigestArgument] != injected.Digest {
		t.Errorf("digest argument = %q, want injected digest", arguments[session.GlueContextDigestArgument])
	}
	if arguments["--input"] != "s3://data/in" {
		t.Errorf("caller argument lost: %v", arguments)
	}

	if handle.ID != "jr_001" || handle.JobName != "nightly-etl" {
		t.Errorf("handle = %+v", handle)
	}
	// The run-derived log stream is resolved into the descriptor.
	if handle.Descriptor.LogStream != "jr_001" {
		t.Errorf("descriptor log stream = %q, want run id", handle.Descriptor.LogStream)
	}
}

func TestGlueLaunchRejectionIsLaunchError(t *testing.T) {
	fake := &fakeGlue{startErr: &smithy.GenericAPIError{Code: "ConcurrentRunsExceededException", Message: "quota exceeded"}}
	launcher := NewGlue(fake, nil)
	sess, injected := glueSession(t)

	_, err := launcher.Launch(context.Background(), JobSpec{JobName: "nightly-etl"}, sess, injected)
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("Launch error = %v, want *LaunchError", err)
	}
	if launchErr.Platform != session.PlatformGlue {
		t.Errorf("Platform = %q", launchErr.Platform)
	}
}

func TestGluePollStatusMapping(t *testing.T) {
	tests := []struct {
		state gluetypes.JobRunState
		want  session.Status
	}{
		{gluetypes.JobRunStateStarting, session.StatusPending},
		{gluetypes.JobRunStateWaiting, session.StatusPending},
		{gluetypes.JobRunStateRunning, session.StatusRunning},
		{gluetypes.JobRunStateStopping, session.StatusRunning},
		{gluetypes.JobRunStateSucceeded, session.StatusSucceeded},
		{gluetypes.JobRunStateStopped, session.StatusCancelled},
		{gluetypes.JobRunStateFailed, session.StatusFailed},
		{gluetypes.JobRunStateError, session.StatusFailed},
		{gluetypes.JobRunStateTimeout, session.StatusTimedOut},
		{gluetypes.JobRunStateExpired, session.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			fake := &fakeGlue{state: tt.state, errMessage: "boom"}
			report, err := NewGlue(fake, nil).PollStatus(context.Background(), Handle{ID: "jr", JobName: "j"})
			if err != nil {
				t.Fatalf("PollStatus: %v", err)
			}
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q", report.Status, tt.want)
			}
			if (tt.want == session.StatusFailed || tt.want == session.StatusTimedOut) && report.Detail != "boom" {
				t.Errorf("detail = %q, want remote error message", report.Detail)
			}
		})
	}
}

func TestGluePollErrorClassification(t *testing.T) {
	notFound := &smithy.GenericAPIError{Code: "EntityNotFoundException", Message: "gone"}
	fake := &fakeGlue{getErr: notFound}
	_, err := NewGlue(fake, nil).PollStatus(context.Background(), Handle{ID: "jr", JobName: "j"})
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("error = %v, want *PollError", err)
	}
	if pollErr.Transient {
		t.Error("EntityNotFoundException classified transient, want permanent")
	}

	fake = &fakeGlue{getErr: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}
	_, err = NewGlue(fake, nil).PollStatus(context.Background(), Handle{ID: "jr", JobName: "j"})
	if !errors.As(err, &pollErr) {
		t.Fatalf("error = %v, want *PollError", err)
	}
	if !pollErr.Transient {
		t.Error("ThrottlingException classified permanent, want transient")
	}
}

func TestGlueCancelStopsRun(t *testing.T) {
	fake := &fakeGlue{}
	if err := NewGlue(fake, nil).Cancel(context.Background(), Handle{ID: "jr", JobName: "j"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if fake.stopCalls != 1 {
		t.Fatalf("stopCalls = %d, want 1", fake.stopCalls)
	}
}
