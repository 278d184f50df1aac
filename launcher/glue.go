// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/skiff-run/skiff/session"
)

// GlueAPI is the slice of the Glue client the launcher uses.
// *glue.Client satisfies it; tests substitute a fake.
type GlueAPI interface {
	StartJobRun(ctx context.Context, params *glue.StartJobRunInput, optFns ...func(*glue.Options)) (*glue.StartJobRunOutput, error)
	GetJobRun(ctx context.Context, params *glue.GetJobRunInput, optFns ...func(*glue.Options)) (*glue.GetJobRunOutput, error)
	BatchStopJobRun(ctx context.Context, params *glue.BatchStopJobRunInput, optFns ...func(*glue.Options)) (*glue.BatchStopJobRunOutput, error)
}

// Glue launches AWS Glue job runs: submit, poll run state, best-effort
// stop. No direct process I/O — messages come back through the
// session's channel (typically the CloudWatch driver log stream, which
// Glue names after the run id).
type Glue struct {
	client GlueAPI
	logger *slog.Logger
}

// NewGlue creates a Glue launcher over the given client. If logger is
// nil, slog.Default() is used.
func NewGlue(client GlueAPI, logger *slog.Logger) *Glue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Glue{client: client, logger: logger}
}

func (g *Glue) Platform() session.Platform { return session.PlatformGlue }

// Launch submits the job run with the context blob and digest merged
// into the job arguments.
func (g *Glue) Launch(ctx context.Context, spec JobSpec, sess session.Session, injected session.Injected) (Handle, error) {
	if spec.JobName == "" {
		return Handle{}, &LaunchError{Platform: g.Platform(), Detail: "job spec has no job name"}
	}

	arguments := make(map[string]string, len(spec.Arguments)+2)
	for key, value := range spec.Arguments {
		arguments[key] = value
	}
	arguments[session.GlueContextArgument] = injected.Blob
	arguments[session.GlueContextDigestArgument] = injected.Digest

	output, err := g.client.StartJobRun(ctx, &glue.StartJobRunInput{
		JobName:   aws.String(spec.JobName),
		Arguments: arguments,
	})
	if err != nil {
		return Handle{}, &LaunchError{Platform: g.Platform(), Detail: fmt.Sprintf("starting job %q", spec.JobName), Cause: err}
	}
	if output.JobRunId == nil || *output.JobRunId == "" {
		return Handle{}, &LaunchError{Platform: g.Platform(), Detail: fmt.Sprintf("job %q started without a run id", spec.JobName)}
	}
	runID := *output.JobRunId

	// Resolve the channel descriptor for this run: the driver log
	// stream is named after the run id, so a cloudwatch descriptor
	// created before launch leaves the stream empty.
	descriptor := sess.Descriptor
	if descriptor.Transport == session.TransportCloudWatch && descriptor.LogStream == "" {
		descriptor.LogStream = runID
	}

	g.logger.Info("glue job run started",
		"session_id", sess.ID,
		"job_name", spec.JobName,
		"run_id", runID,
	)

	return Handle{
		Platform:   g.Platform(),
		ID:         runID,
		JobName:    spec.JobName,
		Descriptor: descriptor,
	}, nil
}

// PollStatus maps the Glue run state onto the session status.
func (g *Glue) PollStatus(ctx context.Context, handle Handle) (StatusReport, error) {
	output, err := g.client.GetJobRun(ctx, &glue.GetJobRunInput{
		JobName: aws.String(handle.JobName),
		RunId:   aws.String(handle.ID),
	})
	if err != nil {
		return StatusReport{}, classifyPollError(err, "EntityNotFoundException")
	}
	if output.JobRun == nil {
		return StatusReport{}, &PollError{Transient: false, Cause: fmt.Errorf("glue returned no job run for %s", handle.ID)}
	}

	run := output.JobRun
	detail := ""
	if run.ErrorMessage != nil {
		detail = *run.ErrorMessage
	}

	switch run.JobRunState {
	case gluetypes.JobRunStateStarting, gluetypes.JobRunStateWaiting:
		return StatusReport{Status: session.StatusPending}, nil
	case gluetypes.JobRunStateRunning, gluetypes.JobRunStateStopping:
		return StatusReport{Status: session.StatusRunning}, nil
	case gluetypes.JobRunStateSucceeded:
		return StatusReport{Status: session.StatusSucceeded}, nil
	case gluetypes.JobRunStateStopped:
		return StatusReport{Status: session.StatusCancelled, Detail: detail}, nil
	case gluetypes.JobRunStateTimeout:
		// The platform enforced its own run timeout; distinct from
		// failure so the session resolves as timed out.
		return StatusReport{Status: session.StatusTimedOut, Detail: detail}, nil
	case gluetypes.JobRunStateFailed, gluetypes.JobRunStateError,
		gluetypes.JobRunStateExpired:
		return StatusReport{Status: session.StatusFailed, Detail: detail}, nil
	default:
		// A state this version does not know. Treat as still
		// running: the deadline bounds how long that can last.
		g.logger.Warn("unknown glue job run state",
			"run_id", handle.ID,
			"state", string(run.JobRunState),
		)
		return StatusReport{Status: session.StatusRunning}, nil
	}
}

// Cancel requests a stop of the run. Best effort by contract.
func (g *Glue) Cancel(ctx context.Context, handle Handle) error {
	_, err := g.client.BatchStopJobRun(ctx, &glue.BatchStopJobRunInput{
		JobName:   aws.String(handle.JobName),
		JobRunIds: []string{handle.ID},
	})
	if err != nil {
		return fmt.Errorf("stopping glue run %s: %w", handle.ID, err)
	}
	return nil
}
