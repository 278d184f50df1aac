// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/skiff-run/skiff/channel"
	"github.com/skiff-run/skiff/session"
)

// LambdaAPI is the slice of the Lambda client the launcher uses.
// *lambda.Client satisfies it; tests substitute a fake.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Lambda launches synchronous AWS Lambda invocations. Unlike a job
// run, the single Invoke call IS the execution: when it returns, the
// terminal status is known and the channel records arrive embedded in
// the response payload (the PayloadMessagesField contract). Launch
// therefore parks the records in an inline channel and memoizes the
// terminal status, so the supervisor's drain/poll loop runs
// unmodified — it just terminates on its first status poll.
type Lambda struct {
	client LambdaAPI
	logger *slog.Logger
	inline *channel.Inline

	mu      sync.Mutex
	results map[string]StatusReport // session id → terminal report
}

// NewLambda creates a Lambda launcher over the given client. If
// logger is nil, slog.Default() is used.
func NewLambda(client LambdaAPI, logger *slog.Logger) *Lambda {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lambda{
		client:  client,
		logger:  logger,
		inline:  channel.NewInline(),
		results: make(map[string]StatusReport),
	}
}

func (l *Lambda) Platform() session.Platform { return session.PlatformLambda }

// Channel returns the inline channel that carries this launcher's
// response-embedded records. Wire it as the supervisor's channel for
// Lambda sessions.
func (l *Lambda) Channel() channel.Channel { return l.inline }

// lambdaResponse is the slice of the function's response payload the
// bridge understands. Everything else in the payload belongs to the
// caller's domain and is ignored here.
type lambdaResponse struct {
	Messages []json.RawMessage `json:"__skiff_messages"`
}

// lambdaError is the shape Lambda gives a function error payload.
type lambdaError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// Launch invokes the function with the context blob and digest merged
// into the payload as reserved fields.
func (l *Lambda) Launch(ctx context.Context, spec JobSpec, sess session.Session, injected session.Injected) (Handle, error) {
	if spec.JobName == "" {
		return Handle{}, &LaunchError{Platform: l.Platform(), Detail: "job spec has no function name"}
	}

	payload := make(map[string]any, len(spec.Payload)+2)
	for key, value := range spec.Payload {
		payload[key] = value
	}
	payload[session.PayloadContextField] = injected.Blob
	payload[session.PayloadContextDigestField] = injected.Digest

	body, err := json.Marshal(payload)
	if err != nil {
		return Handle{}, &LaunchError{Platform: l.Platform(), Detail: "encoding invocation payload", Cause: err}
	}

	output, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(spec.JobName),
		Payload:      body,
	})
	if err != nil {
		return Handle{}, &LaunchError{Platform: l.Platform(), Detail: fmt.Sprintf("invoking %q", spec.JobName), Cause: err}
	}

	report := StatusReport{Status: session.StatusSucceeded}
	if output.FunctionError != nil {
		report.Status = session.StatusFailed
		report.Detail = *output.FunctionError
		var funcErr lambdaError
		if json.Unmarshal(output.Payload, &funcErr) == nil && funcErr.ErrorMessage != "" {
			report.Detail = fmt.Sprintf("%s: %s", funcErr.ErrorType, funcErr.ErrorMessage)
		}
	} else {
		// Successful responses may carry embedded channel records.
		var response lambdaResponse
		if err := json.Unmarshal(output.Payload, &response); err != nil {
			l.logger.Debug("lambda response payload is not an object; no embedded messages",
				"session_id", sess.ID,
			)
		}
		records := make([]channel.Record, 0, len(response.Messages))
		for _, raw := range response.Messages {
			records = append(records, channel.Record{Data: raw})
		}
		if len(records) > 0 {
			l.inline.Append(sess.ID, records...)
		}
	}

	l.mu.Lock()
	l.results[sess.ID] = report
	l.mu.Unlock()

	l.logger.Info("lambda invocation completed",
		"session_id", sess.ID,
		"function", spec.JobName,
		"status", string(report.Status),
	)

	return Handle{
		Platform: l.Platform(),
		ID:       sess.ID,
		JobName:  spec.JobName,
		Descriptor: session.ChannelDescriptor{
			Transport: session.TransportInline,
			InlineKey: sess.ID,
		},
	}, nil
}

// PollStatus returns the memoized terminal report from the
// synchronous invocation.
func (l *Lambda) PollStatus(ctx context.Context, handle Handle) (StatusReport, error) {
	l.mu.Lock()
	report, ok := l.results[handle.ID]
	l.mu.Unlock()
	if !ok {
		return StatusReport{}, &PollError{Transient: false, Cause: fmt.Errorf("no invocation result for session %s", handle.ID)}
	}
	return report, nil
}

// Cancel is a no-op: the synchronous invocation has already returned
// by the time any caller could ask for cancellation.
func (l *Lambda) Cancel(ctx context.Context, handle Handle) error {
	l.logger.Debug("cancel is a no-op for synchronous lambda invocations",
		"session_id", handle.ID,
	)
	return nil
}

// Forget releases the memoized result for a session. The supervisor
// calls it on terminal outcome so long-lived launchers do not
// accumulate per-session state.
func (l *Lambda) Forget(sessionID string) {
	l.mu.Lock()
	delete(l.results, sessionID)
	l.mu.Unlock()
}
