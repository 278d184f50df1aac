// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skiff-run/skiff/channel"
	"github.com/skiff-run/skiff/launcher"
	"github.com/skiff-run/skiff/lib/clock"
	"github.com/skiff-run/skiff/session"
	"github.com/skiff-run/skiff/translate"
)

const (
	defaultPollInterval       = 5 * time.Second
	defaultFinalDrainAttempts = 3
	defaultTransientPollLimit = 5

	// Backoff after consecutive transient poll failures is expressed
	// in skipped poll ticks, doubling per failure up to this bound.
	maxBackoffTicks = 8
)

// Journal receives session lifecycle records. Optional: a nil Journal
// disables persistence. Journal failures are logged, never escalated —
// bookkeeping must not change a session's outcome.
type Journal interface {
	RecordLaunch(ctx context.Context, sess session.Session, jobName string, handleID string) error
	RecordOutcome(ctx context.Context, sessionID string, outcome session.Outcome) error
}

// Config assembles a Supervisor. Launcher and Channel are required;
// everything else has a production default.
type Config struct {
	Launcher launcher.Launcher
	Channel  channel.Channel

	// PollInterval is the cadence of both status polls and channel
	// drains. Defaults to 5s.
	PollInterval time.Duration

	// MaxDuration bounds the session wall-clock time from launch.
	// Zero means no deadline.
	MaxDuration time.Duration

	// FinalDrainAttempts is the number of channel polls issued after
	// the terminal status is known, to catch late-arriving records.
	// Defaults to 3.
	FinalDrainAttempts int

	// TransientPollLimit is the number of consecutive transient
	// status-poll failures tolerated before the session fails.
	// Defaults to 5.
	TransientPollLimit int

	Journal Journal
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Supervisor drives one remote job per Run call: launch, concurrent
// status polling and channel draining, terminal fold. Safe for
// concurrent Run calls.
type Supervisor struct {
	launcher           launcher.Launcher
	channel            channel.Channel
	pollInterval       time.Duration
	maxDuration        time.Duration
	finalDrainAttempts int
	transientPollLimit int
	journal            Journal
	clock              clock.Clock
	logger             *slog.Logger
}

// New validates cfg and returns a Supervisor.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Launcher == nil {
		return nil, fmt.Errorf("supervisor: Launcher is required")
	}
	if cfg.Channel == nil {
		return nil, fmt.Errorf("supervisor: Channel is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("supervisor: PollInterval must be positive, got %v", cfg.PollInterval)
	}
	if cfg.MaxDuration < 0 {
		return nil, fmt.Errorf("supervisor: MaxDuration must not be negative, got %v", cfg.MaxDuration)
	}
	if cfg.FinalDrainAttempts == 0 {
		cfg.FinalDrainAttempts = defaultFinalDrainAttempts
	}
	if cfg.TransientPollLimit == 0 {
		cfg.TransientPollLimit = defaultTransientPollLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Supervisor{
		launcher:           cfg.Launcher,
		channel:            cfg.Channel,
		pollInterval:       cfg.PollInterval,
		maxDuration:        cfg.MaxDuration,
		finalDrainAttempts: cfg.FinalDrainAttempts,
		transientPollLimit: cfg.TransientPollLimit,
		journal:            cfg.Journal,
		clock:              cfg.Clock,
		logger:             cfg.Logger.With("component", "supervisor"),
	}, nil
}

// Run executes one session to completion and always returns a terminal
// Outcome. Cancelling ctx requests remote termination and ends the
// session as cancelled; Run never abandons a job silently.
func (s *Supervisor) Run(ctx context.Context, spec launcher.JobSpec, descriptor session.ChannelDescriptor) session.Outcome {
	sess, err := session.New(s.launcher.Platform(), descriptor, s.clock)
	if err != nil {
		return s.configFailure(err)
	}
	logger := s.logger.With("session_id", sess.ID, "platform", sess.Platform, "job", spec.JobName)

	injected, err := session.Inject(sess)
	if err != nil {
		logger.Error("context injection failed", "error", err)
		return s.configFailure(err)
	}

	handle, err := s.launcher.Launch(ctx, spec, sess, injected)
	if err != nil {
		logger.Error("launch rejected", "error", err)
		return s.finish(ctx, sess, session.Outcome{
			Status:  session.StatusFailed,
			Failure: &session.Failure{Kind: session.FailureLaunch, Detail: launchDetail(err)},
		})
	}
	logger.Info("launched", "handle_id", handle.ID)
	if s.journal != nil {
		if err := s.journal.RecordLaunch(ctx, sess, spec.JobName, handle.ID); err != nil {
			logger.Warn("journal launch record failed", "error", err)
		}
	}

	status, failure, messages := s.supervise(ctx, logger, sess, handle)

	outcome := translate.Fold(status, messages, failure)
	logger.Info("session finished",
		"status", outcome.Status,
		"events", len(outcome.Events))
	return s.finish(ctx, sess, outcome)
}

// supervise runs the concurrent poll/drain phase and returns the
// terminal status, the failure (nil on success), and the decoded
// messages collected across the session including the final drain.
func (s *Supervisor) supervise(ctx context.Context, logger *slog.Logger, sess session.Session, handle launcher.Handle) (session.Status, *session.Failure, []session.Message) {
	chHandle, err := s.channel.Open(ctx, handle.Descriptor)
	if err != nil {
		// The job is already running; aborting now would strand it.
		// Supervise to a terminal status without the side-channel.
		logger.Warn("channel open failed, supervising without messages", "error", err)
		status, failure := s.pollUntilTerminal(ctx, logger, handle)
		return status, failure, nil
	}

	stopDrain := make(chan struct{})
	drained := make(chan []session.Message, 1)
	go s.drainLoop(ctx, logger, sess, chHandle, stopDrain, drained)

	status, failure := s.pollUntilTerminal(ctx, logger, handle)

	close(stopDrain)
	messages := <-drained
	if err := chHandle.Close(); err != nil {
		logger.Warn("channel close failed", "error", err)
	}
	return status, failure, messages
}

// pollUntilTerminal is the status loop: one poll per tick, transient
// failures retried with doubling tick-skip backoff, deadline and
// external cancellation ending the session with exactly one
// best-effort remote Cancel.
func (s *Supervisor) pollUntilTerminal(ctx context.Context, logger *slog.Logger, handle launcher.Handle) (session.Status, *session.Failure) {
	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.maxDuration > 0 {
		deadline = s.clock.After(s.maxDuration)
	}

	transientFailures := 0
	skipTicks := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("cancellation requested")
			s.cancelRemote(ctx, logger, handle)
			return session.StatusCancelled, &session.Failure{
				Kind:   session.FailureCancelled,
				Detail: "cancelled by caller",
			}

		case <-deadline:
			logger.Warn("session deadline exceeded", "max_duration", s.maxDuration)
			s.cancelRemote(ctx, logger, handle)
			return session.StatusTimedOut, &session.Failure{
				Kind:   session.FailureTimeout,
				Detail: fmt.Sprintf("exceeded maximum duration %v", s.maxDuration),
			}

		case <-ticker.C:
			if skipTicks > 0 {
				skipTicks--
				continue
			}
			report, err := s.launcher.PollStatus(ctx, handle)
			if err != nil {
				var pollErr *launcher.PollError
				if errors.As(err, &pollErr) && pollErr.Transient {
					transientFailures++
					if transientFailures >= s.transientPollLimit {
						logger.Error("status polling failed",
							"consecutive_failures", transientFailures, "error", err)
						return session.StatusFailed, &session.Failure{
							Kind:   session.FailurePoll,
							Detail: fmt.Sprintf("status polling failed after %d attempts: %v", transientFailures, err),
						}
					}
					skipTicks = backoffTicks(transientFailures)
					logger.Warn("status poll failed, retrying",
						"consecutive_failures", transientFailures,
						"backoff_ticks", skipTicks, "error", err)
					continue
				}
				logger.Error("status poll failed permanently", "error", err)
				return session.StatusFailed, &session.Failure{
					Kind:   session.FailurePoll,
					Detail: fmt.Sprintf("status polling failed: %v", err),
				}
			}
			transientFailures = 0

			if !report.Status.Terminal() {
				continue
			}
			logger.Info("remote job reached terminal status",
				"status", report.Status, "detail", report.Detail)
			switch report.Status {
			case session.StatusSucceeded:
				return session.StatusSucceeded, nil
			case session.StatusCancelled:
				return session.StatusCancelled, &session.Failure{
					Kind:   session.FailureCancelled,
					Detail: "stopped on the remote platform",
				}
			case session.StatusTimedOut:
				return session.StatusTimedOut, &session.Failure{
					Kind:   session.FailureTimeout,
					Detail: remoteDetail(report, "timed out on the remote platform"),
				}
			default:
				return session.StatusFailed, &session.Failure{
					Kind:   session.FailureRemote,
					Detail: remoteDetail(report, "remote execution failed"),
				}
			}
		}
	}
}

// drainLoop polls the channel once per tick and decodes what arrives.
// On stop it performs the bounded final drain for records that landed
// after the terminal status, then delivers everything on out.
func (s *Supervisor) drainLoop(ctx context.Context, logger *slog.Logger, sess session.Session, h channel.Handle, stop <-chan struct{}, out chan<- []session.Message) {
	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	decoder := channel.NewDecoder(sess.ID, logger)
	var messages []session.Message
	poll := func(pollCtx context.Context) {
		records, err := h.Poll(pollCtx)
		// Transports return the records they read before a mid-poll
		// failure, with their cursor already advanced past them.
		// Decode first: handling the error alone would drop records
		// the channel will never redeliver.
		for _, record := range records {
			if message, ok := decoder.Decode(record); ok {
				messages = append(messages, message)
			}
		}
		if err != nil {
			logger.Warn("channel poll failed", "error", err)
		}
	}

	for {
		select {
		case <-stop:
			// The caller's context may already be cancelled; the
			// final drain still runs so late records are not lost.
			finalCtx := context.WithoutCancel(ctx)
			for i := 0; i < s.finalDrainAttempts; i++ {
				poll(finalCtx)
			}
			if failures := decoder.DecodeFailures(); failures > 0 {
				logger.Warn("records failed to decode during session", "count", failures)
			}
			out <- messages
			return
		case <-ticker.C:
			poll(ctx)
		}
	}
}

// cancelRemote issues the single best-effort termination request. Its
// failure is logged and never changes the outcome.
func (s *Supervisor) cancelRemote(ctx context.Context, logger *slog.Logger, handle launcher.Handle) {
	// ctx may already be done; the cancel request must still go out.
	if err := s.launcher.Cancel(context.WithoutCancel(ctx), handle); err != nil {
		logger.Warn("remote cancel failed", "error", err)
	}
}

// finish records the outcome and releases per-session launcher state.
func (s *Supervisor) finish(ctx context.Context, sess session.Session, outcome session.Outcome) session.Outcome {
	if s.journal != nil {
		if err := s.journal.RecordOutcome(context.WithoutCancel(ctx), sess.ID, outcome); err != nil {
			s.logger.Warn("journal outcome record failed", "session_id", sess.ID, "error", err)
		}
	}
	if forgetter, ok := s.launcher.(interface{ Forget(string) }); ok {
		forgetter.Forget(sess.ID)
	}
	return outcome
}

func (s *Supervisor) configFailure(err error) session.Outcome {
	return session.Outcome{
		Status:  session.StatusFailed,
		Failure: &session.Failure{Kind: session.FailureConfig, Detail: err.Error()},
	}
}

func launchDetail(err error) string {
	var launchErr *launcher.LaunchError
	if errors.As(err, &launchErr) {
		return launchErr.Detail
	}
	return err.Error()
}

func remoteDetail(report launcher.StatusReport, fallback string) string {
	if report.Detail != "" {
		return report.Detail
	}
	return fallback
}

func backoffTicks(failures int) int {
	ticks := 1 << (failures - 1)
	if ticks > maxBackoffTicks {
		return maxBackoffTicks
	}
	return ticks
}
