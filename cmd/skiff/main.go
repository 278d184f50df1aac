// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/pflag"

	"github.com/skiff-run/skiff/channel"
	"github.com/skiff-run/skiff/config"
	"github.com/skiff-run/skiff/journal"
	"github.com/skiff-run/skiff/launcher"
	"github.com/skiff-run/skiff/lib/clock"
	"github.com/skiff-run/skiff/lib/version"
	"github.com/skiff-run/skiff/session"
	"github.com/skiff-run/skiff/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "run":
		return runRun(os.Args[2:])
	case "sessions":
		return runSessions(os.Args[2:])
	case "version":
		fmt.Printf("skiff %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: skiff <subcommand> [flags]

Subcommands:
  run         Launch a remote job and supervise it to completion
  sessions    List journaled sessions and their outcomes
  version     Print version information

Run 'skiff <subcommand> --help' for subcommand flags.
`)
}

// loadConfig resolves the config file from the --config flag value or
// the SKIFF_CONFIG environment variable.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openJournal opens the session journal, creating its parent
// directory. Journal trouble never blocks a run: callers treat a nil
// journal as "no bookkeeping".
func openJournal(cfg *config.Config, logger *slog.Logger) *journal.Journal {
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		logger.Warn("cannot create journal directory, continuing without journal",
			"path", cfg.Journal.Path, "error", err)
		return nil
	}
	j, err := journal.Open(cfg.Journal.Path, clock.Real(), logger)
	if err != nil {
		logger.Warn("cannot open journal, continuing without journal",
			"path", cfg.Journal.Path, "error", err)
		return nil
	}
	return j
}

func runRun(args []string) error {
	flags := pflag.NewFlagSet("run", pflag.ExitOnError)
	var (
		configPath    = flags.String("config", "", "path to skiff.yaml (overrides SKIFF_CONFIG)")
		platformName  = flags.String("platform", "glue", "execution platform: glue or lambda")
		jobName       = flags.String("job", "", "Glue job name or Lambda function name")
		transportName = flags.String("transport", "cloudwatch", "message transport for glue: cloudwatch or s3")
		logGroup      = flags.String("log-group", "/aws-glue/jobs/output", "CloudWatch log group for the cloudwatch transport")
		bucket        = flags.String("bucket", "", "S3 bucket for the s3 transport")
		prefix        = flags.String("prefix", "", "S3 key prefix for the s3 transport")
		jobArgs       = flags.StringToString("arg", nil, "Glue job argument as key=value (repeatable)")
		payloadPath   = flags.String("payload", "", "JSON file with Lambda payload fields")
		outputJSON    = flags.Bool("json", false, "print the outcome as JSON instead of a table")
		verbose       = flags.BoolP("verbose", "v", false, "enable debug logging")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *jobName == "" {
		return fmt.Errorf("--job is required")
	}

	logger := newLogger(*verbose)
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	if cfg.AWS.Profile != "" {
		awsOpts = append(awsOpts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	spec := launcher.JobSpec{
		JobName:   *jobName,
		Arguments: *jobArgs,
	}
	if *payloadPath != "" {
		data, err := os.ReadFile(*payloadPath)
		if err != nil {
			return fmt.Errorf("reading payload file: %w", err)
		}
		if err := json.Unmarshal(data, &spec.Payload); err != nil {
			return fmt.Errorf("parsing payload file %s: %w", *payloadPath, err)
		}
	}

	var (
		launch     launcher.Launcher
		chn        channel.Channel
		descriptor session.ChannelDescriptor
	)
	switch session.Platform(*platformName) {
	case session.PlatformGlue:
		launch = launcher.NewGlue(glue.NewFromConfig(awsCfg), logger)
		switch session.Transport(*transportName) {
		case session.TransportCloudWatch:
			chn = channel.NewCloudWatch(cloudwatchlogs.NewFromConfig(awsCfg))
			descriptor = session.ChannelDescriptor{
				Transport: session.TransportCloudWatch,
				LogGroup:  *logGroup,
			}
		case session.TransportS3:
			chn = channel.NewS3(s3.NewFromConfig(awsCfg))
			descriptor = session.ChannelDescriptor{
				Transport: session.TransportS3,
				Bucket:    *bucket,
				Prefix:    *prefix,
			}
		default:
			return fmt.Errorf("unknown transport %q for glue: want cloudwatch or s3", *transportName)
		}
	case session.PlatformLambda:
		lambdaLauncher := launcher.NewLambda(lambda.NewFromConfig(awsCfg), logger)
		launch = lambdaLauncher
		chn = lambdaLauncher.Channel()
		descriptor = session.ChannelDescriptor{Transport: session.TransportInline}
	default:
		return fmt.Errorf("unknown platform %q: want glue or lambda", *platformName)
	}

	pollInterval, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	maxDuration, err := cfg.MaxDuration()
	if err != nil {
		return err
	}

	supervisorCfg := supervisor.Config{
		Launcher:           launch,
		Channel:            chn,
		PollInterval:       pollInterval,
		MaxDuration:        maxDuration,
		FinalDrainAttempts: cfg.Supervisor.FinalDrainAttempts,
		TransientPollLimit: cfg.Supervisor.TransientPollLimit,
		Logger:             logger,
	}
	if j := openJournal(cfg, logger); j != nil {
		defer j.Close()
		supervisorCfg.Journal = j
	}

	sup, err := supervisor.New(supervisorCfg)
	if err != nil {
		return err
	}

	outcome := sup.Run(ctx, spec, descriptor)
	if err := printOutcome(outcome, *outputJSON); err != nil {
		return err
	}
	if outcome.Status != session.StatusSucceeded {
		return fmt.Errorf("session %s: %v", outcome.Status, outcome.Failure)
	}
	return nil
}

func printOutcome(outcome session.Outcome, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome)
	}

	fmt.Printf("status: %s\n", outcome.Status)
	if outcome.Failure != nil {
		fmt.Printf("failure: %v\n", outcome.Failure)
	}
	if len(outcome.Events) == 0 {
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SEQ\tKIND\tDETAIL")
	for _, event := range outcome.Events {
		fmt.Fprintf(writer, "%d\t%s\t%s\n", event.Seq, event.Kind, eventDetail(event))
	}
	return writer.Flush()
}

func eventDetail(event session.Event) string {
	switch event.Kind {
	case session.EventMaterialization:
		return event.AssetKey
	case session.EventLog:
		if event.Level != "" {
			return fmt.Sprintf("[%s] %s", event.Level, event.Text)
		}
		return event.Text
	case session.EventMetadata:
		return fmt.Sprintf("%d values", len(event.Metadata))
	default:
		return fmt.Sprintf("%d fields", len(event.Raw))
	}
}

func runSessions(args []string) error {
	flags := pflag.NewFlagSet("sessions", pflag.ExitOnError)
	var (
		configPath = flags.String("config", "", "path to skiff.yaml (overrides SKIFF_CONFIG)")
		limit      = flags.Int("limit", 20, "maximum sessions to list (0 = all)")
		outputJSON = flags.Bool("json", false, "output as JSON instead of a table")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	j, err := journal.Open(cfg.Journal.Path, clock.Real(), newLogger(false))
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()

	entries, err := j.List(context.Background(), *limit)
	if err != nil {
		return err
	}

	if *outputJSON {
		if entries == nil {
			entries = []journal.Entry{}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SESSION\tPLATFORM\tJOB\tSTATUS\tLAUNCHED\tEVENTS\tDETAIL")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			entry.SessionID,
			entry.Platform,
			entry.JobName,
			entry.Status,
			entry.LaunchedAt.Format(time.RFC3339),
			entry.EventCount,
			entry.FailureDetail,
		)
	}
	return writer.Flush()
}
