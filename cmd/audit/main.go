// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Command audit runs course audits once from the command line.
//
//	audit 101 102 103                 batch run, results printed as JSON
//	audit -standalone 101,102         one line per course
//	COURSE_IDS="101 102" audit        ids from the environment
//
// Configuration is read the same way as the server (.env, config.yaml,
// environment). The exit status is 1 when the batch fails or any
// standalone course fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/bootstrap"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
)

const courseIDsEnv = "COURSE_IDS"

func main() {
	var standalone bool
	var interval time.Duration
	flag.BoolVar(&standalone, "standalone", false, "audit each course synchronously instead of as a batch")
	flag.DurationVar(&interval, "interval", time.Second, "progress poll interval for batch runs")
	flag.Parse()

	ids, err := collectIDs(flag.Args(), os.Getenv(courseIDsEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "course ids: %v\n", err)
		os.Exit(2)
	}

	bootstrap.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console", Output: os.Stderr})

	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	var ok bool
	if standalone {
		ok, err = runStandalone(ctx, engine.Orchestrator, ids, os.Stdout)
	} else {
		ok, err = runBatch(ctx, engine.Orchestrator, ids, interval, os.Stdout)
	}
	stop()

	if closeErr := engine.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// collectIDs parses ids from the arguments, falling back to the environment
// value when no arguments are given.
func collectIDs(args []string, env string) ([]int64, error) {
	raw := strings.Join(args, " ")
	if strings.TrimSpace(raw) == "" {
		raw = env
	}
	return batch.ParseCourseIDs(raw)
}

// runner is the subset of *batch.Orchestrator the CLI drives.
type runner interface {
	Pool() *batch.Pool
	Submit(ctx context.Context, courseIDs []int64) (*models.AuditBatch, error)
	Progress(ctx context.Context, id string) (models.Progress, error)
	Results(ctx context.Context, id string) ([]*models.CourseAuditResult, error)
	RunMany(ctx context.Context, courseIDs []int64) ([]batch.RunOutcome, error)
}

func runStandalone(ctx context.Context, o runner, ids []int64, out io.Writer) (bool, error) {
	outcomes, err := o.RunMany(ctx, ids)
	if err != nil {
		return false, err
	}
	ok := true
	for _, oc := range outcomes {
		fmt.Fprintln(out, formatOutcome(oc))
		if oc.Err != nil {
			ok = false
		}
	}
	return ok, nil
}

func formatOutcome(oc batch.RunOutcome) string {
	if oc.Err != nil {
		return fmt.Sprintf("course %d: error: %v", oc.CourseID, oc.Err)
	}
	r := oc.Result
	return fmt.Sprintf("course %d: ok students=%d pages=%d quizzes=%d/%d assignments=%d discussions=%d engagement quiz=%.0f%% assignment=%.0f%% discussion=%.0f%%",
		r.CourseID, r.ActiveStudents, r.PublishedPages, r.ClassicQuizzes, r.NewQuizzes,
		r.OtherAssignments, r.Discussions,
		r.QuizEngagement*100, r.AssignmentEngagement*100, r.DiscussionEngagement*100)
}

// runBatch runs the pool in-process, submits one batch and polls it until
// it is terminal.
func runBatch(ctx context.Context, o runner, ids []int64, interval time.Duration, out io.Writer) (bool, error) {
	poolCtx, cancelPool := context.WithCancel(context.Background())
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		_ = o.Pool().Serve(poolCtx)
	}()
	defer func() {
		cancelPool()
		<-poolDone
	}()

	b, err := o.Submit(ctx, ids)
	if err != nil {
		return false, err
	}
	logging.Info().Str("batch_id", b.ID).Int("total", b.TotalJobs).Msg("batch submitted")

	p, err := waitTerminal(ctx, o, b.ID, interval, cancelPool)
	if err != nil {
		return false, err
	}

	results, err := o.Results(context.Background(), b.ID)
	if err != nil {
		return false, err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{"progress": p, "results": results}); err != nil {
		return false, err
	}
	return p.Status == models.BatchStatusFinished, nil
}

// waitTerminal polls progress. When ctx is cancelled the pool is stopped so
// the remaining courses settle as failed, and polling continues until the
// batch is terminal.
func waitTerminal(ctx context.Context, o runner, id string, interval time.Duration, stopPool context.CancelFunc) (models.Progress, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		p, err := o.Progress(context.Background(), id)
		if err != nil {
			return models.Progress{}, err
		}
		if p.Status.IsTerminal() {
			return p, nil
		}
		logging.Info().Int("processed", p.Processed).Int("total", p.Total).Int("percent", p.Percent).Msg("progress")

		select {
		case <-done:
			logging.Warn().Msg("interrupted, stopping workers")
			stopPool()
			done = nil
		case <-ticker.C:
		}
	}
}
