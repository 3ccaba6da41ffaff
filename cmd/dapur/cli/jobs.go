package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dapur-erp/dapur-erp/jobs"
)

// QueueInspector reads queue state.
type QueueInspector interface {
	Stats() (jobs.QueueStats, error)
	Scheduled(size int) ([]*asynq.TaskInfo, error)
}

// SweepEnqueuer queues an overdue sweep.
type SweepEnqueuer interface {
	EnqueueOverdueSweep(ctx context.Context, asOf *time.Time) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	inspector QueueInspector
	enqueuer  SweepEnqueuer
	closers   []io.Closer
}

// NewJobsCLI builds a JobsCLI from explicit collaborators.
func NewJobsCLI(inspector QueueInspector, enqueuer SweepEnqueuer) (*JobsCLI, error) {
	if inspector == nil || enqueuer == nil {
		return nil, errors.New("jobs cli: inspector and enqueuer are required")
	}
	return &JobsCLI{inspector: inspector, enqueuer: enqueuer}, nil
}

// DialJobsCLI connects the helpers to the Redis instance behind the queue.
func DialJobsCLI(redisOpts asynq.RedisClientOpt) *JobsCLI {
	inspector := asynq.NewInspector(redisOpts)
	client := jobs.NewClient(redisOpts)
	return &JobsCLI{
		inspector: asynqInspector{inspector: inspector},
		enqueuer:  client,
		closers:   []io.Closer{inspector, client},
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closer := range c.closers {
		if closeErr := closer.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// StatsOptions defines flags for the jobs stats command.
type StatsOptions struct {
	Scheduled  int
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatsSummary describes the JSON output of jobs stats.
type StatsSummary struct {
	Queue     jobs.QueueStats `json:"queue"`
	Scheduled []ScheduledTask `json:"scheduled,omitempty"`
}

// ScheduledTask is a scheduled task entry.
type ScheduledTask struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	NextRunAt time.Time `json:"next_run_at"`
}

// StatsCommand prints the queue state and returns the exit code.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts StatsOptions) int {
	opts.Stdout, opts.Stderr = defaultWriters(opts.Stdout, opts.Stderr)
	stats, err := c.inspector.Stats()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	summary := StatsSummary{Queue: stats}
	if opts.Scheduled > 0 {
		infos, err := c.inspector.Scheduled(opts.Scheduled)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: list scheduled: %v\n", err)
			return 1
		}
		for _, info := range infos {
			summary.Scheduled = append(summary.Scheduled, ScheduledTask{ID: info.ID, Type: info.Type, NextRunAt: info.NextProcessAt})
		}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	q := summary.Queue
	_, _ = fmt.Fprintf(opts.Stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		q.Queue, q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived)
	for _, st := range summary.Scheduled {
		_, _ = fmt.Fprintf(opts.Stdout, "  %s %s at %s\n", st.Type, st.ID, st.NextRunAt.Format(time.RFC3339))
	}
	return 0
}

// SweepOptions defines flags for the jobs overdue-sweep command.
type SweepOptions struct {
	AsOf   string
	Stdout io.Writer
	Stderr io.Writer
}

// OverdueSweepCommand queues an overdue sweep and returns the exit code.
func (c *JobsCLI) OverdueSweepCommand(ctx context.Context, opts SweepOptions) int {
	opts.Stdout, opts.Stderr = defaultWriters(opts.Stdout, opts.Stderr)
	var asOf *time.Time
	if raw := strings.TrimSpace(opts.AsOf); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs overdue-sweep: invalid --as-of %q (expected YYYY-MM-DD)\n", opts.AsOf)
			return 1
		}
		asOf = &parsed
	}
	info, err := c.enqueuer.EnqueueOverdueSweep(ctx, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs overdue-sweep: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

func defaultWriters(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

type asynqInspector struct {
	inspector *asynq.Inspector
}

func (a asynqInspector) Stats() (jobs.QueueStats, error) {
	return jobs.InspectQueue(a.inspector)
}

func (a asynqInspector) Scheduled(size int) ([]*asynq.TaskInfo, error) {
	return a.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
