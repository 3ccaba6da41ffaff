package cli

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dapur-erp/dapur-erp/internal/app"
)

// ExitError carries a non-zero exit code out of a command.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Dialer opens a JobsCLI against the configured Redis.
type Dialer func(cfg *app.Config) (*JobsCLI, error)

// DefaultDialer connects to cfg.RedisAddr.
func DefaultDialer(cfg *app.Config) (*JobsCLI, error) {
	return DialJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}), nil
}

// Actions are the long-running entry points the root command dispatches to.
type Actions struct {
	// Serve runs the HTTP API and is the default action.
	Serve func(ctx context.Context) error
	// Migrate applies pending schema migrations and reports how many ran.
	Migrate func(ctx context.Context) (int, error)
	// ResyncSequences raises the document number counters to the numbers
	// already stored and reports how many counters it touched.
	ResyncSequences func(ctx context.Context) (int, error)
}

// NewRootCommand builds the dapur command tree.
func NewRootCommand(actions Actions, dial Dialer) *cobra.Command {
	serve := actions.Serve
	root := &cobra.Command{
		Use:           "dapur",
		Short:         "Dapur procurement workflow engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actions.Migrate == nil {
				return fmt.Errorf("migrate: not available")
			}
			n, err := actions.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})
	sequences := &cobra.Command{
		Use:   "sequences",
		Short: "Maintain document number counters",
	}
	sequences.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Raise redis counters to the highest stored document numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actions.ResyncSequences == nil {
				return fmt.Errorf("sequences resync: not available")
			}
			n, err := actions.ResyncSequences(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d counter(s)\n", n)
			return nil
		},
	})
	root.AddCommand(sequences)
	root.AddCommand(newJobsCommand(dial))
	return root
}

func newJobsCommand(dial Dialer) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}

	var statsOpts StatsOptions
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth of the default queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(dial, func(c *JobsCLI) int {
				statsOpts.Stdout, statsOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
				return c.StatsCommand(cmd.Context(), statsOpts)
			})
		},
	}
	stats.Flags().BoolVar(&statsOpts.JSONOutput, "json", false, "print JSON instead of text")
	stats.Flags().IntVar(&statsOpts.Scheduled, "scheduled", 0, "also list up to N scheduled tasks")

	var sweepOpts SweepOptions
	sweep := &cobra.Command{
		Use:   "overdue-sweep",
		Short: "Queue an immediate overdue invoice sweep",
		Example: `  dapur jobs overdue-sweep
  dapur jobs overdue-sweep --as-of 2026-10-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(dial, func(c *JobsCLI) int {
				sweepOpts.Stdout, sweepOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
				return c.OverdueSweepCommand(cmd.Context(), sweepOpts)
			})
		},
	}
	sweep.Flags().StringVar(&sweepOpts.AsOf, "as-of", "", "reference date YYYY-MM-DD (default: now)")

	jobsCmd.AddCommand(stats, sweep)
	return jobsCmd
}

func withJobsCLI(dial Dialer, run func(*JobsCLI) int) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	c, err := dial(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	if code := run(c); code != 0 {
		return ExitError{Code: code}
	}
	return nil
}
