package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finboard/internal/core"
	"finboard/internal/services"
	"finboard/internal/sheets"
	"finboard/internal/state"
	"finboard/internal/storage"
	"finboard/internal/worker"
)

// Env is what a finboardctl command runs against.
type Env struct {
	Ledger   *services.LedgerService
	Exporter func(ctx context.Context) (sheets.ReportExporter, error)
	Close    func() error
	Now      func() time.Time
}

// Opener builds an Env. It is called once per command invocation.
type Opener func(ctx context.Context) (*Env, error)

type rootOptions struct {
	open    Opener
	profile string
}

// NewRootCommand creates the finboardctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}

	rootCmd := &cobra.Command{
		Use:   "finboardctl",
		Short: "Inspect and maintain finboard ledgers",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", storage.DefaultProfile, "profile to operate on")

	rootCmd.AddCommand(
		newSummaryCommand(opts),
		newReportCommand(opts),
		newWindowCommand(opts),
		newNetWorthCommand(opts),
		newImportCommand(opts),
		newDumpCommand(opts),
		newApplyCommand(opts),
		newForecastCommand(opts),
		newRecurringCommand(opts),
		newExportCommand(opts),
	)
	return rootCmd
}

// withEnv opens an Env, runs fn and closes the Env.
func (o *rootOptions) withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := o.open(ctx)
	if err != nil {
		return err
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	runErr := fn(ctx, env)
	if env.Close != nil {
		if err := env.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSummaryCommand(o *rootOptions) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard overview of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				var (
					ov  core.MonthOverview
					err error
				)
				switch {
				case year == 0 && month == 0:
					ov, err = env.Ledger.CurrentSummary(ctx, o.profile)
				case year == 0 || month == 0:
					return fmt.Errorf("--year and --month must be given together")
				default:
					ov, err = env.Ledger.Summary(ctx, o.profile, year, month)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ov)
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}

func newReportCommand(o *rootOptions) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the twelve monthly rollups of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if year == 0 {
					year = env.Now().In(env.Ledger.Location()).Year()
				}
				report, err := env.Ledger.Report(ctx, o.profile, year)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	return cmd
}

func newWindowCommand(o *rootOptions) *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print income and spending for the trailing months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if months < 1 {
				return fmt.Errorf("--months must be at least 1")
			}
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				window, err := env.Ledger.Window(ctx, o.profile, months)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), window)
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 3, "number of months ending with the current one")
	return cmd
}

func newNetWorthCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "networth",
		Short: "Print current net worth and its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				view, err := env.Ledger.NetWorth(ctx, o.profile)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newImportCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Replace the profile's data with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}
			var snap core.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("decoding snapshot: %w", err)
			}
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				saved, err := env.Ledger.Replace(ctx, o.profile, snap)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s into profile %q at version %d\n",
					args[0], o.profile, saved.Version)
				return nil
			})
		},
	}
}

func newDumpCommand(o *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the profile's snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				snap, err := env.Ledger.Snapshot(ctx, o.profile)
				if err != nil {
					return err
				}
				if out == "" {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				var buf bytes.Buffer
				if err := printJSON(&buf, snap); err != nil {
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o600); err != nil {
					return fmt.Errorf("writing snapshot: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newApplyCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <actions.json>",
		Short: "Apply one action envelope or an array of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading actions: %w", err)
			}
			actions, err := parseActions(data)
			if err != nil {
				return err
			}
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				snap, err := env.Ledger.Apply(ctx, o.profile, actions...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d actions, profile %q now at version %d\n",
					len(actions), o.profile, snap.Version)
				return nil
			})
		},
	}
}

func parseActions(data []byte) ([]state.Action, error) {
	data = bytes.TrimSpace(data)
	var envs []state.Envelope
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &envs); err != nil {
			return nil, fmt.Errorf("decoding actions: %w", err)
		}
	} else {
		var env state.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decoding action: %w", err)
		}
		envs = []state.Envelope{env}
	}
	if len(envs) == 0 {
		return nil, fmt.Errorf("no actions in file")
	}

	actions := make([]state.Action, 0, len(envs))
	for i, env := range envs {
		a, err := env.Action()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func newForecastCommand(o *rootOptions) *cobra.Command {
	var list int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Compute next month's savings forecast, or list stored ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if list > 0 {
					recs, err := env.Ledger.Forecasts(ctx, o.profile, list)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), recs)
				}
				rec, err := env.Ledger.Forecast(ctx, o.profile)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}

	cmd.Flags().IntVar(&list, "list", 0, "list the N most recent forecasts instead of computing one")
	return cmd
}

func newRecurringCommand(o *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Copy last month's recurring entries into the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				processor := services.NewRecurringProcessor(env.Ledger)
				var (
					n   int
					err error
				)
				if all {
					n, err = processor.ProcessAll(ctx)
				} else {
					n, err = processor.ProcessProfile(ctx, o.profile)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d recurring entries\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "process every profile")
	return cmd
}

func newExportCommand(o *rootOptions) *cobra.Command {
	var (
		all         bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Publish the current month's rollup to the report spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withEnv(cmd, func(ctx context.Context, env *Env) error {
				if env.Exporter == nil {
					return fmt.Errorf("no exporter configured")
				}
				exporter, err := env.Exporter(ctx)
				if err != nil {
					return err
				}
				w := worker.NewReportWorker(env.Ledger, exporter, concurrency, nil)
				if all {
					err = w.ExportAll(ctx)
				} else {
					err = w.ExportProfile(ctx, o.profile)
				}
				stats := w.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d, failed %d\n", stats.Exported, stats.Failed)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "export every profile")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "profiles exported in parallel")
	return cmd
}
