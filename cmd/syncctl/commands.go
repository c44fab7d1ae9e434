package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"curiosity-sync/internal/bootstrap"
	"curiosity-sync/internal/queue"
)

type appBuilder func(ctx context.Context) (*bootstrap.App, error)

func newRootCmd(build appBuilder) *cobra.Command {
	root := &cobra.Command{
		Use:           "syncctl",
		Short:         "Operate the Airtable to document store sync jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newJobsCmd(build), newRunCmd(build), newEnqueueCmd(build))
	return root
}

func newJobsCmd(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List configured jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTABLE\tVIEW\tAUTH\tMAX")
			for _, job := range app.Jobs.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n", job.Name, job.Table, job.View, job.RequireAuth, job.MaxRecords)
			}
			return w.Flush()
		},
	}
}

func newRunCmd(build appBuilder) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <job> [job...]",
		Short: "Run jobs in-process and print each result as JSON",
		Long: `Runs the named jobs one after another against the configured
document store. Authentication is not checked; the exit status is non-zero
when any run fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			app, err := build(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			failed := 0
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, name := range args {
				job, ok := app.Jobs.Lookup(name)
				if !ok {
					return fmt.Errorf("unknown job %q (see syncctl jobs)", name)
				}
				res := app.Runner.Run(ctx, job)
				out := res.Payload()
				out["job"] = job.Name
				out["runId"] = res.RunID
				if err := enc.Encode(out); err != nil {
					return err
				}
				if !res.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for all runs (0 = none)")
	return cmd
}

func newEnqueueCmd(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <job>",
		Short: "Send a run request to the worker queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Queue == nil {
				return errors.New("SYNC_SQS_QUEUE_URL is not set")
			}
			job, ok := app.Jobs.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown job %q (see syncctl jobs)", args[0])
			}
			msg := queue.NewMessage(job.Name, time.Now())
			if err := app.Queue.Send(cmd.Context(), msg); err != nil {
				return err
			}
			cmd.Printf("enqueued %s request_id=%s\n", msg.Job, msg.RequestID)
			return nil
		},
	}
}
