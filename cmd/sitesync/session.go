package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func sessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the content batch session",
		Long: `The batch session records which products already received generated content.
It lives in Redis when REDIS_ADDRESS is set, otherwise only for the life of the process.`,
	}
	cmd.AddCommand(sessionShowCmd(opts))
	cmd.AddCommand(sessionResetCmd(opts))
	cmd.AddCommand(sessionExportCmd(opts))
	return cmd
}

func sessionShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the batch session summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.Batch.Session(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if session == nil {
				fmt.Fprintln(out, "No batch session")
				return nil
			}
			if opts.asJSON {
				return writeJSON(out, session)
			}

			fmt.Fprintf(out, "Status:     %s\n", session.Status)
			fmt.Fprintf(out, "Started:    %s\n", session.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated:    %s\n", session.LastUpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Total:      %d\n", session.TotalItems)
			fmt.Fprintf(out, "Processed:  %d\n", len(session.ProcessedItemIDs))
			fmt.Fprintf(out, "Failed:     %d\n", len(session.FailedItemIDs))
			return nil
		},
	}
}

func sessionResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget every processed and failed product",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Batch.ResetSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Batch session reset")
			return nil
		},
	}
}

func sessionExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the batch session as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.Batch.ExportSession(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
