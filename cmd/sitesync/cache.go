package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

func cacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local cache",
	}
	cmd.AddCommand(cacheSizeCmd(opts))
	cmd.AddCommand(cacheStatusCmd(opts))
	cmd.AddCommand(cacheLogsCmd(opts))
	return cmd
}

func cacheSizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Estimate the number of cached items and their size",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			size, err := a.Store.CacheSizeEstimate(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), size)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Items: %d\nSize:  %s\n", size.TotalItems, humanize.IBytes(uint64(size.SizeEstimate)))
			return nil
		},
	}
}

func cacheStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [site-id]",
		Short: "Show the sync state of every data type of a site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			siteID, err := resolveSite(args, a.Sites.Active())
			if err != nil {
				return err
			}
			status, err := a.Syncer.Status(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), status)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tSTATUS\tSYNCED\tTOTAL\tLAST SYNC\tERROR")
			for _, m := range status {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", m.DataType, m.Status, m.SyncedCount, m.TotalCount, lastSync(m), m.Error)
			}
			return w.Flush()
		},
	}
}

func lastSync(m *models.SyncMetadata) string {
	if m.LastSync == nil {
		return "never"
	}
	return humanize.Time(*m.LastSync)
}

func cacheLogsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs [site-id]",
		Short: "List the latest sync runs of a site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			siteID, err := resolveSite(args, a.Sites.Active())
			if err != nil {
				return err
			}
			logs, err := a.Store.ListSyncLogs(cmd.Context(), siteID, limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), logs)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tDURATION\tTYPES\tITEMS\tSTATUS\tERROR")
			for _, l := range logs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					l.StartTime.Format(time.RFC3339), l.EndTime.Sub(l.StartTime).Round(time.Millisecond),
					l.DataType, l.ItemsSynced, l.Status, l.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of logs")
	return cmd
}
