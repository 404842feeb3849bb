package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/syncer"
)

func sitesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the configured sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.Sites.List()
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL\tACTIVE")
			for _, s := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", s.ID, s.Name, s.URL, s.Active)
			}
			return w.Flush()
		},
	}
}

// resolveSite parses the optional site argument, defaulting to the active site
func resolveSite(args []string, active *models.Site) (int64, error) {
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid site id %q", args[0])
		}
		return id, nil
	}
	if active == nil {
		return 0, fmt.Errorf("no site given and no active site configured")
	}
	return active.ID, nil
}

func syncCmd(opts *rootOptions) *cobra.Command {
	var (
		types []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "sync [site-id]",
		Short: "Sync a site into the local cache",
		Long: `Fetch every requested data type of a site and write it to the local cache.
Data types synced less than their max age ago are skipped unless --force is given.
Interrupting the command cancels the sync between chunks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataTypes, err := models.ParseEntityTypes(types)
			if err != nil {
				return err
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			siteID, err := resolveSite(args, a.Sites.Active())
			if err != nil {
				return err
			}
			if _, err := a.Sites.Get(siteID); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			result, err := a.Syncer.SyncAll(ctx, siteID, syncer.Options{
				DataTypes:     dataTypes,
				ForceFullSync: force,
				OnProgress: func(p models.SyncProgress) {
					if !opts.asJSON {
						fmt.Fprintf(out, "[%5.1f%%] %-10s %s\n", p.Percentage, p.CurrentType, p.Message)
					}
				},
			})
			if err != nil {
				return err
			}

			if opts.asJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Synced %d items (%d types synced, %d skipped)\n",
				result.ItemsSynced, len(result.Synced), len(result.Skipped))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "types", "t", nil, "Data types to sync (default all)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Clear the cached data before fetching")

	return cmd
}
