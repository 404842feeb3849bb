package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
)

func batchCmd(opts *rootOptions) *cobra.Command {
	var (
		style string
		ids   []int64
	)

	cmd := &cobra.Command{
		Use:   "batch [site-id]",
		Short: "Generate content for products that have no description",
		Long: `Generate SEO content for every product of the site without a description and
write it back to WooCommerce, in rate limited batches. Products recorded in the
batch session are skipped. Interrupting the command cancels the run.`,
		Args: cobra.MaximumNArgs(1),
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
			if err := a.Sites.SetActive(siteID); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			products, err := a.Fetcher.ListProductsNeedingContent(ctx, siteID)
			if err != nil {
				return err
			}
			items := make([]batch.Item, 0, len(products))
			wanted := make(map[int64]bool, len(ids))
			for _, id := range ids {
				wanted[id] = true
			}
			for _, p := range products {
				if len(wanted) > 0 && !wanted[p.ID] {
					continue
				}
				items = append(items, batch.Item{
					ID:          p.ID,
					Name:        p.Name,
					SKU:         p.SKU,
					Description: p.ShortDescription,
					Categories:  p.CategoryNames(),
				})
			}

			out := cmd.OutOrStdout()
			unsubscribe := a.Batch.Subscribe(printEvent(out))
			defer unsubscribe()

			if err := a.Batch.Start(ctx, items, style); err != nil {
				return err
			}

			done := make(chan struct{})
			go func() {
				a.Batch.Wait()
				close(done)
			}()

		wait:
			for {
				select {
				case <-done:
					break wait
				case p := <-a.Batch.Updates():
					opts.logger.WithFields(logrus.Fields{
						"completed": p.Completed,
						"failed":    p.Failed,
						"remaining": p.Remaining,
					}).Debug("Batch progress")
				case <-ctx.Done():
					if err := a.Batch.Cancel(); err == nil {
						<-done
					}
					break wait
				}
			}

			progress := a.Batch.GetProgress()
			if opts.asJSON {
				return writeJSON(out, progress)
			}
			fmt.Fprintf(out, "Completed %d, failed %d, remaining %d\n", progress.Completed, progress.Failed, progress.Remaining)
			return nil
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "professional", "Writing style passed to the generator")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "Only process these product ids")

	return cmd
}

func printEvent(w io.Writer) batch.EventHandler {
	return func(e batch.Event) {
		switch d := e.Data.(type) {
		case batch.BatchStarted:
			fmt.Fprintf(w, "Batch %d/%d: %d products\n", d.CurrentBatch, d.TotalBatches, d.ItemCount)
		case batch.ItemCompleted:
			fmt.Fprintf(w, "  done   #%d\n", d.ItemID)
		case batch.ItemFailed:
			fmt.Fprintf(w, "  failed #%d: %s\n", d.ItemID, d.Error)
		case batch.WaitingNextBatch:
			fmt.Fprintf(w, "Waiting %s before batch %d\n", d.Delay, d.NextBatch)
		case batch.AllBatchesCompleted:
			fmt.Fprintf(w, "All batches completed: %d done, %d failed\n", d.Completed, d.Failed)
		case batch.BatchCompleted:
			if d.AllAlreadyProcessed {
				fmt.Fprintln(w, "Every product was already processed")
			}
		}
	}
}
