package cli

import (
	"context"

	"github.com/hnguyen160596/fnsync/pkg/publish"
	"github.com/hnguyen160596/fnsync/pkg/syncer"
	"github.com/hnguyen160596/fnsync/pkg/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var publishFlag bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync, then sync again whenever the source changes",
		Example: `  fnsync watch
  fnsync watch --publish --bucket dev-artifacts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if publishFlag {
				opts.config.Watch.Publish = true
			}

			var publisher *publish.Publisher
			if opts.config.Watch.Publish {
				p, err := newPublisher(ctx, opts)
				if err != nil {
					return err
				}
				publisher = p
			}

			// The first sync is fatal like a one-shot run; later ones only log.
			s, report, err := syncOnce(ctx, opts)
			if err != nil {
				return err
			}
			printSyncReport(report)
			if publisher != nil {
				if _, err := publisher.Publish(ctx, s.Paths().DestRoot); err != nil {
					return err
				}
			}

			w, err := watch.New(s.Paths().SourceRoot, opts.config.Watch.Debounce, func(ctx context.Context, events []watch.Event) {
				resync(ctx, opts, s, publisher, events)
			})
			if err != nil {
				return err
			}
			w.SetLogger(opts.logger)

			if !IsJSONOutput() {
				PrintInfof("Watching %s %s", CodeStyle.Render(s.Paths().SourceRoot), DimStyle.Render("(Ctrl+C to stop)"))
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&publishFlag, "publish", false, "Publish after every successful sync")
	return cmd
}

func resync(ctx context.Context, opts *rootOptions, s *syncer.Synchronizer, publisher *publish.Publisher, events []watch.Event) {
	opts.logger.Info().Int("changes", len(events)).Msg("source changed, syncing")

	report, err := s.Run(ctx)
	if err != nil {
		opts.logger.Error().Err(err).Msg("sync failed")
		if !IsJSONOutput() {
			PrintFormattedError("Sync failed, waiting for the next change", err)
		}
		return
	}
	finishTrace(s)
	printSyncReport(report)

	if publisher == nil {
		return
	}
	if _, err := publisher.Publish(ctx, s.Paths().DestRoot); err != nil {
		opts.logger.Error().Err(err).Msg("publish failed")
		if !IsJSONOutput() {
			PrintFormattedError("Publish failed, waiting for the next change", err)
		}
	}
}
