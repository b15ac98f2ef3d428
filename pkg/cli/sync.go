package cli

import (
	"context"

	"github.com/hnguyen160596/fnsync/pkg/syncer"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy functions and utils into the destination once",
		Example: `  fnsync sync
  fnsync sync --source api/functions --dest build/functions
  fnsync sync --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}
}

func runSync(ctx context.Context, opts *rootOptions) error {
	s, err := opts.newSynchronizer()
	if err != nil {
		return err
	}

	report, err := s.Run(ctx)
	if err != nil {
		return err
	}
	finishTrace(s)

	printSyncReport(report)
	return nil
}

// syncOnce runs a sync without printing; used by commands that sync first
func syncOnce(ctx context.Context, opts *rootOptions) (*syncer.Synchronizer, *types.SyncReport, error) {
	s, err := opts.newSynchronizer()
	if err != nil {
		return nil, nil, err
	}
	report, err := s.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	finishTrace(s)
	return s, report, nil
}

func finishTrace(s *syncer.Synchronizer) {
	if t := s.Trace(); t != nil {
		t.Log()
		t.Reset()
	}
}

func printSyncReport(report *types.SyncReport) {
	if PrintJSON(report) {
		return
	}

	PrintNewline()
	PrintSuccessWithValue("Functions synced", FormatDuration(report.Duration))
	PrintKeyValue("Source", report.SourceRoot)
	PrintKeyValue("Destination", report.DestRoot)
	PrintKeyValue("Copied", Plural(report.Files, "file")+", "+FormatBytes(report.Bytes))
	if report.Symlinks > 0 {
		PrintKeyValue("Links", Plural(report.Symlinks, "symlink"))
	}
	if report.UtilsCopied {
		PrintKeyValue("Utils", "copied")
	} else {
		PrintKeyValue("Utils", DimStyle.Render("none"))
	}
	PrintNewline()
}
