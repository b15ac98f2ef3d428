package cli

import (
	"github.com/hnguyen160596/fnsync/pkg/bundle"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/spf13/cobra"
)

func newBundleCmd(opts *rootOptions) *cobra.Command {
	var output string
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Sync, then pack the destination into a gzip tarball",
		Example: `  fnsync bundle
  fnsync bundle --output dist/functions.tar.gz
  fnsync bundle --skip-sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var destRoot string
			var syncReport *types.SyncReport
			if skipSync {
				s, err := opts.newSynchronizer()
				if err != nil {
					return err
				}
				destRoot = s.Paths().DestRoot
			} else {
				s, report, err := syncOnce(ctx, opts)
				if err != nil {
					return err
				}
				destRoot = s.Paths().DestRoot
				syncReport = report
			}

			if output == "" {
				output = opts.config.Bundle.Output
			}
			cwd, err := opts.workingDir()
			if err != nil {
				return err
			}
			dest := resolveAgainst(cwd, output)

			opts.logger.Info().Str("src", destRoot).Str("dst", dest).Msg("writing bundle")
			report, err := bundle.WriteTarballFile(ctx, destRoot, dest)
			if err != nil {
				return err
			}

			if PrintJSON(map[string]interface{}{"sync": syncReport, "bundle": report}) {
				return nil
			}
			if syncReport != nil {
				printSyncReport(syncReport)
			}
			PrintSuccess("Bundle written")
			PrintKeyValue("Path", report.Path)
			PrintKeyValue("Contents", Plural(report.Files, "file")+", "+FormatBytes(report.Bytes))
			PrintNewline()
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Tarball path (default from bundle.output)")
	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "Bundle the destination as it is without syncing first")
	return cmd
}
