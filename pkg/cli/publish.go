package cli

import (
	"context"

	"github.com/hnguyen160596/fnsync/pkg/clients"
	"github.com/hnguyen160596/fnsync/pkg/publish"
	"github.com/spf13/cobra"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var bucket, prefix, endpoint string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Sync, then upload the destination to S3-compatible storage",
		Example: `  fnsync publish --bucket my-artifacts --prefix functions/main
  fnsync publish --endpoint http://localhost:9000 --bucket local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if bucket != "" {
				opts.config.Publish.Bucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				opts.config.Publish.Prefix = prefix
			}
			if endpoint != "" {
				opts.config.Publish.EndpointUrl = endpoint
			}

			publisher, err := newPublisher(ctx, opts)
			if err != nil {
				return err
			}

			s, syncReport, err := syncOnce(ctx, opts)
			if err != nil {
				return err
			}

			report, err := publisher.Publish(ctx, s.Paths().DestRoot)
			if err != nil {
				return err
			}

			if PrintJSON(map[string]interface{}{"sync": syncReport, "publish": report}) {
				return nil
			}
			printSyncReport(syncReport)
			PrintSuccessWithValue("Published", FormatDuration(report.Duration))
			PrintKeyValue("Bucket", report.Bucket)
			PrintKeyValue("Prefix", report.Prefix)
			PrintKeyValue("Uploaded", Plural(report.Uploaded, "file")+", "+FormatBytes(report.Bytes))
			PrintNewline()
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket name (default from publish.bucket)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from publish.prefix)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Custom S3 endpoint URL")
	return cmd
}

func newPublisher(ctx context.Context, opts *rootOptions) (*publish.Publisher, error) {
	opts.logger.Debug().Interface("publish", opts.config.Publish.Redact()).Msg("publish config")

	storage, err := clients.NewStorageClient(ctx, opts.config.Publish)
	if err != nil {
		return nil, err
	}
	publisher, err := publish.NewPublisher(storage, opts.config.Publish)
	if err != nil {
		return nil, err
	}
	publisher.SetLogger(opts.logger)
	return publisher, nil
}
