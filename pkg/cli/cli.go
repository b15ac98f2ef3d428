package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/hnguyen160596/fnsync/pkg/common"
	"github.com/hnguyen160596/fnsync/pkg/syncer"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Build information (injected at compile time via ldflags)
var (
	Version = "dev"
	Commit  = "none"
)

// Custom help template with styled output
var helpTemplate = `{{with .Long}}{{. | trim}}

{{end}}{{if .HasAvailableSubCommands}}` + `{{.CommandPath}}` + ` ` + `<command>` + `

{{end}}{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if .IsAvailableCommand}}  {{rpad .Name .NamePadding }}  {{.Short}}
{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}
`

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	cwd        string
	sourceDir  string
	destDir    string
	utilsName  string
	jsonOutput bool
	trace      bool

	config types.AppConfig
	logger zerolog.Logger
}

// NewRootCommand builds the fnsync command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "fnsync",
		Short: "Copy serverless functions into the build output",
		Long: lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Render("fnsync") + ` - Copy serverless functions into the build output

Mirrors the functions source directory into the dist directory. The utils
subdirectory is left out of the bulk copy and copied on its own afterwards.
Running with no command performs a sync.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			SetOutput(cmd.OutOrStdout())
			SetJSONOutput(opts.jsonOutput)
			return opts.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	rootCmd.SetHelpTemplate(helpTemplate)
	rootCmd.SetVersionTemplate(fmt.Sprintf("  %s version %s (%s)\n", BrandStyle.Render("fnsync"), Version, Commit))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (YAML or JSON), layered over $"+common.ConfigPathEnvVar)
	flags.StringVarP(&opts.cwd, "cwd", "C", "", "Run as if started in this directory")
	flags.StringVar(&opts.sourceDir, "source", common.GetEnv("FNSYNC_SOURCE", ""), "Functions source directory (default netlify/functions)")
	flags.StringVar(&opts.destDir, "dest", common.GetEnv("FNSYNC_DEST", ""), "Destination directory (default dist/netlify/functions)")
	flags.StringVar(&opts.utilsName, "utils", "", "Name of the subdirectory copied separately (default utils)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVar(&opts.trace, "trace", false, "Trace every filesystem call and print a summary")

	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newBundleCmd(opts))
	rootCmd.AddCommand(newPublishCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if PrintJSON(map[string]string{"version": Version, "commit": Commit}) {
				return
			}
			fmt.Fprintf(out, "  %s version %s (%s)\n", BrandStyle.Render("fnsync"), Version, Commit)
		},
	})

	return rootCmd
}

// Run executes the CLI with args and returns the process exit status:
// 0 on success, 1 on any failure.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	SetOutput(stdout)
	SetJSONOutput(false)
	// Replaced once config loads; covers failures before that point.
	log.Logger = zerolog.New(stderr).With().Timestamp().Logger()

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("fnsync failed")
		if !IsJSONOutput() {
			PrintFormattedError("fnsync failed", err)
		} else {
			PrintJSON(map[string]string{"error": err.Error()})
		}
		return 1
	}
	return 0
}

// load merges config file, environment and flags, then configures logging
func (o *rootOptions) load(logOut io.Writer) error {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return err
	}
	if o.configPath != "" {
		if err := configManager.LoadFile(o.resolve(o.configPath)); err != nil {
			return err
		}
	}

	cfg, err := configManager.Unmarshal()
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if o.sourceDir != "" {
		cfg.Sync.SourceDir = o.sourceDir
	}
	if o.destDir != "" {
		cfg.Sync.DestDir = o.destDir
	}
	if o.utilsName != "" {
		cfg.Sync.UtilsName = o.utilsName
	}
	if o.trace {
		cfg.Trace = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.config = cfg
	o.logger = setupLogging(cfg, logOut)
	return nil
}

func setupLogging(cfg types.AppConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.DebugMode {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.PrettyLogs {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w)})
	}
	logger = logger.Level(level)

	log.Logger = logger
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// resolve makes p absolute against --cwd
func (o *rootOptions) resolve(p string) string {
	if filepath.IsAbs(p) || o.cwd == "" {
		return p
	}
	return filepath.Join(o.cwd, p)
}

func (o *rootOptions) workingDir() (string, error) {
	if o.cwd == "" {
		return os.Getwd()
	}
	return filepath.Abs(o.cwd)
}

// newSynchronizer resolves the configured paths and wires logging and tracing
func (o *rootOptions) newSynchronizer() (*syncer.Synchronizer, error) {
	cwd, err := o.workingDir()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	paths, err := syncer.ResolvePaths(cwd, o.config.Sync)
	if err != nil {
		return nil, err
	}

	syncOpts := []syncer.Option{syncer.WithLogger(o.logger)}
	if o.config.Trace {
		syncOpts = append(syncOpts, syncer.WithTrace(syncer.NewTrace(syncer.SlowThresholdFromEnv(), o.logger)))
	} else if t := syncer.NewTraceFromEnv(o.logger); t != nil {
		syncOpts = append(syncOpts, syncer.WithTrace(t))
	}

	return syncer.New(paths, syncOpts...), nil
}
