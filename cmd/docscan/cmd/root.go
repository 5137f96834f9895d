package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// viperKeyAnnotation marks a command flag with the config key it overrides.
const viperKeyAnnotation = "docscan/viper-key"

// app is the state shared by one command tree: its viper instance and the
// configuration resolved before a command runs.
type app struct {
	v       *viper.Viper
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCommand builds a fresh docscan command tree with its own
// configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "docscan",
		Short: "Document scanner with corner editing and page rectification",
		Long: `docscan turns a photo of a document into a flat, cropped page.

It estimates the four page corners, lets you adjust them, maps the
quadrilateral onto an upright rectangle and optionally applies a display
filter or reads the text of the result.

Examples:
  docscan estimate photo.jpg
  docscan rectify photo.jpg --corners "40,30;600,25;610,820;35,830" -o page.png
  docscan filter page.png --kind bw -o page_bw.png
  docscan serve --port 8080`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return err
			}
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/docscan, /etc/docscan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("format", "text", "output format (text, json, yaml)")
	pf.Bool("version", false, "print version information and exit")

	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("output.format", pf.Lookup("format"))

	root.AddCommand(
		newEstimateCommand(a),
		newRectifyCommand(a),
		newFilterCommand(a),
		newOCRCommand(a),
		newExportCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// bindFlag makes flag override the config key when it is set.
func bindFlag(cmd *cobra.Command, flag, key string) {
	_ = cmd.Flags().SetAnnotation(flag, viperKeyAnnotation, []string{key})
}

// setup binds the running command's flags, resolves the configuration and
// installs the JSON logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[viperKeyAnnotation]; len(keys) == 1 {
			_ = a.v.BindPFlag(keys[0], f)
		}
	})

	a.loader = config.NewLoaderWithViper(a.v)
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(a.logger)
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
