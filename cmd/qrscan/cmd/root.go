package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries per-invocation state shared by the root and its subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance, so
// repeated in-process executions do not share flag or config state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "qrscan [image]",
		Short: "Extract QR code payloads from an image",
		Long: `qrscan decodes the QR code in a photo or scan, trying several
preprocessing strategies (enhancement, upscaling, bottom crop, adaptive
threshold) in four rotations before falling back to a second decoder.

Payloads are printed one per line on stdout. Diagnostics such as
TRIED_METHODS go to stderr.

Examples:
  qrscan receipt.jpg
  qrscan --lang en --format json ticket.png
  QRSCAN_SCAN_TIMEOUT=5s qrscan`,
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.GitCommit, version.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "init", "version":
				return nil
			}
			cfg, err := a.loadConfig(cmd.Name() == "show")
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, a.cfg, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/qrscan, /etc/qrscan)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	rootFlags := rootCmd.Flags()
	rootFlags.String("lang", "es", "language of the fixed messages (es, en)")
	rootFlags.Duration("timeout", 0, "time budget for the primary decoding sweep (0 = unlimited)")
	rootFlags.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	rootFlags.String("format", "text", "output format (text, json)")

	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("output.language", rootFlags.Lookup("lang"))
	_ = a.v.BindPFlag("scan.timeout", rootFlags.Lookup("timeout"))
	_ = a.v.BindPFlag("metrics.file", rootFlags.Lookup("metrics-file"))
	_ = a.v.BindPFlag("output.format", rootFlags.Lookup("format"))

	rootCmd.AddCommand(newConfigCommand(a), newVersionCommand())
	return rootCmd
}

// Execute runs the root command. main exits non-zero on a returned error.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads file, env and flags. Validation is skipped for `config show`.
func (a *app) loadConfig(skipValidation bool) (*config.Config, error) {
	loader := config.NewLoaderWithViper(a.v)
	var (
		cfg *config.Config
		err error
	)
	if skipValidation {
		cfg, err = loader.LoadWithFileWithoutValidation(a.cfgFile)
	} else {
		cfg, err = loader.LoadWithFile(a.cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging installs a slog handler on stderr. stdout stays reserved for
// results.
func setupLogging(cfg *config.Config, w io.Writer) {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
