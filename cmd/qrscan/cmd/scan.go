package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/pipeline"
	"github.com/MeKo-Tech/qrscan/internal/report"
	"github.com/MeKo-Tech/qrscan/internal/utils"
	"github.com/spf13/cobra"
)

func runScan(cmd *cobra.Command, cfg *config.Config, args []string) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	rep := report.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Output.Language, format)

	path := resolveImagePath(args, cfg.Scan.DefaultImage, rep)
	if !utils.FileExists(path) {
		rep.FileNotFound(path)
		return nil
	}

	var metrics *pipeline.Metrics
	if cfg.Metrics.File != "" {
		metrics = pipeline.NewMetrics()
	}

	scanner, err := pipeline.NewBuilder().
		WithConfig(cfg.ToPipelineConfig()).
		WithOptions(pipeline.WithDiagnostics(rep), pipeline.WithMetrics(metrics)).
		Build()
	if err != nil {
		return err
	}

	res, scanErr := scanner.Scan(cmd.Context(), path)

	if metrics != nil {
		if err := metrics.WriteFile(cfg.Metrics.File); err != nil {
			slog.Warn("Failed to write metrics file", "file", cfg.Metrics.File, "error", err)
		}
	}
	if scanErr != nil {
		return fmt.Errorf("scan %s: %w", path, scanErr)
	}

	rep.Result(report.Outcome{
		Payloads: res.Payloads,
		Strategy: res.Strategy,
		Trail:    res.Trail,
		Duration: res.Duration,
	})
	return nil
}

// resolveImagePath picks the argument when it exists, otherwise the default.
func resolveImagePath(args []string, defaultImage string, rep *report.Reporter) string {
	if len(args) == 0 || args[0] == "" {
		return defaultImage
	}
	if utils.FileExists(args[0]) {
		return args[0]
	}
	rep.Diagnostic(report.CodeArgNoExists, args[0])
	return defaultImage
}
