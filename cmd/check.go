package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
	"github.com/JakeFAU/linkcheck/internal/metrics"
	"github.com/JakeFAU/linkcheck/internal/report"
)

func runCheck(cmd *cobra.Command, target string, d deps) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := d.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Metrics.Textfile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); werr != nil {
				err = errors.Join(err, werr)
			}
		}()
	}

	launcher, err := d.newLauncher(cfg, logger)
	if err != nil {
		return err
	}
	out, err := report.New(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.Emoji)
	if err != nil {
		return err
	}

	checker := linkcheck.NewChecker(launcher,
		linkcheck.WithLogger(logger.Named("checker")),
		linkcheck.WithRecorder(recorder),
	)
	for entry, runErr := range checker.Check(cmd.Context(), target, cfg.Options()) {
		if runErr != nil {
			return runErr
		}
		if werr := out.Write(entry); werr != nil {
			return werr
		}
	}
	if err := out.Finish(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	logger.Debug("check command finished", zap.String("url", target))
	return nil
}
