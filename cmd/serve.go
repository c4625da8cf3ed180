package cmd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/api"
	"github.com/JakeFAU/linkcheck/internal/config"
	"github.com/JakeFAU/linkcheck/internal/linkcheck"
	"github.com/JakeFAU/linkcheck/internal/metrics"
)

func newServeCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve link checks over HTTP",
		Long: `serve starts an HTTP server whose /v1/check endpoint streams the
results of a check as newline-delimited JSON. Run flags set the defaults that
query parameters override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, d)
		},
	}
	config.RegisterServerFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, d deps) error {
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
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	launcher, err := d.newLauncher(cfg, logger)
	if err != nil {
		return err
	}
	checker := linkcheck.NewChecker(launcher,
		linkcheck.WithLogger(logger.Named("checker")),
		linkcheck.WithRecorder(recorder),
	)
	server := api.NewServer(checker, cfg, recorder, reg, logger.Named("api"))

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Server.Port))
	logger.Info("starting linkcheck server",
		zap.String("addr", addr),
		zap.String("renderer", cfg.Browser.Renderer),
	)
	if err := server.Run(cmd.Context(), addr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
