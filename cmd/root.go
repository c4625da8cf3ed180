// Package cmd defines and implements the CLI commands for the linkcheck
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/browser/chrome"
	"github.com/JakeFAU/linkcheck/internal/browser/static"
	"github.com/JakeFAU/linkcheck/internal/config"
	"github.com/JakeFAU/linkcheck/internal/linkcheck"
	"github.com/JakeFAU/linkcheck/internal/logging"
)

// deps are the process-level services commands build on. Tests replace them.
type deps struct {
	newLauncher func(cfg config.Config, logger *zap.Logger) (linkcheck.Launcher, error)
	newLogger   func(cfg config.Config) (*zap.Logger, error)
}

func defaultDeps() deps {
	return deps{
		newLauncher: newLauncher,
		newLogger: func(cfg config.Config) (*zap.Logger, error) {
			return logging.New(cfg.Logging.Development, cfg.Logging.Level)
		},
	}
}

// newLauncher picks the rendering backend named by browser.renderer.
func newLauncher(cfg config.Config, logger *zap.Logger) (linkcheck.Launcher, error) {
	switch cfg.Browser.Renderer {
	case config.RendererChrome:
		return chrome.NewLauncher(chrome.Config{
			ExecPath:  cfg.Browser.ExecPath,
			UserAgent: cfg.Browser.UserAgent,
			NoSandbox: cfg.Browser.NoSandbox,
		}, logger.Named("chrome")), nil
	case config.RendererStatic:
		return static.NewLauncher(static.Config{UserAgent: cfg.Browser.UserAgent}, logger.Named("static")), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Browser.Renderer)
	}
}

// newRootCmd creates the root command, which checks the links of one page.
func newRootCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkcheck [flags] <url>",
		Short: "Check every link on a web page",
		Long: `linkcheck loads a page in a headless browser, extracts its links and
checks each distinct one: same-page fragments against the page itself, other
links by navigating to them. Results stream as they complete.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], d)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	config.RegisterRunFlags(cmd.PersistentFlags())
	config.RegisterLoggingFlags(cmd.PersistentFlags())
	config.RegisterOutputFlags(cmd.Flags())

	cmd.AddCommand(newServeCmd(d))
	return cmd
}

// loadConfig reads the config file named by --config and overlays the flags
// that were set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("read --config: %w", err)
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM
// cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(defaultDeps()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "linkcheck:", err)
		os.Exit(1)
	}
}
