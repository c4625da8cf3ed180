package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterRunFlags(fs)
	RegisterOutputFlags(fs)
	RegisterLoggingFlags(fs)
	RegisterServerFlags(fs)
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkcheck.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.Options(), linkcheck.DefaultOptions(); got != want {
		t.Fatalf("expected default options %+v, got %+v", want, got)
	}
	if cfg.Browser.Renderer != RendererChrome || cfg.Output.Format != FormatPretty || !cfg.Output.Emoji {
		t.Fatalf("unexpected output/browser defaults: %+v %+v", cfg.Browser, cfg.Output)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Development {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Server.Port != 8080 || cfg.Server.RequestTimeout != 5*time.Minute ||
		cfg.Server.APIKey != "" || cfg.Server.HistorySize != 100 {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
same_page: false
off_site: false
concurrency: 12
bad_content: "Oops!"
cache_enabled: true
navigation:
  timeout: 45s
  wait_until: networkidle2
rate_limit:
  host_qps: 2.5
browser:
  renderer: static
  user_agent: linkcheck-bot/1.0
output:
  format: json
  emoji: false
logging:
  development: true
  level: debug
metrics:
  textfile: /tmp/linkcheck.prom
server:
  port: 9090
  request_timeout: 1m
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	opts := cfg.Options()
	if opts.SamePage || !opts.SameSite || opts.OffSite || !opts.CacheEnabled {
		t.Fatalf("expected category overrides to apply: %+v", opts)
	}
	if opts.Concurrency != 12 || opts.BadContent != "Oops!" || opts.HostQPS != 2.5 {
		t.Fatalf("expected run overrides to apply: %+v", opts)
	}
	if opts.Navigation.Timeout != 45*time.Second || opts.Navigation.WaitUntil != linkcheck.WaitNetworkIdle2 {
		t.Fatalf("expected navigation overrides to apply: %+v", opts.Navigation)
	}
	if cfg.Browser.Renderer != RendererStatic || cfg.Browser.UserAgent != "linkcheck-bot/1.0" {
		t.Fatalf("expected browser overrides: %+v", cfg.Browser)
	}
	if cfg.Output.Format != FormatJSON || cfg.Output.Emoji {
		t.Fatalf("expected output overrides: %+v", cfg.Output)
	}
	if cfg.Metrics.Textfile != "/tmp/linkcheck.prom" || cfg.Server.Port != 9090 || cfg.Server.RequestTimeout != time.Minute {
		t.Fatalf("expected metrics/server overrides: %+v %+v", cfg.Metrics, cfg.Server)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
concurrency: 12
output:
  format: json
navigation:
  wait_until: domcontentloaded
`)
	t.Setenv("LINKCHECK_CONCURRENCY", "20")
	t.Setenv("LINKCHECK_NAVIGATION_WAIT_UNTIL", "networkidle0")

	fs := newFlagSet()
	if err := fs.Parse([]string{"--concurrency=30", "--renderer=static"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 30 {
		t.Fatalf("expected flag to win, got concurrency %d", cfg.Concurrency)
	}
	if cfg.Navigation.WaitUntil != "networkidle0" {
		t.Fatalf("expected env to beat file, got %q", cfg.Navigation.WaitUntil)
	}
	if cfg.Output.Format != FormatJSON {
		t.Fatalf("expected unset flag not to override file, got %q", cfg.Output.Format)
	}
	if cfg.Browser.Renderer != RendererStatic {
		t.Fatalf("expected renderer flag to apply, got %q", cfg.Browser.Renderer)
	}
}

func TestLoadFlagTypes(t *testing.T) {
	t.Parallel()

	fs := newFlagSet()
	args := []string{
		"--timeout=3s", "--host-qps=0.5", "--same-page=false", "--dev", "--port=9999",
		"--api-key=k", "--history-size=0",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Navigation.Timeout != 3*time.Second || cfg.RateLimit.HostQPS != 0.5 {
		t.Fatalf("unexpected typed flag values: %+v %+v", cfg.Navigation, cfg.RateLimit)
	}
	if cfg.SamePage || !cfg.Logging.Development || cfg.Server.Port != 9999 {
		t.Fatalf("unexpected bool/int flag values: %+v", cfg)
	}
	if cfg.Server.APIKey != "k" || cfg.Server.HistorySize != 0 {
		t.Fatalf("unexpected server flag values: %+v", cfg.Server)
	}
}

func TestLoadRejectsInvalidConcurrency(t *testing.T) {
	t.Parallel()

	for _, n := range []string{"0", "101"} {
		fs := newFlagSet()
		if err := fs.Parse([]string{"--concurrency=" + n}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		_, err := Load("", fs)
		var cfgErr *linkcheck.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "concurrency" {
			t.Fatalf("concurrency %s: expected ConfigError, got %v", n, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "concurrency", mutate: func(c *Config) { c.Concurrency = 101 }, want: "concurrency"},
		{name: "timeout", mutate: func(c *Config) { c.Navigation.Timeout = 0 }, want: "navigation.timeout"},
		{name: "wait until", mutate: func(c *Config) { c.Navigation.WaitUntil = "never" }, want: "navigation.wait_until"},
		{name: "host qps", mutate: func(c *Config) { c.RateLimit.HostQPS = -1 }, want: "rate_limit.host_qps"},
		{name: "renderer", mutate: func(c *Config) { c.Browser.Renderer = "firefox" }, want: "browser.renderer"},
		{name: "format", mutate: func(c *Config) { c.Output.Format = "xml" }, want: "output.format"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "request timeout", mutate: func(c *Config) { c.Server.RequestTimeout = 0 }, want: "server.request_timeout"},
		{name: "history size", mutate: func(c *Config) { c.Server.HistorySize = -1 }, want: "server.history_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestOptionsNormalizesWaitUntil(t *testing.T) {
	t.Parallel()

	cfg := Config{Navigation: NavigationConfig{WaitUntil: "NetworkIdle0"}}
	if got := cfg.Options().Navigation.WaitUntil; got != linkcheck.WaitNetworkIdle0 {
		t.Fatalf("expected networkidle0, got %q", got)
	}
}
