// Package config loads and validates linkcheck configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// EnvPrefix prefixes every environment override, e.g. LINKCHECK_CONCURRENCY.
const EnvPrefix = "LINKCHECK"

// Renderer names.
const (
	RendererChrome = "chrome"
	RendererStatic = "static"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	SamePage     bool             `mapstructure:"same_page"`
	SameSite     bool             `mapstructure:"same_site"`
	OffSite      bool             `mapstructure:"off_site"`
	Fragments    bool             `mapstructure:"fragments"`
	CacheEnabled bool             `mapstructure:"cache_enabled"`
	Concurrency  int              `mapstructure:"concurrency"`
	BadContent   string           `mapstructure:"bad_content"`
	Navigation   NavigationConfig `mapstructure:"navigation"`
	RateLimit    RateLimitConfig  `mapstructure:"rate_limit"`
	Browser      BrowserConfig    `mapstructure:"browser"`
	Output       OutputConfig     `mapstructure:"output"`
	Logging      LoggingConfig    `mapstructure:"logging"`
	Metrics      MetricsConfig    `mapstructure:"metrics"`
	Server       ServerConfig     `mapstructure:"server"`
}

// NavigationConfig bounds every page load.
type NavigationConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	WaitUntil string        `mapstructure:"wait_until"`
}

// RateLimitConfig throttles navigations per host.
type RateLimitConfig struct {
	HostQPS float64 `mapstructure:"host_qps"`
}

// BrowserConfig selects and tunes the rendering backend.
type BrowserConfig struct {
	Renderer  string `mapstructure:"renderer"`
	UserAgent string `mapstructure:"user_agent"`
	ExecPath  string `mapstructure:"exec_path"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Emoji  bool   `mapstructure:"emoji"`
}

// LoggingConfig toggles zap development features and verbosity.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the post-run metrics dump.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// APIKey, when set, is required in X-API-Key or ?api_key on /v1 routes.
	APIKey string `mapstructure:"api_key"`
	// HistorySize bounds the number of finished runs kept for /v1/runs.
	HistorySize int `mapstructure:"history_size"`
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"same-page":       "same_page",
	"same-site":       "same_site",
	"off-site":        "off_site",
	"fragments":       "fragments",
	"cache":           "cache_enabled",
	"concurrency":     "concurrency",
	"bad-content":     "bad_content",
	"timeout":         "navigation.timeout",
	"wait-until":      "navigation.wait_until",
	"host-qps":        "rate_limit.host_qps",
	"renderer":        "browser.renderer",
	"user-agent":      "browser.user_agent",
	"chrome-path":     "browser.exec_path",
	"no-sandbox":      "browser.no_sandbox",
	"format":          "output.format",
	"emoji":           "output.emoji",
	"metrics-file":    "metrics.textfile",
	"log-level":       "logging.level",
	"dev":             "logging.development",
	"port":            "server.port",
	"request-timeout": "server.request_timeout",
	"api-key":         "server.api_key",
	"history-size":    "server.history_size",
}

// Load builds a Config from defaults, an optional file, LINKCHECK_* environment
// variables and any flags in flags that were set explicitly, in increasing
// order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := linkcheck.DefaultOptions()
	v.SetDefault("same_page", defaults.SamePage)
	v.SetDefault("same_site", defaults.SameSite)
	v.SetDefault("off_site", defaults.OffSite)
	v.SetDefault("fragments", defaults.Fragments)
	v.SetDefault("cache_enabled", defaults.CacheEnabled)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("bad_content", "")
	v.SetDefault("navigation.timeout", defaults.Navigation.Timeout)
	v.SetDefault("navigation.wait_until", string(defaults.Navigation.WaitUntil))
	v.SetDefault("rate_limit.host_qps", 0.0)
	v.SetDefault("browser.renderer", RendererChrome)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("output.format", FormatPretty)
	v.SetDefault("output.emoji", true)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.history_size", 100)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.Options().Validate(); err != nil {
		return err
	}
	switch c.Browser.Renderer {
	case RendererChrome, RendererStatic:
	default:
		return fmt.Errorf("browser.renderer must be %q or %q, got %q", RendererChrome, RendererStatic, c.Browser.Renderer)
	}
	switch c.Output.Format {
	case FormatPretty, FormatJSON:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatPretty, FormatJSON, c.Output.Format)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Server.HistorySize < 0 {
		return fmt.Errorf("server.history_size must be >= 0, got %d", c.Server.HistorySize)
	}
	return nil
}

// Options converts the run-related settings into a linkcheck.Options snapshot.
func (c Config) Options() linkcheck.Options {
	return linkcheck.Options{
		SamePage:     c.SamePage,
		SameSite:     c.SameSite,
		OffSite:      c.OffSite,
		Fragments:    c.Fragments,
		CacheEnabled: c.CacheEnabled,
		Concurrency:  c.Concurrency,
		BadContent:   c.BadContent,
		Navigation: linkcheck.NavigationOptions{
			Timeout:   c.Navigation.Timeout,
			WaitUntil: linkcheck.WaitUntil(strings.ToLower(c.Navigation.WaitUntil)),
		},
		HostQPS: c.RateLimit.HostQPS,
	}
}

// RegisterRunFlags adds the flags that shape a run to fs. Defaults mirror
// setDefaults; unset flags never override file or environment values.
func RegisterRunFlags(fs *pflag.FlagSet) {
	defaults := linkcheck.DefaultOptions()
	fs.Bool("same-page", defaults.SamePage, "check same-page fragment links")
	fs.Bool("same-site", defaults.SameSite, "check links to the same host")
	fs.Bool("off-site", defaults.OffSite, "check links to other hosts")
	fs.Bool("fragments", defaults.Fragments, "verify #fragments on linked pages")
	fs.Bool("cache", defaults.CacheEnabled, "enable the browser cache during the run")
	fs.Int("concurrency", defaults.Concurrency, "links validated in parallel (1-100)")
	fs.String("bad-content", "", "treat pages containing this text as failed")
	fs.Duration("timeout", defaults.Navigation.Timeout, "navigation timeout")
	fs.String("wait-until", string(defaults.Navigation.WaitUntil),
		"load condition: load, domcontentloaded, networkidle0, networkidle2")
	fs.Float64("host-qps", 0, "max navigations per second per host (0 = unlimited)")
	fs.String("renderer", RendererChrome, "rendering backend: chrome or static")
	fs.String("user-agent", "", "override the browser user agent")
	fs.String("chrome-path", "", "path to the Chrome executable")
	fs.Bool("no-sandbox", false, "disable the Chrome sandbox")
}

// RegisterOutputFlags adds the flags that shape printed results.
func RegisterOutputFlags(fs *pflag.FlagSet) {
	fs.String("format", FormatPretty, "output format: pretty or json")
	fs.Bool("emoji", true, "use emoji verdict markers in pretty output")
	fs.String("metrics-file", "", "write Prometheus metrics to this file after the run")
}

// RegisterLoggingFlags adds logging flags.
func RegisterLoggingFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "warn", "log level: debug, info, warn, error")
	fs.Bool("dev", false, "human-readable development logging")
}

// RegisterServerFlags adds the flags of the serve command.
func RegisterServerFlags(fs *pflag.FlagSet) {
	fs.Int("port", 8080, "HTTP listen port")
	fs.Duration("request-timeout", 5*time.Minute, "upper bound for a single check request")
	fs.String("api-key", "", "require this key on /v1 routes")
	fs.Int("history-size", 100, "number of finished runs kept for /v1/runs (0 disables)")
}
