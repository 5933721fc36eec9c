// Package config builds the immutable runtime configuration from environment
// variables, overridden by command-line flags.
package config

import (
	"flag"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/pkg/errors"
)

// --- Default Constants ---
const (
	defaultGateway     = "bitcoin-cli"
	defaultBanSeconds  = 604800
	defaultPollSeconds = 3
	defaultLogLevel    = "info"
)

// Config is built once at startup and never modified.
type Config struct {
	GatewayPath  string // bitcoin-cli compatible executable
	GatewayArgs  string // forwarded verbatim before the method name
	RPCHost      string // when set, JSON-RPC is used instead of GatewayPath
	RPCUser      string
	RPCPass      string
	BanSeconds   int
	PollSeconds  int
	RunOnce      bool
	PreviewMode  bool
	LogLevel     string
	PrintVersion bool
}

// BanDuration returns the ban length as a duration.
func (c Config) BanDuration() time.Duration {
	return time.Duration(c.BanSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// UseRPC reports whether the JSON-RPC gateway is selected.
func (c Config) UseRPC() bool {
	return c.RPCHost != ""
}

// RunMode names the configured run mode.
func (c Config) RunMode() string {
	if c.RunOnce {
		return "single-pass"
	}
	return "continuous"
}

// Validate ensures config fields follow reasonable constraints.
func (c Config) Validate() error {
	if !c.UseRPC() && strings.TrimSpace(c.GatewayPath) == "" {
		return errors.New("gateway executable is required")
	}
	if c.BanSeconds <= 0 {
		return errors.Errorf("ban time must be positive, got %d", c.BanSeconds)
	}
	if c.PollSeconds <= 0 {
		return errors.Errorf("poll interval must be positive, got %d", c.PollSeconds)
	}
	if _, ok := slog.LevelFromString(c.LogLevel); !ok {
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// FromEnv reads the configuration from environment variables.
func FromEnv() Config {
	return Config{
		GatewayPath: getEnv("BITCOIN_CLI", defaultGateway),
		GatewayArgs: getEnvRaw("BITCOIN_CLI_ARGS", ""),
		RPCHost:     getEnv("RPC_HOST", ""),
		RPCUser:     getEnv("RPC_USER", ""),
		RPCPass:     getEnv("RPC_PASS", ""),
		BanSeconds:  getEnvInt("BAN_TIME", defaultBanSeconds),
		PollSeconds: getEnvInt("POLL_INTERVAL", defaultPollSeconds),
		RunOnce:     getEnvBool("RUN_ONCE", false),
		PreviewMode: getEnvBool("PREVIEW_MODE", false),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
	}
}

// Load reads the environment, then applies command-line flags from args
// (without the program name) on top, and validates the result.
func Load(args []string, output io.Writer) (Config, error) {
	cfg := FromEnv()

	fs := flag.NewFlagSet("goPeerScythe", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.GatewayPath, "cli", cfg.GatewayPath, "Path to the bitcoin-cli compatible executable")
	fs.StringVar(&cfg.GatewayArgs, "cli-args", cfg.GatewayArgs, "Extra arguments passed to the executable before the method (shell-like quoting)")
	fs.StringVar(&cfg.RPCHost, "rpc-host", cfg.RPCHost, "Talk JSON-RPC to host:port instead of running the executable")
	fs.StringVar(&cfg.RPCUser, "rpc-user", cfg.RPCUser, "JSON-RPC user name")
	fs.StringVar(&cfg.RPCPass, "rpc-pass", cfg.RPCPass, "JSON-RPC password")
	fs.IntVar(&cfg.BanSeconds, "bantime", cfg.BanSeconds, "Ban duration in seconds, counted from each ban")
	fs.IntVar(&cfg.PollSeconds, "interval", cfg.PollSeconds, "Seconds between the starts of two peer checks")
	fs.BoolVar(&cfg.RunOnce, "once", cfg.RunOnce, "Run a single check and exit")
	fs.BoolVar(&cfg.PreviewMode, "preview", cfg.PreviewMode, "Log what would be done without disconnecting or banning")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "Log level: trace, debug, info, warn, error, critical, off")
	fs.BoolVar(&cfg.PrintVersion, "version", cfg.PrintVersion, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if cfg.PrintVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// --- Environment Variable Helpers ---

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		// Strip surrounding quotes if present (common in .env files)
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			return val[1 : len(val)-1]
		}
		return val
	}
	return fallback
}

// getEnvRaw keeps quotes untouched; argument strings carry their own quoting.
func getEnvRaw(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := getEnv(key, "")
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	s := strings.ToLower(getEnv(key, ""))
	if s == "true" || s == "1" || s == "yes" {
		return true
	}
	if s == "false" || s == "0" || s == "no" {
		return false
	}
	return fallback
}
