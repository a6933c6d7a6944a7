package main

import (
	"github.com/spf13/cobra"

	"github.com/mickaelvieira/reconnecting-websocket/internal/config"
)

func bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("log-level", "", "log level (debug, info, warn, error), overrides WSPROBE_LOG_LEVEL")
	f.String("log-format", "", "log format (text, json), overrides WSPROBE_LOG_FORMAT")
	f.Duration("ping-interval", 0, "interval between keep-alive frames, overrides WSPROBE_PING_INTERVAL")
	f.Int("max-retry-attempts", 0, "reconnection attempts before giving up, overrides WSPROBE_MAX_RETRY_ATTEMPTS")
	f.Float64("retry-jitter", 0, "randomization factor of reconnection delays, overrides WSPROBE_RETRY_JITTER")
	f.String("listen", "", "address the serve command listens on, overrides WSPROBE_LISTEN")
}

// loadConfig reads the environment then applies the flags set on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.LogFormat, _ = f.GetString("log-format")
	}
	if f.Changed("ping-interval") {
		cfg.PingInterval, _ = f.GetDuration("ping-interval")
	}
	if f.Changed("max-retry-attempts") {
		cfg.MaxRetryAttempts, _ = f.GetInt("max-retry-attempts")
	}
	if f.Changed("retry-jitter") {
		cfg.RetryJitter, _ = f.GetFloat64("retry-jitter")
	}
	if f.Changed("listen") {
		cfg.Listen, _ = f.GetString("listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
