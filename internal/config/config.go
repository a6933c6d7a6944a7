// Package config loads the wsprobe settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/mickaelvieira/reconnecting-websocket/client"
)

// Prefix of every environment variable, e.g. WSPROBE_URL
const Prefix = "wsprobe"

type Config struct {
	// websocket server to connect to
	URL string `envconfig:"URL"`

	// address the serve command listens on
	Listen string `envconfig:"LISTEN" default:":8080"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	PingInterval     time.Duration `envconfig:"PING_INTERVAL" default:"5s"`
	RetryInterval    time.Duration `envconfig:"RETRY_INTERVAL" default:"5s"`
	MaxRetryInterval time.Duration `envconfig:"MAX_RETRY_INTERVAL" default:"60s"`
	MaxRetryAttempts int           `envconfig:"MAX_RETRY_ATTEMPTS" default:"10"`
	RetryJitter      float64       `envconfig:"RETRY_JITTER" default:"0"`

	// handshake headers, "Name:value,Other:value"
	Headers map[string]string `envconfig:"HEADERS"`
}

// Load reads the configuration from WSPROBE_* environment variables
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

// Validate checks the values the client cannot work with
func (c *Config) Validate() error {
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping interval must be positive, got %s", c.PingInterval)
	}
	if c.RetryInterval <= 0 || c.MaxRetryInterval < c.RetryInterval {
		return fmt.Errorf("invalid retry intervals %s to %s", c.RetryInterval, c.MaxRetryInterval)
	}
	if c.MaxRetryAttempts < 0 {
		return fmt.Errorf("max retry attempts must not be negative, got %d", c.MaxRetryAttempts)
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return fmt.Errorf("retry jitter must be between 0 and 1, got %g", c.RetryJitter)
	}
	return nil
}

// Logger builds the slog logger writing to w
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
}

// ClientOptions translates the configuration into client options
func (c *Config) ClientOptions() []client.OptionModifier {
	opts := []client.OptionModifier{
		client.WithPingInterval(c.PingInterval),
		client.WithRetryInterval(c.RetryInterval),
		client.WithMaxRetryInterval(c.MaxRetryInterval),
		client.WithMaxRetryAttempts(c.MaxRetryAttempts),
		client.WithRetryJitter(c.RetryJitter),
	}

	if len(c.Headers) > 0 {
		h := make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			h.Set(k, v)
		}
		opts = append(opts, client.WithHeaders(h))
	}

	return opts
}
