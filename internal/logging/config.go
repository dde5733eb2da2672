package logging

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level     zapcore.Level
	Format    string // json or console
	Output    OutputConfig
	Sampling  SamplingConfig
	Caller    bool
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Stdout bool
	OTEL   bool
}

// SamplingConfig throttles entries below Error per message per tick.
type SamplingConfig struct {
	Enabled    bool
	Tick       config.Duration
	Initial    int
	Thereafter int
}

// RedactionConfig lists field names and value patterns hidden by the encoder.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

const maxPatternLen = 200

// NewDefaultConfig returns production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.Duration(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Caller: true,
		Fields: map[string]string{
			"service": "vectorgate",
		},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"api_key", "apikey", "authorization", "token",
				"password", "secret", "credential",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
			},
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if !c.Output.Stdout && !c.Output.OTEL {
		return errors.New("at least one output must be enabled (stdout or otel)")
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return errors.New("sampling tick must be > 0 when sampling enabled")
		}
		if c.Sampling.Initial < 1 {
			return fmt.Errorf("sampling initial must be >= 1, got %d", c.Sampling.Initial)
		}
	}
	if c.Redaction.Enabled {
		for _, p := range c.Redaction.Patterns {
			if len(p) > maxPatternLen {
				return fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
			}
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", p, err)
			}
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("constant field %q=%q must have a key and a value", k, v)
		}
	}
	return nil
}
