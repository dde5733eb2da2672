package config

import (
	"encoding/json"
	"fmt"
	"time"
)

const redacted = "[REDACTED]"

// Duration is a time.Duration that decodes from strings like "10s" in YAML
// files and environment variables.
type Duration time.Duration

// UnmarshalText parses a Go duration string. Negative values are rejected.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret holds a credential such as the Qdrant API key. Every printing or
// marshaling path renders it redacted; Value is the only way to read it.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string {
	return "config.Secret(" + redacted + ")"
}

// Value returns the raw secret.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool {
	return s != ""
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText stores the raw value; koanf uses it for env and YAML input.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
