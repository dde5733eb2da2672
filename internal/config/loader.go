package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// sections lists the top-level keys environment variables may set.
var sections = map[string]bool{
	"server":        true,
	"engine":        true,
	"qdrant":        true,
	"chromem":       true,
	"gateway":       true,
	"observability": true,
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, in increasing precedence.
//
// Environment variables map to keys by splitting on the first underscore:
//
//	QDRANT_URL             -> qdrant.url
//	QDRANT_API_KEY         -> qdrant.api_key
//	QDRANT_COLLECTION      -> qdrant.collection
//	GATEWAY_FILTER_POLICY  -> gateway.filter_policy
//	SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//
// Variables whose first segment is not a known section are ignored.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name, or "" to skip.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || parts[1] == "" || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile reads path through a single descriptor, rejecting files that
// are too large or writable by other users.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o022 != 0 {
		return nil, fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", info.Mode().Perm())
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
