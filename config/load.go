// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the file.
// Nested keys join with underscores, e.g. TASKBUS_REMOTING_BIND_ADDRESS.
const EnvPrefix = "TASKBUS"

// Load reads the settings from the YAML file at path, applies the
// environment overrides and validates the result.
// An empty path falls back to TASKBUS_CONFIG, then to taskbus.yaml in the working directory.
// When the search finds no file the defaults stay in place.
func Load(path string) (*Config, error) {
	cfg := New("")

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", cfg.Name)
	v.SetDefault("receive_timeout", cfg.ReceiveTimeout)
	v.SetDefault("poll_timeout", cfg.PollTimeout)
	v.SetDefault("forwarder_interval", cfg.ForwarderInterval)
	v.SetDefault("remoting.enabled", cfg.Remoting.Enabled)
	v.SetDefault("remoting.bind_address", cfg.Remoting.BindAddress)
	v.SetDefault("remoting.interval", cfg.Remoting.Interval)
	v.SetDefault("remoting.compression", cfg.Remoting.Compression)
	v.SetDefault("routes.snapshot_ttl", cfg.Routes.SnapshotTTL)
	v.SetDefault("routes.store_path", cfg.Routes.StorePath)
	v.SetDefault("routes.read_only", cfg.Routes.ReadOnly)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskbus")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
