// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Adembc/lazycrm/internal/core/ports"
)

const (
	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "LAZYCRM_CONFIG_DIR"
	// EnvPassphrase overrides the secret cipher passphrase.
	EnvPassphrase = "LAZYCRM_PASSPHRASE"

	appDir = ".lazycrm"
)

type OSConfig struct {
	homeDir   string
	configDir string
}

// NewOSConfig resolves the configuration directory from configDir, then
// LAZYCRM_CONFIG_DIR, then ~/.lazycrm. A leading ~/ expands to the home
// directory.
func NewOSConfig(configDir string) (ports.ConfigProvider, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	c := &OSConfig{homeDir: home}
	if configDir == "" {
		configDir = c.GetEnvOrDefault(EnvConfigDir, filepath.Join(home, appDir))
	}
	c.configDir = c.expandHome(configDir)
	return c, nil
}

func (c *OSConfig) expandHome(path string) string {
	if path == "~" {
		return c.homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(c.homeDir, path[2:])
	}
	return path
}

func (c *OSConfig) HomeDir() string {
	return c.homeDir
}

func (c *OSConfig) ConfigPath(elems ...string) string {
	return filepath.Join(c.configDir, filepath.Join(elems...))
}

func (c *OSConfig) LogPath(filename string) string {
	return c.ConfigPath("logs", filename)
}

func (c *OSConfig) GetEnvOrDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// ExpandPath expands a leading ~/ in path.
func (c *OSConfig) ExpandPath(path string) string {
	return c.expandHome(path)
}
