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

package domain

import (
	"path/filepath"
	"time"
)

// DiscoveryKind selects the discovery directory implementation.
type DiscoveryKind string

const (
	DiscoveryRegional DiscoveryKind = "regional"
	DiscoveryGlobal   DiscoveryKind = "global"
)

// CryptoConfig is the secret cipher configuration. It must stay identical
// between the run that encrypted a secret and the run that decrypts it.
type CryptoConfig struct {
	Passphrase    string `yaml:"passphrase"`
	Salt          string `yaml:"salt"`
	HashAlgorithm string `yaml:"hash"`
	Iterations    int    `yaml:"iterations"`
	InitVector    string `yaml:"init_vector"`
	KeySize       int    `yaml:"key_size"`
}

// Config represents the application configuration
type Config struct {
	// ConnectionsFile is the XML file holding saved connection profiles
	ConnectionsFile string `yaml:"connections_file"`

	// DefaultTimeout is used for new profiles that do not set one
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// Discovery selects how organizations are looked up for online profiles
	Discovery DiscoveryKind `yaml:"discovery"`

	// ProbeInsecureSkipVerify disables TLS verification of the HTTP session probe
	ProbeInsecureSkipVerify bool `yaml:"probe_insecure_skip_verify"`

	Crypto CryptoConfig `yaml:"crypto"`
}

// DefaultCryptoConfig is used when the config file carries no crypto block.
func DefaultCryptoConfig() CryptoConfig {
	return CryptoConfig{
		Passphrase:    "lazycrm-connections",
		Salt:          "lazycrm-salt",
		HashAlgorithm: "SHA256",
		Iterations:    10000,
		InitVector:    "lazycrm-iv-0001",
		KeySize:       256,
	}
}

// DefaultConfig returns the default configuration with the provided config directory
func DefaultConfig(configDirPath string) Config {
	connectionsFile := "~/.lazycrm/connections.xml"
	if configDirPath != "" {
		connectionsFile = filepath.Join(configDirPath, "connections.xml")
	}

	return Config{
		ConnectionsFile: connectionsFile,
		DefaultTimeout:  DefaultTimeout,
		Discovery:       DiscoveryRegional,
		Crypto:          DefaultCryptoConfig(),
	}
}
