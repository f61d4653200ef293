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

package main

import (
	"fmt"
	"os"

	"github.com/Adembc/lazycrm/internal/adapters/config"
	"github.com/Adembc/lazycrm/internal/adapters/crm"
	"github.com/Adembc/lazycrm/internal/adapters/data/file"
	"github.com/Adembc/lazycrm/internal/adapters/flags"
	"github.com/Adembc/lazycrm/internal/adapters/logger"
	"github.com/Adembc/lazycrm/internal/adapters/ui"
	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"github.com/Adembc/lazycrm/internal/core/services"
	"github.com/Adembc/lazycrm/internal/cryptox"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "develop"
	gitCommit = "unknown"
)

// app holds the wired dependencies shared by every command. They are built
// once flags are parsed.
type app struct {
	flags          ports.FlagsProvider
	log            *zap.SugaredLogger
	cfg            domain.Config
	profileService ports.ProfileService
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   ui.AppName,
		Short: "Lazy CRM connection picker TUI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				//nolint:errcheck // log.Sync may return an error which is safe to ignore here
				a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.NewTUI(a.log, a.profileService, version, gitCommit).Run()
		},
	}
	rootCmd.SilenceUsage = true
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, gitCommit)
	a.flags = flags.NewCobraFlags(rootCmd)

	rootCmd.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newConnectCmd(a),
		newRemoveCmd(a),
		newConnectionStringCmd(a),
		newPasswdCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	osConfig, err := config.NewOSConfig(a.flags.ConfigDir())
	if err != nil {
		return fmt.Errorf("resolve config directory: %w", err)
	}
	if err := os.MkdirAll(osConfig.ConfigPath(), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	log, err := logger.New(ui.AppName, osConfig.LogPath(ui.AppName+".log"), a.flags.IsDebug())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log

	cfg, err := file.LoadConfig(osConfig.ConfigPath(ui.AppName + ".yaml"))
	if err != nil {
		log.Warnw("failed to load config, using defaults", "error", err)
	}
	cfg.Crypto.Passphrase = osConfig.GetEnvOrDefault(config.EnvPassphrase, cfg.Crypto.Passphrase)
	a.cfg = cfg

	cipher, err := cryptox.New(cfg.Crypto)
	if err != nil {
		return fmt.Errorf("create secret cipher: %w", err)
	}

	client := crm.NewHTTPClient(crm.ClientConfig{InsecureSkipVerify: cfg.ProbeInsecureSkipVerify})
	directory, err := crm.NewDirectory(cfg.Discovery, client, log)
	if err != nil {
		return fmt.Errorf("create discovery directory: %w", err)
	}
	resolver := services.NewResolver(log, crm.NewProvider(log, client), directory, cipher)

	repo := file.NewProfileRepo(log, osConfig.ExpandPath(cfg.ConnectionsFile))
	a.profileService = services.NewProfileService(log, repo, resolver, cipher)
	log.Debugw("dependencies ready", "connections_file", cfg.ConnectionsFile, "discovery", cfg.Discovery)
	return nil
}
