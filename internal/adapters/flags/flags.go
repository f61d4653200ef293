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

package flags

import (
	"github.com/Adembc/lazycrm/internal/core/ports"

	"github.com/spf13/cobra"
)

const (
	debugFlag     = "debug"
	configDirFlag = "config-dir"
)

type CobraFlags struct {
	rootCmd *cobra.Command
}

func NewCobraFlags(rootCmd *cobra.Command) ports.FlagsProvider {
	g := &CobraFlags{rootCmd: rootCmd}
	g.globalFlags()
	return g
}

// globalFlags registers the flags shared by every subcommand.
func (g *CobraFlags) globalFlags() {
	g.rootCmd.PersistentFlags().Bool(debugFlag, false, "Enable debug logging")
	g.rootCmd.PersistentFlags().String(configDirFlag, "", "Config directory path (default: ~/.lazycrm)")
}

func (c *CobraFlags) IsDebug() bool {
	flag, _ := c.rootCmd.PersistentFlags().GetBool(debugFlag)
	return flag
}

func (c *CobraFlags) ConfigDir() string {
	return c.GetFlag(configDirFlag)
}

func (c *CobraFlags) GetFlag(name string) string {
	value, _ := c.rootCmd.PersistentFlags().GetString(name)
	return value
}
