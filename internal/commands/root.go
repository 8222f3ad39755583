// Copyright 2025 Tom Barlow
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

// Package commands implements the finassist CLI.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openfi/finassist/internal/log"
	"github.com/openfi/finassist/internal/mcp"
)

// VersionInfo carries build-time version metadata.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// globalOptions are flags shared by every command.
type globalOptions struct {
	configPath string
	jsonOutput bool
}

// NewRootCommand creates the finassist root command.
func NewRootCommand(info VersionInfo) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "finassist",
		Short: "Inspect and exercise the assistant's tool servers",
		Long: `finassist manages the remote tool servers the financial assistant
connects to. Servers are defined in servers.yaml; each contributes tools
the assistant can invoke during a conversation.

Commands:
  servers   Show configured servers and their connection status
  tools     List and invoke tools across all servers
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the server configuration file")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(newServersCommand(opts))
	cmd.AddCommand(newToolsCommand(opts))
	cmd.AddCommand(newVersionCommand(info))

	return cmd
}

// newVersionCommand creates the 'version' command.
func newVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("finassist %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
		},
	}
}

// newManager builds a connection manager from the global options.
func (o *globalOptions) newManager() *mcp.Manager {
	return mcp.NewManager(mcp.ManagerConfig{
		ConfigPath: o.configPath,
		Logger:     newCLILogger(),
	})
}

// newCLILogger builds the logger for CLI invocations. Level and format
// come from the environment so debugging a flaky server is one variable
// away.
func newCLILogger() *slog.Logger {
	return log.New(log.FromEnv())
}
