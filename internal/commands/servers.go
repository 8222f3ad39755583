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

package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newServersCommand creates the 'servers' command group.
func newServersCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Show configured tool servers",
	}

	cmd.AddCommand(newServersStatusCommand(opts))
	cmd.AddCommand(newServersPingCommand(opts))

	return cmd
}

// newServersPingCommand creates the 'servers ping' command.
func newServersPingCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping <name>",
		Short: "Check that a connected server is responsive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := opts.newManager()
			defer func() { _ = m.Shutdown(context.Background()) }()

			if err := m.PingServer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", args[0])
			return nil
		},
	}
}

// newServersStatusCommand creates the 'servers status' command.
func newServersStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect to every enabled server and report status",
		Long: `Connect to every enabled server and report its status.

A server that fails to connect is reported as disconnected; the command
still succeeds so one bad server doesn't hide the rest.

Examples:
  finassist servers status
  finassist servers status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServersStatus(cmd.Context(), opts)
		},
	}
}

func runServersStatus(ctx context.Context, opts *globalOptions) error {
	m := opts.newManager()
	defer func() { _ = m.Shutdown(context.Background()) }()

	if err := m.Connect(ctx); err != nil {
		return err
	}

	statuses := m.Statuses()

	if opts.jsonOutput {
		type serverStatusJSON struct {
			Name      string `json:"name"`
			Transport string `json:"transport"`
			Disabled  bool   `json:"disabled"`
			Connected bool   `json:"connected"`
			Status    string `json:"status,omitempty"`
		}
		out := make([]serverStatusJSON, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, serverStatusJSON{
				Name:      s.Name,
				Transport: string(s.Transport),
				Disabled:  s.Disabled,
				Connected: s.Connected,
				Status:    string(s.Status),
			})
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(statuses) == 0 {
		fmt.Println("No tool servers configured.")
		return nil
	}

	fmt.Printf("%-20s %-10s %s\n", "SERVER", "TRANSPORT", "STATUS")
	for _, s := range statuses {
		state := "disconnected"
		switch {
		case s.Disabled:
			state = "disabled"
		case s.Connected:
			state = string(s.Status)
		}
		fmt.Printf("%-20s %-10s %s\n", s.Name, s.Transport, state)
	}

	return nil
}
