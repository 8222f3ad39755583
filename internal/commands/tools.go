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
	"strings"

	"github.com/spf13/cobra"
)

// newToolsCommand creates the 'tools' command group.
func newToolsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and invoke tools across all servers",
	}

	cmd.AddCommand(newToolsListCommand(opts))
	cmd.AddCommand(newToolsCallCommand(opts))

	return cmd
}

// newToolsListCommand creates the 'tools list' command.
func newToolsListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tool exposed by the connected servers",
		Long: `List every tool exposed by the connected servers.

Tools are shown with their owning server. A server that fails to connect
or list contributes no tools.

Examples:
  finassist tools list
  finassist tools list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsList(cmd.Context(), opts)
		},
	}
}

func runToolsList(ctx context.Context, opts *globalOptions) error {
	m := opts.newManager()
	defer func() { _ = m.Shutdown(context.Background()) }()

	infos, err := m.Tools(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		encoded, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(infos) == 0 {
		fmt.Println("No tools available.")
		return nil
	}

	for _, info := range infos {
		fmt.Printf("  %s.%s\n", info.Server, info.Tool.Name)
		if info.Tool.Description != "" {
			for _, line := range wrapText(info.Tool.Description, 60) {
				fmt.Printf("    %s\n", line)
			}
		}
		fmt.Println()
	}

	return nil
}

// newToolsCallCommand creates the 'tools call' command.
func newToolsCallCommand(opts *globalOptions) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool by name",
		Long: `Invoke a tool by its bare name with JSON arguments.

Examples:
  finassist tools call get_quote --args '{"ticker": "AAPL"}'
  finassist tools call get_news`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsCall(cmd.Context(), opts, args[0], argsJSON)
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")

	return cmd
}

func runToolsCall(ctx context.Context, opts *globalOptions, toolName, argsJSON string) error {
	var toolArgs map[string]interface{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
			return fmt.Errorf("invalid --args JSON: %w", err)
		}
	}

	m := opts.newManager()
	defer func() { _ = m.Shutdown(context.Background()) }()

	// A listing populates the registry that routes the call.
	if _, err := m.Tools(ctx); err != nil {
		return err
	}

	resp, err := m.ExecuteTool(ctx, toolName, toolArgs)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		encoded, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if resp.IsError {
		fmt.Println("Tool reported an error:")
	}
	for _, item := range resp.Content {
		switch item.Type {
		case "text":
			fmt.Println(item.Text)
		case "image":
			fmt.Printf("[image %s, %d bytes base64]\n", item.MimeType, len(item.Data))
		default:
			fmt.Printf("[%s content", item.Type)
			if item.URI != "" {
				fmt.Printf(" %s", item.URI)
			}
			fmt.Println("]")
		}
	}

	return nil
}

// wrapText wraps text at the given width, returning the lines.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	lines = append(lines, line)
	return lines
}
