package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools or call one directly",
	}
	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	var (
		debugMode bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every tool and whether it is configured",
		Long: `Initialize every tool the way the server does and print whether each
one is configured. Initialization contacts the providers to validate the
stored credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, debugMode, nil)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(ctx))

			infos := s.registry.ListTools()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), toolListing(infos))
			}
			return writeToolTable(cmd.OutOrStdout(), infos)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newToolsCallCmd() *cobra.Command {
	var (
		debugMode bool
		action    string
		rawParams string
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Run one tool action and print the JSON result",
		Example: `  salesmcp tools call calendly --action get_user
  salesmcp tools call google_drive --action search_files --params '{"name":"Q3 forecast"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			if action != "" {
				params["action"] = action
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, debugMode, []string{args[0]})
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(ctx))

			result := s.registry.ExecuteTool(ctx, args[0], params)
			if err := writeJSON(cmd.OutOrStdout(), result.ToMap()); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%s failed: %s", args[0], result.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVarP(&action, "action", "a", "", "Action to perform (overrides params.action)")
	cmd.Flags().StringVarP(&rawParams, "params", "p", "", "Action parameters as a JSON object, or @file to read them from a file")
	return cmd
}

// parseParams decodes a JSON object given inline or as @path.
func parseParams(raw string) (map[string]any, error) {
	params := map[string]any{}
	if raw == "" {
		return params, nil
	}

	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
	}

	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("params must be a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

type toolEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Configured  bool     `json:"configured"`
	Actions     []string `json:"actions"`
}

func toolListing(infos []tools.ToolInfo) []toolEntry {
	out := make([]toolEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, toolEntry{
			Name:        info.Descriptor.Name,
			Description: info.Descriptor.Description,
			Configured:  info.Configured,
			Actions:     actionNames(info.Descriptor),
		})
	}
	return out
}

// actionNames reads the action enum back out of a descriptor schema.
func actionNames(d tools.Descriptor) []string {
	props, _ := d.InputSchema["properties"].(map[string]any)
	action, _ := props["action"].(map[string]any)
	names, _ := action["enum"].([]string)
	return names
}

func writeToolTable(w io.Writer, infos []tools.ToolInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tCONFIGURED\tACTIONS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%t\t%d\n", info.Descriptor.Name, info.Configured, len(actionNames(info.Descriptor)))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
