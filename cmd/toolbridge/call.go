package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <service> <tool>",
		Short: "Invoke one tool and print the result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runCall,
	}
	cmd.Flags().StringP("args", "a", "{}", "Tool arguments as a JSON object")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	service, tool := args[0], args[1]

	rawArgs, _ := cmd.Flags().GetString("args")
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Shutdown(cmd.Context())

	result, err := manager.CallTool(cmd.Context(), service, tool, toolArgs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
