package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Connect to every service and list the tools it exposes",
		Args:  cobra.NoArgs,
		RunE:  runDiscover,
	}
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Shutdown(cmd.Context())

	discovered := manager.DiscoverTools(cmd.Context())
	services := make([]string, 0, len(discovered))
	for id := range discovered {
		services = append(services, id)
	}
	sort.Strings(services)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tTOOL\tDESCRIPTION")
	for _, id := range services {
		tools := discovered[id]
		if len(tools) == 0 {
			fmt.Fprintf(w, "%s\t(none)\t\n", id)
			continue
		}
		for _, tool := range tools {
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, tool.Name, tool.Description)
		}
	}
	return w.Flush()
}
