package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/toolbridge/pkg/tooldiag"
)

func newDiagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose <service>",
		Short: "Run a connection test and print the diagnostic report",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiagnose,
	}
	cmd.Flags().Int("samples", 0, "Also run a performance sample of this many probes")
	cmd.Flags().Duration("interval", time.Second, "Cadence between performance probes")
	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	service := args[0]

	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Shutdown(cmd.Context())

	report := tooldiag.BuildReport(cmd.Context(), manager, service)

	output := map[string]any{"report": report}
	if samples, _ := cmd.Flags().GetInt("samples"); samples > 0 {
		interval, _ := cmd.Flags().GetDuration("interval")
		sample, err := tooldiag.SamplePerformance(cmd.Context(), manager, service, &tooldiag.SampleOptions{
			Samples:  samples,
			Interval: interval,
		})
		if err != nil {
			return err
		}
		output["performance"] = sample
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
