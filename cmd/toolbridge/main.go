package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaymesh/toolbridge/pkg/toolmgr"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "Manage and diagnose MCP tool services",
	Long:  "toolbridge connects to the tool services declared in a YAML manifest and exposes discovery, invocation, and diagnostics over them.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("manifest", "m", "services.yaml", "Path to the service manifest")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("toolbridge version %s\n", version))

	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newDiagnoseCmd())
	rootCmd.AddCommand(newServeCmd())
}

// newManager loads the manifest named by --manifest and registers every
// service it declares.
func newManager(cmd *cobra.Command) (*toolmgr.Manager, error) {
	path, _ := cmd.Flags().GetString("manifest")
	configs, err := toolmgr.LoadServices(path)
	if err != nil {
		return nil, err
	}
	manager := toolmgr.NewManager(&toolmgr.ManagerOptions{Logger: newLogger(cmd)})
	for id, cfg := range configs {
		if err := manager.RegisterConfig(id, cfg); err != nil {
			return nil, fmt.Errorf("register %q: %w", id, err)
		}
	}
	return manager, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
