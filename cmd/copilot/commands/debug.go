package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/copilot/internal/config"
	"github.com/opencode-ai/copilot/pkg/types"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
	Long:  `Debug utilities for troubleshooting copilot configuration and setup.`,
}

var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration with secrets masked",
	RunE:  runDebugConfig,
}

var debugPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show system paths",
	RunE:  runDebugPaths,
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)
	debugCmd.AddCommand(debugPathsCmd)
}

func runDebugConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(masked(cfg), "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// masked returns a copy of cfg with API keys and the database URL hidden.
func masked(cfg *types.Config) *types.Config {
	out := *cfg
	out.Provider = make(map[string]types.ProviderConfig, len(cfg.Provider))
	for id, p := range cfg.Provider {
		if p.APIKey != "" {
			p.APIKey = "********"
		}
		out.Provider[id] = p
	}
	if out.Storage.URL != "" {
		out.Storage.URL = "********"
	}
	return &out
}

func runDebugPaths(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Copilot System Paths:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Config:   %s\n", paths.Config)
	fmt.Fprintf(w, "  Data:     %s\n", paths.Data)
	fmt.Fprintf(w, "  Storage:  %s\n", paths.StoragePath())
	fmt.Fprintf(w, "  Global:   %s\n", config.GlobalConfigPath())

	return nil
}
