package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/pkg/types"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers",
	Long: `List the providers built from configuration and the output modes
each supports. Providers that fail to build are skipped with a warning.`,
	RunE: runProviders,
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := provider.InitializeProviders(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tMODES\t")
	for _, p := range registry.List() {
		var modes []string
		for _, mode := range []types.Mode{types.ModeText, types.ModeTextStream, types.ModeAttachment} {
			if p.Supports(mode) {
				modes = append(modes, string(mode))
			}
		}
		model := cfg.Provider[p.ID()].Model
		if model == "" {
			model = "-"
		}
		name := p.ID()
		if p.ID() == cfg.DefaultProvider {
			name += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", name, model, strings.Join(modes, ","))
	}
	return w.Flush()
}
