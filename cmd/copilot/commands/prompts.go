package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/copilot/internal/prompt"
)

var promptsFile string

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect prompt definitions",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the prompts in the configured prompt file",
	RunE:  runPromptsList,
}

var promptsCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a prompt definition file",
	Long: `Parse a prompt definition file and render every template once,
reporting the first error found.

Examples:
  copilot prompts check prompts.yaml
  copilot prompts check            # checks the configured file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPromptsCheck,
}

func init() {
	promptsCmd.PersistentFlags().StringVar(&promptsFile, "file", "", "Prompt definition file (default from config)")
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsCheckCmd)
}

// promptPath picks the file named on the command line, then the flag, then
// the configured one.
func promptPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if promptsFile != "" {
		return promptsFile, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Prompts.File == "" {
		return "", errors.New("no prompt file given and none configured")
	}
	return cfg.Prompts.File, nil
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	path, err := promptPath(nil)
	if err != nil {
		return err
	}
	prompts, err := prompt.ParseFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tTURNS\t")
	for _, p := range prompts {
		if p == nil {
			continue
		}
		model := p.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t\n", p.Name, model, len(p.Turns))
	}
	return w.Flush()
}

func runPromptsCheck(cmd *cobra.Command, args []string) error {
	path, err := promptPath(args)
	if err != nil {
		return err
	}
	prompts, err := prompt.ParseFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d prompts ok\n", path, len(prompts))
	return nil
}
