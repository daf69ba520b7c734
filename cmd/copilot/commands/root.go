// Package commands provides the CLI commands for copilot.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/copilot/internal/config"
	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	workDir   string
)

var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Copilot - conversation engine for workspace assistants",
	Long: `Copilot runs chat sessions against configurable model providers.

Run 'copilot serve' to start the HTTP API, or 'copilot prompts check'
to validate a prompt definition file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print human readable logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Directory to read copilot.json[c] and .env from")

	rootCmd.SetVersionTemplate(fmt.Sprintf("copilot %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// loadConfig loads the configuration for the working directory and sets up
// logging from it. Flags override the file and environment.
func loadConfig() (*types.Config, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logging.Init(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty || printLogs,
		Service: "copilot",
		Version: Version,
	})
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "copilot %s (%s)\n", Version, BuildTime)
	},
}
