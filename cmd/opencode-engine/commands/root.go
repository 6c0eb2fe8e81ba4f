// Package commands provides the CLI commands for opencode-engine: one
// subcommand per engine (lsp, diff, index, snapshot, memory, question)
// for manual operation and debugging.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"
)

var (
	printLogs bool
	logLevel  string
	logFile   bool
)

var rootCmd = &cobra.Command{
	Use:   "opencode-engine",
	Short: "opencode-engine - LSP, diff, index, snapshot and memory engines",
	Long: `opencode-engine exposes the four engines backing the opencode
agent CLI for manual operation and debugging: the LSP multiplexer, the
unified-diff engine, the semantic code-index pipeline, and the
snapshot/revert layer, plus the error-memory store.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		logCfg := logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Output: os.Stderr,
			Pretty: printLogs,
		}
		if !printLogs && !logFile {
			logCfg.Level = logging.FatalLevel
		}
		logCfg.LogToFile = logFile
		logging.Init(logCfg)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write logs to /tmp/opencode-engine-YYYYMMDD-HHMMSS.log")
	rootCmd.SetVersionTemplate(fmt.Sprintf("opencode-engine %s\n", Version))

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(questionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// workDir returns dir if non-empty, else the current working directory.
func workDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
