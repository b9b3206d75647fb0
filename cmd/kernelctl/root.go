// Package kernelctl implements the CLI commands for kernelctl.
package kernelctl

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"kernelcore/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags
var (
	globalRoot      string
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

// rootCmd is the base command for kernelctl.
var rootCmd = &cobra.Command{
	Use:   "kernelctl",
	Short: "Drive a kernelcore scheduler from the command line",
	Long: `kernelctl boots a kernelcore scheduler and runs threads against it.

Each invocation is a separate process, so a registry file under --root
tracks the threads that have been created across invocations: create
appends a descriptor, start boots one scheduler and runs every pending
descriptor to completion, and list/state/rm read or mutate that file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRegistryPath returns the path to the thread registry file.
func GetRegistryPath() string {
	return filepath.Join(GetStateRoot(), "threads.json")
}

// GetStateRoot returns the directory kernelctl keeps its registry in.
func GetStateRoot() string {
	if globalRoot != "" {
		return globalRoot
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kernelctl"
	}
	return filepath.Join(home, ".kernelctl")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalRoot, "root", "", "root directory for the thread registry (default: ~/.kernelctl)")
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err == nil {
			logOutput = f
		}
	}

	logLevel := slog.LevelInfo
	if globalDebug {
		logLevel = slog.LevelDebug
	}

	logger := logging.NewLogger(logging.Config{
		Level:  logLevel,
		Format: globalLogFormat,
		Output: logOutput,
	})
	logging.SetDefault(logger)
}
