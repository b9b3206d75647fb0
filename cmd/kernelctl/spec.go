package kernelctl

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"kernelcore/config"
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print a default kernel configuration",
	Long:  `Write a default kernel configuration (tick rate, stack sizes, recursion limits, ...) to stdout as JSON.`,
	Args:  cobra.NoArgs,
	RunE:  runSpec,
}

func init() {
	rootCmd.AddCommand(specCmd)
}

func runSpec(cmd *cobra.Command, args []string) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(config.Default())
}
