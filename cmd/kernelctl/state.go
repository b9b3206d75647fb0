package kernelctl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kernelcore/demo"
)

var stateCmd = &cobra.Command{
	Use:   "state <name>",
	Short: "Print a thread descriptor's state",
	Long:  `Print the named thread descriptor's current state as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	name := args[0]

	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	d, ok := reg.Find(name)
	if !ok {
		return fmt.Errorf("no thread named %q", name)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}
