package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/demo"
)

var rmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Remove a thread descriptor",
	Long:    `Remove a thread descriptor that has already exited.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	name := args[0]

	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	if err := reg.Remove(name); err != nil {
		return fmt.Errorf("remove thread: %w", err)
	}

	return reg.Save()
}
