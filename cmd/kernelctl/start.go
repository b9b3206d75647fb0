package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/config"
	"kernelcore/demo"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run every created thread to completion",
	Long: `Boot a scheduler and run every thread descriptor still in the
"created" state to completion, then persist their exit status back to
the registry.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	if err := reg.StartAll(config.Default()); err != nil {
		return fmt.Errorf("start threads: %w", err)
	}

	for _, name := range reg.Names() {
		d, _ := reg.Find(name)
		for _, e := range d.ExitEvents {
			fmt.Println(e)
		}
	}
	return nil
}
