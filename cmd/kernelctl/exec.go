package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/demo"
)

var execCmd = &cobra.Command{
	Use:   "exec <name> <child-name>",
	Short: "Create an additional thread descriptor alongside an existing one",
	Long: `Register a second thread descriptor that will run alongside an
existing one the next time 'start' runs. There is no live scheduler for
a separate process to spawn a thread into directly, so exec collapses
to the same registry-append 'create' does; <name> only has to already
exist.`,
	Args: cobra.ExactArgs(2),
	RunE: runExec,
}

var (
	execPriority  uint8
	execStackSize uint32
)

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().Uint8VarP(&execPriority, "priority", "p", 1, "priority of the new thread")
	execCmd.Flags().Uint32Var(&execStackSize, "stack-size", 4096, "stack size in bytes")
}

func runExec(cmd *cobra.Command, args []string) error {
	name, childName := args[0], args[1]

	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	if _, ok := reg.Find(name); !ok {
		return fmt.Errorf("no thread named %q", name)
	}

	if err := reg.Add(demo.ThreadDescriptor{
		Name:       childName,
		Priority:   execPriority,
		Policy:     "fifo",
		StackSize:  execStackSize,
		SleepTicks: 1,
	}); err != nil {
		return fmt.Errorf("exec thread: %w", err)
	}

	return reg.Save()
}
