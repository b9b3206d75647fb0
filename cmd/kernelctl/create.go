package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/demo"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a thread descriptor without running it",
	Long:  `Register a thread descriptor in the registry. It runs the next time 'start' is invoked.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var (
	createPriority   uint8
	createStackSize  uint32
	createPolicy     string
	createSleepTicks uint64
)

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().Uint8VarP(&createPriority, "priority", "p", 1, "thread priority")
	createCmd.Flags().Uint32Var(&createStackSize, "stack-size", 4096, "stack size in bytes")
	createCmd.Flags().StringVar(&createPolicy, "policy", "fifo", "scheduling policy (fifo or roundrobin)")
	createCmd.Flags().Uint64Var(&createSleepTicks, "sleep-ticks", 1, "ticks the thread sleeps before reporting finished")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	if createPolicy != "fifo" && createPolicy != "roundrobin" {
		return fmt.Errorf("invalid --policy %q (want fifo or roundrobin)", createPolicy)
	}

	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	if err := reg.Add(demo.ThreadDescriptor{
		Name:       name,
		Priority:   createPriority,
		Policy:     createPolicy,
		StackSize:  createStackSize,
		SleepTicks: createSleepTicks,
	}); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	return reg.Save()
}
