package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/demo"
	kernelsignal "kernelcore/signal"
)

var signalCmd = &cobra.Command{
	Use:     "signal <name> <signal>",
	Aliases: []string{"kill"},
	Short:   "Record a signal to deliver to a thread",
	Long: `Record a signal against a thread descriptor. There being no
scheduler alive between invocations to deliver into directly, the
signal is queued on the descriptor and generated at the very start of
that thread's entry point the next time 'start' runs.`,
	Args: cobra.ExactArgs(2),
	RunE: runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	name, sigArg := args[0], args[1]

	signo, err := kernelsignal.Parse(sigArg)
	if err != nil {
		return fmt.Errorf("parse signal: %w", err)
	}

	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	d, ok := reg.Find(name)
	if !ok {
		return fmt.Errorf("no thread named %q", name)
	}
	d.PendingSignal = &signo

	return reg.Save()
}
