package kernelctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernelcore/config"
	"kernelcore/demo"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run one of the seed scenarios in a single step",
	Long: `Run a seed scenario (priority inheritance, recursive mutex
saturation, a timed semaphore wait, a producer/consumer condition
variable, a bounded queue, or a periodic software timer) and print what
it observed.

Known scenarios: s1 s2 s3 s4 s5 s6. Run 'kernelctl run list' to print
their names.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	if name == "list" {
		for _, n := range demo.Names() {
			fmt.Println(n)
		}
		return nil
	}

	result, err := demo.Run(name, config.Default())
	if err != nil {
		return fmt.Errorf("run scenario: %w", err)
	}

	fmt.Print(result)
	if !result.Passed {
		return fmt.Errorf("scenario %s did not pass", name)
	}
	return nil
}
