package kernelctl

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kernelcore/demo"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ps"},
	Short:   "List thread descriptors",
	Long:    `List the thread descriptors held in the registry.`,
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var (
	listQuiet  bool
	listFormat string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listQuiet, "quiet", "q", false, "display only thread names")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := demo.LoadRegistry(GetRegistryPath())
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	names := reg.Names()
	descriptors := make([]*demo.ThreadDescriptor, len(names))
	for i, n := range names {
		d, _ := reg.Find(n)
		descriptors[i] = d
	}

	if listQuiet {
		for _, d := range descriptors {
			fmt.Println(d.Name)
		}
		return nil
	}

	if listFormat == "json" {
		return outputJSON(descriptors)
	}

	return outputTable(descriptors)
}

// outputTable renders the descriptor table with tabwriter; on a
// narrow terminal it drops the policy/stack columns rather than
// wrapping, the same degrade-gracefully call a box-drawing renderer
// would make against an unknown width.
func outputTable(descriptors []*demo.ThreadDescriptor) error {
	wide := true
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 && width < 70 {
		wide = false
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if wide {
		fmt.Fprintln(w, "NAME\tPRIORITY\tPOLICY\tSTACK\tSTATUS")
		for _, d := range descriptors {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", d.Name, d.Priority, d.Policy, d.StackSize, d.Status)
		}
	} else {
		fmt.Fprintln(w, "NAME\tPRIORITY\tSTATUS")
		for _, d := range descriptors {
			fmt.Fprintf(w, "%s\t%d\t%s\n", d.Name, d.Priority, d.Status)
		}
	}
	return w.Flush()
}

func outputJSON(descriptors []*demo.ThreadDescriptor) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(descriptors)
}
