// Command kernelctl drives a kernelcore scheduler from the command line.
//
// Commands:
//
//	create  - register a thread descriptor without running it
//	start   - run every created thread descriptor to completion
//	run     - run one of the seed scenarios in a single step
//	state   - print a thread descriptor's state
//	signal  - record a signal to deliver to a thread
//	exec    - register an additional thread descriptor alongside one
//	rm      - remove an exited thread descriptor
//	list    - list thread descriptors
//	spec    - print a default kernel configuration
//	version - print version information
package main

import (
	"fmt"
	"os"

	"kernelcore/cmd/kernelctl"
)

func main() {
	if err := kernelctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}
}
