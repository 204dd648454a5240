// Command zlines is the CLI driver for creating, inspecting, and querying
// zlines container files, grounded on the original zlines.c driver's
// create/print/get/details/verify subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "zlines",
		Short: "Create and query zlines container files",
	}

	root.AddCommand(
		newCreateCmd(),
		newPrintCmd(),
		newGetCmd(),
		newDetailsCmd(),
		newVerifyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
