// Command wamc consults Prolog source files and prints the compiled
// instruction listing of every predicate.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunokim/prolog-engine/engine"
)

var disableIndexing bool

func main() {
	cmd := &cobra.Command{
		Use:   "wamc file...",
		Short: "Compile Prolog files and print their instruction listing",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	cmd.Flags().BoolVar(&disableIndexing, "no-index", false, "compile without first-argument indexing")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	m := engine.Build(engine.Config{DisableIndexing: disableIndexing})
	for _, file := range args {
		bs, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if err := m.ConsultModule(file, string(bs)); err != nil {
			return err
		}
	}
	fmt.Print(m.Listing())
	return nil
}
