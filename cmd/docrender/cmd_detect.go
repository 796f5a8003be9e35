package main

import (
	"fmt"
	"os"

	"github.com/dpotapov/go-docpages/doctpl"
	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect TEMPLATE...",
		Short: "Print the dialect of template files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				markup, err := os.ReadFile(name)
				if err != nil {
					return fmt.Errorf("read template: %w", err)
				}
				if len(args) == 1 {
					fmt.Fprintln(cmd.OutOrStdout(), doctpl.Detect(string(markup)))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, doctpl.Detect(string(markup)))
			}
			return nil
		},
	}
}
