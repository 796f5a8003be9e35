package main

import (
	"fmt"
	"os"

	"github.com/dpotapov/go-docpages/doctpl"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check TEMPLATE...",
		Short: "Report the issues of template files",
		Long: `Parse template files and print every issue found as FILE:LINE: MESSAGE.
The command fails if any template has issues.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := doctpl.ParseDialect(opts.dialect)
			if err != nil {
				return err
			}
			e := &doctpl.Engine{Logger: opts.logger(cmd.ErrOrStderr())}

			failed := 0
			for _, name := range args {
				markup, err := os.ReadFile(name)
				if err != nil {
					return fmt.Errorf("read template: %w", err)
				}
				issues := e.Check(string(markup), d)
				for _, iss := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s:%d: %s\n", name, iss.Line, iss.Message)
				}
				if len(issues) > 0 {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates have issues", failed, len(args))
			}
			return nil
		},
	}
}
