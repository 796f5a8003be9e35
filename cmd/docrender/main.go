// Command docrender renders document templates from the command line and serves previews of a
// template directory over HTTP.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const appName = "docrender"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

// options holds the flags shared by every subcommand.
type options struct {
	verbose bool
	dialect string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Render XML and legacy document templates",
		Long: appName + ` renders document templates written in the XML dialect (<variable>, <loop>,
<condition>, {{field}}) or in the legacy dialect (<pdf>, <paragraph>, ${field}) to HTML
ready for a PDF backend.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log degraded renders (missing includes, dropped elements) to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.dialect, "dialect", "auto",
		"template dialect: auto, modern or legacy")

	rootCmd.AddCommand(
		newRenderCmd(opts),
		newCheckCmd(opts),
		newDetectCmd(),
		newServeCmd(opts),
	)
	return rootCmd
}

// logger returns a text logger writing to w. Without --verbose only warnings and errors are
// written.
func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
