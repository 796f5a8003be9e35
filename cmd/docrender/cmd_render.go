package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dpotapov/go-docpages"
	"github.com/dpotapov/go-docpages/doctpl"
	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	job := &renderJob{}
	var watch bool

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template file",
		Long: `Render a template file with the data of a YAML or JSON file.

Without --data, the data is read from the file next to the template with the same base name
(tessera.xml -> tessera.yaml, tessera.yml or tessera.json). $Include paths are resolved in
the --includes directory, which defaults to the template directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := doctpl.ParseDialect(opts.dialect)
			if err != nil {
				return err
			}
			job.template = args[0]
			job.dialect = d

			logger := opts.logger(cmd.ErrOrStderr())
			e := &doctpl.Engine{Logger: logger}

			if !watch {
				return job.run(e, cmd.OutOrStdout())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchRender(ctx, job, e, logger)
		},
	}

	cmd.Flags().StringVarP(&job.data, "data", "d", "", "YAML or JSON data file")
	cmd.Flags().StringVarP(&job.includes, "includes", "I", "", "directory $Include paths are resolved in")
	cmd.Flags().StringVarP(&job.output, "output", "o", "html", "output format: html, json or fragment")
	cmd.Flags().StringVarP(&job.outFile, "out", "O", "", "write the output to a file instead of stdout")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "render again whenever an input file changes (requires --out)")
	return cmd
}

// renderJob is a single template rendering, repeated on every change in watch mode.
type renderJob struct {
	template string
	data     string
	includes string
	dialect  doctpl.Dialect
	output   string
	outFile  string
}

func (j *renderJob) includesDir() string {
	if j.includes != "" {
		return j.includes
	}
	return filepath.Dir(j.template)
}

// inputs lists the files and directories the rendering depends on.
func (j *renderJob) inputs() []string {
	files := []string{j.template, j.includesDir()}
	if j.data != "" {
		files = append(files, j.data)
	} else {
		files = append(files, filepath.Dir(j.template))
	}
	return files
}

func (j *renderJob) loadData() (map[string]any, error) {
	if j.data == "" {
		dir, name := filepath.Split(j.template)
		if dir == "" {
			dir = "."
		}
		return docpages.LoadData(os.DirFS(dir), strings.TrimSuffix(name, filepath.Ext(name)))
	}
	b, err := os.ReadFile(j.data)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return docpages.DecodeData(j.data, b)
}

// run renders the template and writes the result to w, or to the --out file when set.
func (j *renderJob) run(e *doctpl.Engine, w io.Writer) error {
	markup, err := os.ReadFile(j.template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	data, err := j.loadData()
	if err != nil {
		return err
	}

	t, err := e.Parse(string(markup), j.dialect)
	if err != nil {
		return fmt.Errorf("%s: %w", j.template, err)
	}

	includes, err := docpages.FSIncludes(os.DirFS(j.includesDir()), ".", t.Includes())
	if err != nil {
		return err
	}

	res, err := e.Execute(t, data, includes)
	if err != nil {
		return fmt.Errorf("%s: %w", j.template, err)
	}

	if j.outFile != "" {
		f, err := os.Create(j.outFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := j.write(f, res); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return j.write(w, res)
}

func (j *renderJob) write(w io.Writer, res *doctpl.Result) error {
	switch j.output {
	case "html", "":
		return docpages.WritePreview(w, filepath.Base(j.template), res)
	case "fragment":
		_, err := io.WriteString(w, res.HTML+"\n")
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown output format %q", j.output)
	}
}

// watchRender renders the job once and then again on every change of its inputs until ctx is
// done. Render failures are logged and do not stop the loop.
func watchRender(ctx context.Context, j *renderJob, e *doctpl.Engine, logger *slog.Logger) error {
	if j.outFile == "" {
		return fmt.Errorf("--watch requires --out")
	}

	rerender := func() {
		if err := j.run(e, io.Discard); err != nil {
			logger.Error("Render template", "template", j.template, "error", err)
			return
		}
		logger.Info("Rendered template", "template", j.template, "out", j.outFile)
	}

	dw, err := newDirWatcher(j.inputs(), []string{j.outFile}, logger)
	if err != nil {
		return err
	}
	defer dw.Close()

	rerender()
	return dw.run(ctx, rerender)
}
