package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagetower/pkg/errors"
	"github.com/matzehuels/stagetower/pkg/pipeline"
)

type graphOpts struct {
	formats  string
	output   string
	detailed bool
	progress bool
	noCache  bool
	refresh  bool
}

func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts
	cmd := &cobra.Command{
		Use:   "graph <report.json|->",
		Short: "Render the stage graph",
		Long: `Render the stage graph of a report as Graphviz DOT, SVG or JSON.

Each format is written to <output>.<format>. With -o - a single format is
written to stdout.`,
		Example: `  stagetower graph report.json
  stagetower graph report.json -f dot,svg -o plan --progress
  stagetower graph report.json -f dot -o - | dot -Tpng > plan.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.formats, "format", "f", pipeline.FormatSVG, "output formats: "+strings.Join(pipeline.SupportedFormats, ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path prefix (default: report file name without extension)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include stage metadata in node labels")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "include stage progress in node labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")
	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, path string, opts graphOpts) error {
	ctx := cmd.Context()
	formats := parseFormats(opts.formats)
	if opts.output == "-" && len(formats) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "-o - needs exactly one format, got %d", len(formats))
	}

	rep, err := openReport(cmd, path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	sp := newSpinner(ctx, "Rendering stage graph...")
	sp.Start()
	artifacts, hit, err := runner.RenderGraph(ctx, rep, pipeline.RenderOptions{
		Formats:      formats,
		Detailed:     opts.detailed,
		ShowProgress: opts.progress,
		Refresh:      opts.refresh,
	})
	if err != nil {
		sp.StopWithError("Render failed")
		return err
	}
	sp.Stop()
	prog.done("rendered stage graph", "formats", strings.Join(formats, ","), "cached", hit)

	if opts.output == "-" {
		_, err := cmd.OutOrStdout().Write(artifacts[formats[0]])
		return err
	}

	prefix := opts.output
	if prefix == "" {
		prefix = defaultPrefix(path, rep.ID)
	}
	var written []string
	for _, format := range formats {
		out := prefix + "." + format
		if err := os.WriteFile(out, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		written = append(written, out)
	}

	printSuccess("Rendered %d stages %s", len(rep.Stages), cacheStatus(hit))
	for _, out := range written {
		printFile(out)
	}
	return nil
}

// defaultPrefix derives an output prefix from the report path, or from the
// report ID when reading stdin.
func defaultPrefix(path, id string) string {
	if path == "-" {
		if id == "" {
			return "stages"
		}
		return id
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}
