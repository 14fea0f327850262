package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/pipeline"
	"github.com/matzehuels/stagetower/pkg/stages"
)

type inspectOpts struct {
	json    bool
	noCache bool
}

func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts
	cmd := &cobra.Command{
		Use:   "inspect <report.json|->",
		Short: "Summarize a stage report",
		Long: `Summarize a stage report: one row per stage with its phase, inputs and
progress, followed by the merge histograms of every sorting stage.`,
		Example: `  stagetower inspect report.json
  gunzip -c report.json.gz | stagetower inspect -
  stagetower inspect report.json --json | jq .overallProgress`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runInspect(cmd *cobra.Command, path string, opts inspectOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	rep, err := openReport(cmd, path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	sum, hit, err := runner.Analyze(ctx, rep)
	if err != nil {
		return err
	}
	prog.done("analyzed report", "stages", sum.StageCount, "cached", hit)

	out := cmd.OutOrStdout()
	if opts.json {
		return reportio.WriteJSON(out, sum)
	}
	renderSummary(out, rep, sum, hit)
	return nil
}

func renderSummary(w io.Writer, rep *stages.Report, sum *pipeline.Summary, hit bool) {
	view := rep.View()
	title := "Report"
	if rep.ID != "" {
		title += " " + rep.ID
	}
	fmt.Fprintln(w, StyleTitle.Render(title))
	printKeyValue(w, "Stages", strconv.Itoa(sum.StageCount))
	printKeyValue(w, "Progress", progressBar(sum.OverallProgress, 20))
	printKeyValue(w, "Analysis", cacheStatus(hit))
	fmt.Fprintln(w)

	t := newTable("Stage", "Processor", "Phase", "Inputs", "Workers", "Partitions", "Rows out", "Progress")
	for _, st := range view.All() {
		phase := string(st.Phase)
		if style, ok := phaseStyles[st.Phase]; ok {
			phase = style.Render(phase)
		}
		out := view.ChannelTotals(st.StageNumber, st.OutputChannel())
		t.Row(
			strconv.Itoa(st.StageNumber),
			st.Definition.Processor.Type,
			phase,
			formatInputs(st),
			strconv.Itoa(st.WorkerCount),
			strconv.Itoa(st.PartitionCount),
			formatCount(out.Rows),
			progressBar(sum.StageProgress[st.StageNumber], 10),
		)
	}
	fmt.Fprintln(w, t.Render())

	for _, stage := range slices.Sorted(maps.Keys(sum.SortProgress)) {
		fmt.Fprintln(w)
		renderSortProgress(w, stage, sum.SortProgress[stage])
	}
}

// formatInputs lists a stage's inputs: stage numbers as "#n", other inputs
// by data source.
func formatInputs(st stages.Stage) string {
	var parts []string
	for _, in := range st.Definition.Input {
		switch {
		case in.Type == stages.InputTypeStage:
			parts = append(parts, "#"+strconv.Itoa(in.Stage))
		case in.DataSource != "":
			parts = append(parts, in.DataSource)
		default:
			parts = append(parts, in.Type)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func renderSortProgress(w io.Writer, stage int, agg stages.AggregatedSortProgress) {
	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("Stage %d sort progress", stage)))

	var levels []string
	for _, n := range slices.Sorted(maps.Keys(agg.TotalMergingLevels)) {
		levels = append(levels, fmt.Sprintf("%d (%s)", n, plural(agg.Workers(n), "worker")))
	}
	if len(levels) == 0 {
		levels = []string{"unknown"}
	}
	printKeyValue(w, "Levels", strings.Join(levels, ", "))

	t := newTable("Level", "Batches")
	for _, level := range agg.Levels() {
		t.Row(strconv.Itoa(level), formatHistogram(agg.LevelToBatches[level]))
	}
	fmt.Fprintln(w, t.Render())
}

// formatHistogram renders batches->workers as "3 batches × 1, 2 batches × 1".
func formatHistogram(hist map[int]int) string {
	parts := make([]string, 0, len(hist))
	for _, batches := range slices.Sorted(maps.Keys(hist)) {
		parts = append(parts, fmt.Sprintf("%s × %d", plural(batches, "batch"), hist[batches]))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "ch") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
