package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagetower/pkg/errors"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/stages"
)

type partitionsOpts struct {
	stage     int
	direction string
	json      bool
}

func (c *CLI) partitionsCommand() *cobra.Command {
	var opts partitionsOpts
	cmd := &cobra.Command{
		Use:   "partitions <report.json|->",
		Short: "Show per-partition counters of a stage",
		Long: `Show the channel counters of one stage broken down by partition and summed
across workers. --direction in covers the stage's input channels, out its
output or shuffle channel.`,
		Example: `  stagetower partitions report.json --stage 1
  stagetower partitions report.json --stage 2 --direction in --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitions(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVarP(&opts.stage, "stage", "s", 0, "stage number")
	cmd.Flags().StringVarP(&opts.direction, "direction", "d", string(stages.DirectionOut), "counter direction: in or out")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print rows as JSON")
	return cmd
}

func runPartitions(cmd *cobra.Command, path string, opts partitionsOpts) error {
	dir, ok := stages.ParseDirection(opts.direction)
	if !ok {
		return errors.New(errors.ErrCodeInvalidDirection, "direction must be in or out, got %q", opts.direction)
	}
	rep, err := openReport(cmd, path)
	if err != nil {
		return err
	}
	rows, err := rep.View().ByPartitionCountersForStage(opts.stage, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return reportio.WriteJSON(out, rows)
	}
	if len(rows) == 0 {
		printInfo("Stage %d reported no %s counters", opts.stage, dir)
		return nil
	}
	fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("Stage %d %sput partitions", opts.stage, dir)))
	renderPartitions(out, rows)
	return nil
}

// renderPartitions draws one row per partition with rows/bytes/frames per
// channel, plus a totals row.
func renderPartitions(w io.Writer, rows []stages.PartitionCounters) {
	channels := rows[0].ChannelNames()
	headers := []string{"Partition"}
	for _, ch := range channels {
		headers = append(headers, ch+" rows", ch+" bytes", ch+" frames")
	}

	t := newTable(headers...)
	totals := make(map[string]stages.ChannelTotals, len(channels))
	for _, row := range rows {
		cells := []string{strconv.Itoa(row.Index)}
		for _, ch := range channels {
			ct := row.Channels[ch]
			totals[ch] = totals[ch].Add(ct)
			cells = append(cells, formatCount(ct.Rows), formatBytes(ct.Bytes), formatCount(ct.Frames))
		}
		t.Row(cells...)
	}

	cells := []string{StyleDim.Render("total")}
	for _, ch := range channels {
		ct := totals[ch]
		cells = append(cells, formatCount(ct.Rows), formatBytes(ct.Bytes), formatCount(ct.Frames))
	}
	t.Row(cells...)
	fmt.Fprintln(w, t.Render())
}
