package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stagetower/pkg/stages"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

func (c *CLI) browseCommand() *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "browse <report.json|->",
		Short: "Browse stages interactively",
		Long: `Browse the stages of a report. Select a stage to see its per-partition
counters; tab switches between input and output counters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rep, err := openReport(cmd, args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			sum, _, err := runner.Analyze(ctx, rep)
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewStageListModel(rep, sum.StageProgress), tea.WithContext(ctx), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

// StageListModel is the bubbletea model behind `stagetower browse`.
type StageListModel struct {
	Title     string
	Stages    *stages.Stages
	Progress  map[int]float64
	Cursor    int
	Offset    int
	Height    int
	Detail    bool
	Direction stages.Direction
}

// NewStageListModel creates a browser over rep with precomputed stage progress.
func NewStageListModel(rep *stages.Report, progress map[int]float64) StageListModel {
	title := "Stages"
	if rep.ID != "" {
		title += " · " + rep.ID
	}
	return StageListModel{
		Title:     title,
		Stages:    rep.View(),
		Progress:  progress,
		Height:    15,
		Direction: stages.DirectionOut,
	}
}

func (m StageListModel) Init() tea.Cmd {
	return nil
}

func (m StageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.Detail {
				return m, tea.Quit
			}
			m.Detail = false
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				m.Offset = min(m.Offset, m.Cursor)
			}
		case "down", "j":
			if m.Cursor < m.Stages.Len()-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Detail = !m.Detail
		case "tab":
			if m.Direction == stages.DirectionOut {
				m.Direction = stages.DirectionIn
			} else {
				m.Direction = stages.DirectionOut
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height/2-6, 3)
	}
	return m, nil
}

func (m StageListModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ counters  tab in/out  q quit"))
	b.WriteString("\n\n")

	all := m.Stages.All()
	end := min(m.Offset+m.Height, len(all))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		st := all[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(st.StageNumber),
			st.Definition.Processor.Type,
			string(st.Phase),
			formatInputs(st),
			fmt.Sprintf("%5.1f%%", m.Progress[st.StageNumber]*100),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "Stage", "Processor", "Phase", "Inputs", "Progress").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			if idx == m.Cursor {
				return listSelectedStyle
			}
			if col == 3 && idx < len(all) {
				if style, ok := phaseStyles[all[idx].Phase]; ok {
					return style
				}
			}
			return lipgloss.NewStyle()
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(all))))

	if m.Detail && m.Cursor < len(all) {
		b.WriteString("\n\n")
		b.WriteString(m.detailView(all[m.Cursor].StageNumber))
	}
	return b.String()
}

func (m StageListModel) detailView(stage int) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("Stage %d %sput partitions", stage, m.Direction)))
	b.WriteString("\n")

	rows, err := m.Stages.ByPartitionCountersForStage(stage, m.Direction)
	switch {
	case err != nil:
		b.WriteString(StyleWarning.Render(err.Error()))
	case len(rows) == 0:
		b.WriteString(listDimStyle.Render("no counters reported"))
	default:
		renderPartitions(&b, rows)
	}
	return b.String()
}
