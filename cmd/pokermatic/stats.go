package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Padding(0, 1)
)

// StatsCmd prints per-bot finishing statistics
type StatsCmd struct {
	File string `short:"f" default:"pokermatic-stats.json" help:"Statistics file written by the server"`
}

func (c *StatsCmd) Run() error {
	summaries, err := stats.NewStore(c.File, quartz.NewReal()).Summaries()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No tournaments recorded yet")
		return nil
	}
	fmt.Println(renderSummaries(summaries))
	return nil
}

func renderSummaries(summaries []stats.Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Tournaments),
			strconv.Itoa(s.Wins),
			fmt.Sprintf("%.1f%%", s.AveragePercentile),
			fmt.Sprintf("%.1f", s.StdDev),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Bot", "Played", "Wins", "Avg field ahead", "Std dev").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(summaries) && summaries[row].Wins > 0 && col == 2:
				return winnerStyle
			default:
				return cellStyle
			}
		}).
		String()
}
