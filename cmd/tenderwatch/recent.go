package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/abelbrown/tenderwatch/internal/store"
)

func newRecentCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataDir, err := openDataDir()
			if err != nil {
				return err
			}
			st, err := store.Open(filepath.Join(dataDir, "tenderwatch.db"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			visits, err := st.RecentVisits(limit)
			if err != nil {
				return err
			}
			if len(visits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notices opened yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVisits(visits, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of notices to list")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderVisits lays out visits as a table, newest first.
func renderVisits(visits []store.Visit, now time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("NOTICE", "TITLE", "SOURCE", "OPENED", "VISITS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, v := range visits {
		t.Row(
			v.NoticeID,
			runewidth.Truncate(v.Title, 60, "…"),
			string(v.Source),
			humanize.RelTime(v.VisitedAt, now, "ago", "from now"),
			strconv.Itoa(v.Count),
		)
	}
	return t.Render()
}
