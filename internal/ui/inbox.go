package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

var now = time.Now

// renderInbox renders recent visits and watchlist entries as a cursor list
// with one header per section.
func renderInbox(rows []row, cursor int, width, height int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("Nothing here yet. Press 'o' to open a notice by id, 'r' to refresh.")
	}

	availableHeight := max(height, 1)
	scrollOffset := calcScrollOffset(rows, cursor, availableHeight)

	var b strings.Builder
	rendered := 0
	for i := scrollOffset; i < len(rows) && rendered < availableHeight; i++ {
		r := rows[i]
		if i == scrollOffset || rows[i-1].recent != r.recent {
			b.WriteString(SectionHeader.Render(sectionName(r.recent)))
			b.WriteString("\n")
			rendered += 2 // MarginTop adds a blank line
			if rendered >= availableHeight {
				break
			}
		}
		b.WriteString(renderRow(r, i == cursor, width))
		b.WriteString("\n")
		rendered++
	}
	return b.String()
}

func sectionName(recent bool) string {
	if recent {
		return "Recently opened"
	}
	return "Watchlists"
}

// calcScrollOffset keeps the cursor visible. Headers take two lines each and
// there are at most two of them.
func calcScrollOffset(rows []row, cursor, availableHeight int) int {
	usable := availableHeight - 4
	if usable < 1 {
		usable = 1
	}
	if cursor >= usable {
		return min(cursor-usable+1, len(rows)-1)
	}
	return 0
}

// renderRow renders a single inbox line.
func renderRow(r row, selected bool, width int) string {
	e := r.entry
	badgeText := e.Watchlist
	if r.recent {
		badgeText = "visited"
	}
	badge := WatchlistBadge.Render(badgeText)
	age := ""
	if !e.Published.IsZero() {
		age = AgeStyle.Render(humanize.RelTime(e.Published, now(), "ago", "from now"))
	}

	title := e.Title
	if title == "" {
		title = e.NoticeID
	} else {
		title = fmt.Sprintf("%s  %s", e.NoticeID, title)
	}
	titleWidth := width - lipgloss.Width(badge) - lipgloss.Width(age) - 6
	if titleWidth < 20 {
		titleWidth = 20
	}
	title = runewidth.Truncate(title, titleWidth, "…")

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	return fmt.Sprintf("%s%s %s", badge, style.Render(title), age)
}

// renderStatusBar renders key hints plus the last watchlist status.
func (a App) renderStatusBar() string {
	var keys []string
	if a.mode == ModePanel {
		if a.panel.CapturesInput() {
			keys = append(keys, key("enter", "submit"), key("esc", "cancel"))
		} else {
			keys = append(keys, key("esc", "inbox"), key("q", "quit"))
		}
	} else if a.typingID {
		keys = append(keys, key("enter", "open"), key("esc", "cancel"))
	} else {
		keys = append(keys,
			key("j/k", "move"),
			key("enter", "open"),
			key("o", "open id"),
			key("r", "refresh"),
			key("q", "quit"),
		)
	}

	left := strings.Join(keys, "  ")
	if a.loading {
		left += StatusBarText.Render("  loading…")
	}
	right := ""
	if a.status != "" {
		right = StatusBarText.Render(a.status + " " + humanize.RelTime(a.statusAt, now(), "ago", "from now"))
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBar.Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func key(k, desc string) string {
	return StatusBarKey.Render(k) + StatusBarText.Render(":"+desc)
}
