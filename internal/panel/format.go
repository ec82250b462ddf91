package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// languageName renders a language code in its own language ("français").
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}

// formatAmount renders a euro amount with the selected language's grouping.
func formatAmount(v *float64, lang string) string {
	if v == nil {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf("€%.0f", *v)
}

// formatDeadline renders an absolute date followed by a relative hint.
func formatDeadline(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	rel := humanize.RelTime(*t, now, "ago", "from now")
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), rel)
}

// lifecycleBadges describes a document's acquisition state.
func lifecycleBadges(d model.Document, lc model.Lifecycle) string {
	var parts []string
	if ft := strings.TrimSpace(d.FileType); ft != "" {
		parts = append(parts, strings.ToUpper(ft))
	}
	switch {
	case lc.IsUploaded:
		parts = append(parts, successStyle.Render("uploaded"))
	case lc.IsDownloaded:
		parts = append(parts, successStyle.Render("downloaded"))
	case lc.DownloadFailed:
		parts = append(parts, warnStyle.Render("unavailable ("+string(d.DownloadStatus)+")"))
	case lc.CanDownload:
		parts = append(parts, metaStyle.Render("downloadable"))
	case model.IsPortalPage(d):
		parts = append(parts, metaStyle.Render("portal page"))
	}
	if lc.CanAnalyze {
		parts = append(parts, successStyle.Render("analyzable"))
	}
	if d.HasAIAnalysis {
		parts = append(parts, successStyle.Render("analyzed"))
	}
	return strings.Join(parts, " · ")
}
