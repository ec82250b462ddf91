package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// now is swapped in tests.
var now = time.Now

// View renders the panel.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	switch m.phase {
	case PhaseEmpty:
		return mutedStyle.Render("No notice selected.")
	case PhaseLoading:
		return m.spinner.View() + " " + metaStyle.Render("Loading notice "+m.ticket.NoticeID+"…")
	case PhaseNotFound:
		msg := "Notice " + m.ticket.NoticeID + " not found"
		if m.loadErr != "" {
			msg += ": " + m.loadErr
		}
		return errorStyle.Render(msg) + "\n" + mutedStyle.Render("esc to go back")
	}

	var b strings.Builder
	b.WriteString(m.viewHeader(width))
	b.WriteString(m.viewSummary(width))
	if m.cfg.ShowLots && len(m.lots) > 0 {
		b.WriteString(m.viewLots(width))
	}
	b.WriteString(m.viewDocuments(width))
	b.WriteString(m.viewAcquisition())
	b.WriteString(m.viewQA(width))
	b.WriteString("\n")
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m Model) viewHeader(width int) string {
	n := m.notice
	var b strings.Builder

	star := ""
	if n.Favorite {
		star = " " + favStyle.Render("★")
	}
	b.WriteString(sourceBadge.Render(string(n.Source)))
	b.WriteString(titleStyle.Render(truncate(n.Title, width-12)))
	b.WriteString(star)
	b.WriteString("\n")

	var meta []string
	if org := n.OrganisationFor(m.lang); org != "" {
		meta = append(meta, org)
	}
	if n.CPVCode != "" {
		meta = append(meta, "CPV "+n.CPVCode)
	}
	if !n.PublishedAt.IsZero() {
		meta = append(meta, "published "+n.PublishedAt.Format("2006-01-02"))
	}
	if n.DeadlineAt != nil {
		meta = append(meta, "deadline "+formatDeadline(n.DeadlineAt, now()))
	}
	if v := formatAmount(n.EstimatedValue, m.lang); v != "" {
		meta = append(meta, "est. "+v)
	}
	if v := formatAmount(n.AwardedValue, m.lang); v != "" {
		meta = append(meta, "awarded "+v)
	}
	b.WriteString(metaStyle.Render(truncate(strings.Join(meta, " · "), width)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewSummary(width int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("AI summary · %s", languageName(m.lang))))
	b.WriteString("\n")

	s := m.summary
	switch {
	case s.current != nil:
		b.WriteString(m.renderMarkdown(s.current.Text, width-2))
		b.WriteString("\n")
		var meta []string
		if !s.current.GeneratedAt.IsZero() {
			meta = append(meta, "generated "+s.current.GeneratedAt.Format("2006-01-02 15:04"))
		}
		if s.current.Cached {
			meta = append(meta, "cached")
		}
		if len(meta) > 0 {
			b.WriteString(mutedStyle.Render(strings.Join(meta, " · ")))
			b.WriteString("\n")
		}
	case !s.loading:
		b.WriteString(mutedStyle.Render("No summary yet. Press s to generate."))
		b.WriteString("\n")
	}
	if s.loading {
		b.WriteString(m.spinner.View() + " " + metaStyle.Render("Generating summary…"))
		b.WriteString("\n")
	}
	if s.err != "" {
		b.WriteString(errorStyle.Render("Summary failed: " + s.err))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewLots(width int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Lots (%d)", len(m.lots))))
	b.WriteString("\n")
	for _, l := range m.lots {
		line := fmt.Sprintf("  %s. %s", l.Number, l.Title)
		b.WriteString(textStyle.Render(truncate(line, width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewDocuments(width int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Documents (%d)", len(m.docs))))
	if m.refreshing {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")
	if len(m.docs) == 0 {
		b.WriteString(mutedStyle.Render("  No documents."))
		b.WriteString("\n")
		return b.String()
	}

	for i, d := range m.docs {
		aff := m.DocumentAffordances(d)
		marker := "  "
		if m.expansion.Open(d.ID) {
			marker = "▾ "
		} else if aff.Expandable {
			marker = "▸ "
		}
		title := d.Title
		if title == "" {
			title = d.ID
		}
		line := marker + truncate(title, width/2)
		if i == m.cursor {
			line = selectedDoc.Render(line)
		}
		b.WriteString(line)
		b.WriteString("  ")
		b.WriteString(lifecycleBadges(d, aff.Lifecycle))

		dl := m.downloads[d.ID]
		if dl.Loading {
			b.WriteString("  " + m.spinner.View() + " downloading")
		} else if dl.Message != "" {
			style := metaStyle
			if dl.Failed {
				style = errorStyle
			}
			b.WriteString("  " + style.Render(dl.Message))
		}
		b.WriteString("\n")

		if m.expansion.Open(d.ID) {
			b.WriteString(m.viewAnalysis(d, width-8))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewAnalysis(d model.Document, width int) string {
	slot := m.analysis[d.ID]
	var body string
	switch slot.Phase {
	case AnalysisLoading:
		body = m.spinner.View() + " " + metaStyle.Render("Analyzing…")
	case AnalysisFailed:
		body = errorStyle.Render("Analysis failed: " + slot.Err)
	case AnalysisDone:
		body = m.renderAnalysis(slot.Result, width-4)
	default:
		body = mutedStyle.Render("No analysis available. Download or upload the document first.")
	}
	return analysisBox.Width(max(width, 20)).Render(body)
}

func (m Model) renderAnalysis(r model.AnalysisResult, width int) string {
	switch r.Status {
	case model.AnalysisNoText:
		msg := r.Message
		if msg == "" {
			msg = "No extractable text in this document."
		}
		return warnStyle.Render(msg)
	case model.AnalysisError:
		return warnStyle.Render(r.Message)
	}

	var md strings.Builder
	if s := r.Analysis.Structured; s != nil {
		if s.Summary != "" {
			md.WriteString(s.Summary + "\n\n")
		}
		writeList(&md, "Objectives", s.Objectives)
		writeList(&md, "Lots", s.Lots)
		writeList(&md, "Eligibility", s.Eligibility)
		writeList(&md, "Deadlines", s.Deadlines)
		if s.SMEScore != nil {
			fmt.Fprintf(&md, "**SME accessibility:** %d/5", *s.SMEScore)
			if s.SMERationale != "" {
				md.WriteString(": " + s.SMERationale)
			}
			md.WriteString("\n")
		}
	} else {
		md.WriteString(r.Analysis.Text)
	}

	out := m.renderMarkdown(md.String(), width)
	var tags []string
	if r.Cached {
		tags = append(tags, "cached")
	}
	tags = append(tags, "A to regenerate")
	return out + "\n" + mutedStyle.Render(strings.Join(tags, " · "))
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}

func (m Model) renderMarkdown(content string, width int) string {
	if m.markdown == nil {
		return textStyle.Render(content)
	}
	return m.markdown.Render(content, width)
}

func (m Model) viewAcquisition() string {
	var lines []string
	add := func(label string, s OpSlot) {
		switch {
		case s.Loading:
			lines = append(lines, m.spinner.View()+" "+label+"…")
		case s.Failed:
			lines = append(lines, errorStyle.Render(label+": "+s.Message))
		case s.Message != "":
			lines = append(lines, successStyle.Render(label+": "+s.Message))
		}
	}
	add("Upload", m.upload)
	add("Discover", m.discover)
	add("Favorite", m.favorite)

	var b strings.Builder
	if m.focus == FocusUpload {
		b.WriteString("\n" + m.uploadInput.View() + "\n")
	}
	if len(lines) > 0 {
		b.WriteString(strings.Join(lines, "\n") + "\n")
	}
	return b.String()
}

func (m Model) viewQA(width int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Questions"))
	b.WriteString("\n")
	for _, ex := range m.qa.history {
		b.WriteString(keyStyle.Render("Q: ") + textStyle.Render(ex.Question) + "\n")
		if ex.Answer.OK() {
			b.WriteString(m.renderMarkdown(ex.Answer.Text, width-2) + "\n")
			if len(ex.Answer.Sources) > 0 {
				b.WriteString(mutedStyle.Render("sources: "+strings.Join(ex.Answer.Sources, ", ")) + "\n")
			}
		} else {
			msg := ex.Answer.Message
			if msg == "" {
				msg = ex.Answer.Status
			}
			b.WriteString(warnStyle.Render(msg) + "\n")
		}
	}
	if m.qa.inFlight {
		b.WriteString(keyStyle.Render("Q: ") + textStyle.Render(m.qa.pending) + "\n")
		b.WriteString(m.spinner.View() + " " + metaStyle.Render("Thinking…") + "\n")
	}
	if m.focus == FocusQuestion || m.qa.input.Value() != "" {
		b.WriteString(m.qa.input.View() + "\n")
	}
	if m.qa.err != "" {
		b.WriteString(errorStyle.Render("Question failed: "+m.qa.err) + "\n")
	}
	return b.String()
}

func (m Model) viewHelp() string {
	if m.focus != FocusDocuments {
		return metaStyle.Render("enter submit · esc cancel")
	}
	aff := m.Affordances()
	hints := []string{"j/k move", "enter expand"}
	if d, ok := m.SelectedDocument(); ok {
		da := m.DocumentAffordances(d)
		if da.Analyze {
			hints = append(hints, "a analyze")
		}
		if da.Regenerate {
			hints = append(hints, "A re-analyze")
		}
		if da.Download {
			hints = append(hints, "d download")
		}
	}
	if aff.GenerateSummary {
		hints = append(hints, "s summary")
	}
	if aff.RegenerateSummary {
		hints = append(hints, "S regenerate")
	}
	hints = append(hints, "l language")
	if aff.Discover {
		hints = append(hints, "D discover")
	}
	if aff.Upload {
		hints = append(hints, "u upload")
	}
	if aff.Ask {
		hints = append(hints, "? ask")
	}
	hints = append(hints, "f favorite", "r refresh", "esc back")
	return metaStyle.Render(strings.Join(hints, " · "))
}
