package panel

import (
	"context"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// summaryState is the notice-level AI summary. current is what is on
// screen; its Lang always equals the selected language.
type summaryState struct {
	current *model.Summary
	loading bool
	seq     uint64
	err     string
}

// Summary returns the displayed summary, or nil.
func (m Model) Summary() *model.Summary { return m.summary.current }

// SummaryLoading reports whether a summary request is outstanding.
func (m Model) SummaryLoading() bool { return m.summary.loading }

// SummaryError returns the last summary failure message.
func (m Model) SummaryError() string { return m.summary.err }

// hydrateSummary pre-seeds the controller from the summary cached on the
// notice record. The language selection follows the cached summary.
func (m *Model) hydrateSummary(s *model.Summary) {
	if s == nil || s.Text == "" {
		return
	}
	cp := *s
	m.summary.current = &cp
	if cp.Lang != "" {
		m.lang = cp.Lang
	}
}

// GenerateSummary requests a summary in the selected language. force asks
// the server to regenerate instead of returning its cached copy.
func (m *Model) GenerateSummary(force bool) tea.Cmd {
	if m.phase != PhaseReady {
		return nil
	}
	lang := m.lang
	if m.summary.current != nil && m.summary.current.Lang != lang {
		m.summary.current = nil
	}
	m.summary.loading = true
	m.summary.seq++
	m.summary.err = ""

	ticket, seq := m.ticket, m.summary.seq
	backend := m.cfg.Backend
	logging.Debug("summary requested", "notice", ticket.NoticeID, "lang", lang, "force", force, "seq", seq)
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSummaryStart, Comp: "panel", Notice: ticket.NoticeID, Epoch: ticket.Epoch, Msg: lang})

	return runRequest(m,
		func(ctx context.Context) (model.Summary, error) {
			return backend.Summary(ctx, ticket.NoticeID, lang, force)
		},
		func(s model.Summary, err error, dur time.Duration) tea.Msg {
			if s.Lang == "" {
				s.Lang = lang
			}
			return SummaryGenerated{Ticket: ticket, Seq: seq, Summary: s, Err: err, Dur: dur}
		})
}

func (m *Model) applySummary(msg SummaryGenerated) {
	if !m.isCurrent(msg.Ticket, "summary") {
		return
	}
	if msg.Seq != m.summary.seq {
		logging.Debug("superseded summary reply", "seq", msg.Seq, "latest", m.summary.seq)
		return
	}
	m.summary.loading = false
	if msg.Err != nil {
		m.summary.err = api.UserMessage(msg.Err)
		logging.Warn("summary failed", "notice", msg.Ticket.NoticeID, "error", msg.Err)
		m.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindSummaryError, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Err: msg.Err.Error(), Dur: msg.Dur})
		return
	}
	s := msg.Summary
	m.summary.current = &s
	m.summary.err = ""
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSummaryComplete, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Msg: s.Lang, Dur: msg.Dur})
}

// SetLanguage changes the selected language. A displayed summary in another
// language is cleared, and an outstanding summary request for the old
// language is superseded.
func (m *Model) SetLanguage(lang string) {
	if lang == "" || lang == m.lang {
		return
	}
	m.lang = lang
	if m.summary.current != nil && m.summary.current.Lang != lang {
		m.summary.current = nil
	}
	if m.summary.loading {
		m.summary.seq++
		m.summary.loading = false
	}
}

// CycleLanguage selects the next configured language.
func (m *Model) CycleLanguage() {
	langs := m.cfg.Languages
	i := slices.Index(langs, m.lang)
	m.SetLanguage(langs[(i+1)%len(langs)])
}
