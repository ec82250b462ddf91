package panel

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// fetchNotice requests the notice, its lots and its documents concurrently.
// Lots and documents recover to empty lists; only the notice is fatal.
func (m *Model) fetchNotice() tea.Cmd {
	ticket := m.ticket
	backend := m.cfg.Backend
	newCtx := m.requestContext()
	return func() tea.Msg {
		ctx, cancel := newCtx()
		defer cancel()
		start := time.Now()

		var (
			notice model.Notice
			lots   []model.Lot
			docs   []model.Document
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := backend.Notice(gctx, ticket.NoticeID)
			if err != nil {
				return err
			}
			notice = n
			return nil
		})
		g.Go(func() error {
			l, err := backend.Lots(gctx, ticket.NoticeID)
			if err != nil {
				logging.Warn("lots fetch failed", "notice", ticket.NoticeID, "error", err)
				return nil
			}
			lots = l
			return nil
		})
		g.Go(func() error {
			d, err := backend.Documents(gctx, ticket.NoticeID)
			if err != nil {
				logging.Warn("documents fetch failed", "notice", ticket.NoticeID, "error", err)
				return nil
			}
			docs = d
			return nil
		})
		if err := g.Wait(); err != nil {
			return NoticeLoaded{Ticket: ticket, Err: err, Dur: time.Since(start)}
		}
		if lots == nil {
			lots = []model.Lot{}
		}
		if docs == nil {
			docs = []model.Document{}
		}
		return NoticeLoaded{Ticket: ticket, Notice: notice, Lots: lots, Documents: docs, Dur: time.Since(start)}
	}
}

func (m *Model) applyNoticeLoaded(msg NoticeLoaded) tea.Cmd {
	if !m.isCurrent(msg.Ticket, "notice") {
		return nil
	}
	if msg.Err != nil {
		m.phase = PhaseNotFound
		m.loadErr = api.UserMessage(msg.Err)
		logging.Warn("notice load failed", "notice", msg.Ticket.NoticeID, "error", msg.Err)
		m.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPanelNotFound, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Err: msg.Err.Error(), Dur: msg.Dur})
		return nil
	}

	m.phase = PhaseReady
	m.notice = msg.Notice
	m.lots = msg.Lots
	m.docs = msg.Documents
	m.clampCursor()
	m.hydrateSummary(msg.Notice.Summary)

	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPanelReady, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Count: len(msg.Documents), Dur: msg.Dur})
	if m.cfg.OnLoaded != nil {
		return m.cfg.OnLoaded(m.notice)
	}
	return nil
}

// RefreshDocuments refetches the document list, the single point where
// server-side acquisition and analysis effects become visible.
func (m *Model) RefreshDocuments() tea.Cmd {
	if m.phase != PhaseReady {
		return nil
	}
	return m.refreshCmd()
}

// refreshCmd supersedes any refetch still in flight.
func (m *Model) refreshCmd() tea.Cmd {
	m.refreshSeq++
	m.refreshing = true
	ticket, seq := m.ticket, m.refreshSeq
	backend := m.cfg.Backend
	newCtx := m.requestContext()
	return func() tea.Msg {
		ctx, cancel := newCtx()
		defer cancel()
		docs, err := backend.Documents(ctx, ticket.NoticeID)
		return DocumentsRefreshed{Ticket: ticket, Seq: seq, Documents: docs, Err: err}
	}
}

// applyDocumentsRefreshed replaces the document list only. Analysis and
// download slots are keyed separately and survive the refresh.
func (m *Model) applyDocumentsRefreshed(msg DocumentsRefreshed) {
	if !m.isCurrent(msg.Ticket, "documents") {
		return
	}
	if msg.Seq != m.refreshSeq {
		logging.Debug("superseded documents reply", "seq", msg.Seq, "latest", m.refreshSeq)
		return
	}
	m.refreshing = false
	if msg.Err != nil {
		logging.Warn("documents refresh failed", "notice", msg.Ticket.NoticeID, "error", msg.Err)
		return
	}
	selected, _ := m.SelectedDocument()
	m.docs = msg.Documents
	if m.docs == nil {
		m.docs = []model.Document{}
	}
	m.cursor = 0
	for i, d := range m.docs {
		if d.ID == selected.ID {
			m.cursor = i
			break
		}
	}
}

// runRequest is the shared shape of the single-call commands.
func runRequest[T any](m *Model, call func(ctx context.Context) (T, error), wrap func(T, error, time.Duration) tea.Msg) tea.Cmd {
	newCtx := m.requestContext()
	return func() tea.Msg {
		ctx, cancel := newCtx()
		defer cancel()
		start := time.Now()
		v, err := call(ctx)
		return wrap(v, err, time.Since(start))
	}
}
