package panel

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// AnalysisPhase tags the per-document analysis slot.
type AnalysisPhase int

const (
	AnalysisIdle AnalysisPhase = iota
	AnalysisLoading
	AnalysisDone
	AnalysisFailed
)

func (p AnalysisPhase) String() string {
	switch p {
	case AnalysisLoading:
		return "loading"
	case AnalysisDone:
		return "done"
	case AnalysisFailed:
		return "failed"
	default:
		return "idle"
	}
}

// AnalysisSlot is the analysis state of one document. Result is meaningful
// only in AnalysisDone, Err only in AnalysisFailed.
type AnalysisSlot struct {
	Phase  AnalysisPhase
	Result model.AnalysisResult
	Err    string
}

// ExpandStage is the state of the single expanded-document pointer.
type ExpandStage int

const (
	Collapsed ExpandStage = iota
	Expanding             // open, waiting for the analysis it triggered
	Expanded
)

// Expansion names the one document whose analysis panel is open.
type Expansion struct {
	DocID string
	Stage ExpandStage
}

// Open reports whether docID is the expanded document.
func (e Expansion) Open(docID string) bool {
	return e.Stage != Collapsed && e.DocID == docID
}

// AnalysisFor returns the analysis slot of a document.
func (m Model) AnalysisFor(docID string) AnalysisSlot {
	return m.analysis[docID]
}

// Expansion returns the expanded-document pointer.
func (m Model) Expansion() Expansion { return m.expansion }

// Analyze requests the analysis of docID and opens its panel immediately.
// A second request for a document whose analysis is already in flight is
// dropped; the in-flight reply is the one that will be stored.
func (m *Model) Analyze(docID string, force bool) tea.Cmd {
	if m.phase != PhaseReady {
		return nil
	}
	if _, ok := m.document(docID); !ok {
		return nil
	}
	if m.analysis[docID].Phase == AnalysisLoading {
		logging.Debug("analysis already in flight", "notice", m.ticket.NoticeID, "doc", docID)
		m.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindAnalysisDropped, Comp: "panel", Notice: m.ticket.NoticeID, Document: docID, Epoch: m.ticket.Epoch})
		m.expansion = Expansion{DocID: docID, Stage: Expanding}
		return nil
	}

	m.analysis[docID] = AnalysisSlot{Phase: AnalysisLoading}
	m.expansion = Expansion{DocID: docID, Stage: Expanding}

	ticket, lang := m.ticket, m.lang
	backend := m.cfg.Backend
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAnalysisStart, Comp: "panel", Notice: ticket.NoticeID, Document: docID, Epoch: ticket.Epoch, Msg: lang})

	return runRequest(m,
		func(ctx context.Context) (model.AnalysisResult, error) {
			return backend.AnalyzeDocument(ctx, ticket.NoticeID, docID, lang, force)
		},
		func(r model.AnalysisResult, err error, dur time.Duration) tea.Msg {
			return AnalysisCompleted{Ticket: ticket, DocID: docID, Result: r, Err: err, Dur: dur}
		})
}

// ToggleExpand collapses docID if it is open, otherwise opens it. Opening a
// document without a result and without a request in flight enters
// Expanding and fetches the analysis as the effect of that transition.
func (m *Model) ToggleExpand(docID string) tea.Cmd {
	if m.phase != PhaseReady {
		return nil
	}
	if m.expansion.Open(docID) {
		m.expansion = Expansion{}
		return nil
	}
	doc, ok := m.document(docID)
	if !ok {
		return nil
	}
	slot := m.analysis[docID]
	switch slot.Phase {
	case AnalysisLoading:
		m.expansion = Expansion{DocID: docID, Stage: Expanding}
		return nil
	case AnalysisDone:
		m.expansion = Expansion{DocID: docID, Stage: Expanded}
		return nil
	}
	if !analysisEligible(doc) {
		m.expansion = Expansion{DocID: docID, Stage: Expanded}
		return nil
	}
	return m.Analyze(docID, false)
}

// analysisEligible reports whether an analysis can be requested: the text is
// extractable, or the server already holds an analysis.
func analysisEligible(d model.Document) bool {
	return model.Derive(d).CanAnalyze || d.HasAIAnalysis
}

func (m *Model) applyAnalysis(msg AnalysisCompleted) tea.Cmd {
	if !m.isCurrent(msg.Ticket, "analysis") {
		return nil
	}
	if m.analysis[msg.DocID].Phase != AnalysisLoading {
		logging.Debug("unexpected analysis reply", "doc", msg.DocID)
		return nil
	}

	if m.expansion.DocID == msg.DocID && m.expansion.Stage == Expanding {
		m.expansion.Stage = Expanded
	}

	if msg.Err != nil {
		m.analysis[msg.DocID] = AnalysisSlot{Phase: AnalysisFailed, Err: api.UserMessage(msg.Err)}
		logging.Warn("analysis failed", "notice", msg.Ticket.NoticeID, "doc", msg.DocID, "error", msg.Err)
		m.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAnalysisError, Comp: "panel", Notice: msg.Ticket.NoticeID, Document: msg.DocID, Epoch: msg.Ticket.Epoch, Err: msg.Err.Error(), Dur: msg.Dur})
		return nil
	}

	m.analysis[msg.DocID] = AnalysisSlot{Phase: AnalysisDone, Result: msg.Result}
	m.cfg.Events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindAnalysisComplete, Comp: "panel",
		Notice: msg.Ticket.NoticeID, Document: msg.DocID, Epoch: msg.Ticket.Epoch,
		Msg: string(msg.Result.Status), Dur: msg.Dur,
		Extra: map[string]any{"cached": msg.Result.Cached},
	})

	// has_ai_analysis only changes through a refetch.
	if doc, ok := m.document(msg.DocID); ok && !doc.HasAIAnalysis && msg.Result.Status == model.AnalysisOK {
		return m.refreshCmd()
	}
	return nil
}
