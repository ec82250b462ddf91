package panel

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// qaState is the question-answering session of the open notice. At most one
// question is outstanding, so history is always in ask order.
type qaState struct {
	history  []model.Exchange
	pending  string
	inFlight bool
	err      string
	input    textinput.Model
}

func newQAState() qaState {
	in := textinput.New()
	in.Placeholder = "Ask about this notice…"
	in.Prompt = "? "
	in.CharLimit = 500
	return qaState{input: in}
}

func (q *qaState) reset() {
	q.history = nil
	q.pending = ""
	q.inFlight = false
	q.err = ""
	q.input.Reset()
}

// History returns the exchanges of the current notice in ask order.
func (m Model) History() []model.Exchange { return m.qa.history }

// Asking reports whether a question is outstanding.
func (m Model) Asking() bool { return m.qa.inFlight }

// AskError returns the last transport failure of the Q&A session.
func (m Model) AskError() string { return m.qa.err }

// QuestionInput returns the typed, not yet answered question.
func (m Model) QuestionInput() string { return m.qa.input.Value() }

// SetQuestion replaces the question input. Ignored while a question is in
// flight.
func (m *Model) SetQuestion(q string) {
	if m.qa.inFlight {
		return
	}
	m.qa.input.SetValue(q)
}

// Ask submits question. It is a no-op for an empty question or while an
// earlier question is unanswered.
func (m *Model) Ask(question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if m.phase != PhaseReady || question == "" || m.qa.inFlight {
		return nil
	}
	m.qa.inFlight = true
	m.qa.pending = question
	m.qa.err = ""

	ticket, lang := m.ticket, m.lang
	backend := m.cfg.Backend
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAsk, Comp: "panel", Notice: ticket.NoticeID, Epoch: ticket.Epoch})

	return runRequest(m,
		func(ctx context.Context) (model.Answer, error) {
			return backend.Ask(ctx, ticket.NoticeID, question, lang)
		},
		func(a model.Answer, err error, dur time.Duration) tea.Msg {
			return AnswerReceived{Ticket: ticket, Question: question, Answer: a, Err: err, Dur: dur}
		})
}

// applyAnswer appends the exchange and clears the input. A transport error
// leaves the history and the typed question untouched. A non-ok answer
// status is a displayable outcome and is appended like any other.
func (m *Model) applyAnswer(msg AnswerReceived) {
	if !m.isCurrent(msg.Ticket, "answer") {
		return
	}
	if !m.qa.inFlight || msg.Question != m.qa.pending {
		logging.Debug("unexpected answer", "question", msg.Question)
		return
	}
	m.qa.inFlight = false
	m.qa.pending = ""

	if msg.Err != nil {
		m.qa.err = api.UserMessage(msg.Err)
		logging.Warn("question failed", "notice", msg.Ticket.NoticeID, "error", msg.Err)
		m.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAskError, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Err: msg.Err.Error(), Dur: msg.Dur})
		return
	}

	m.qa.history = append(m.qa.history, model.Exchange{Question: msg.Question, Answer: msg.Answer})
	m.qa.input.Reset()
	m.qa.err = ""
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAnswer, Comp: "panel", Notice: msg.Ticket.NoticeID, Epoch: msg.Ticket.Epoch, Msg: msg.Answer.Status, Count: len(msg.Answer.Sources), Dur: msg.Dur})
}
