// Package panel implements the notice intelligence panel: a Bubble Tea
// component that loads one procurement notice and drives its AI summary,
// per-document analysis, document acquisition and question answering.
//
// All remote calls run as tea.Cmds. Their completions come back through
// Update tagged with the Ticket of the panel session that issued them, so
// a reply that arrives after the user switched notices is dropped instead
// of leaking into the new notice's state.
package panel

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// Phase is the entity-fetch state of the panel.
type Phase int

const (
	PhaseEmpty Phase = iota // no notice opened yet
	PhaseLoading
	PhaseReady
	PhaseNotFound
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseNotFound:
		return "not_found"
	default:
		return "empty"
	}
}

// Focus is the input that receives typed text.
type Focus int

const (
	FocusDocuments Focus = iota
	FocusQuestion
	FocusUpload
)

// Config wires the panel to its collaborators.
type Config struct {
	Backend Backend

	// Languages is the cycle order for the language selector. Language is
	// the initial selection.
	Languages []string
	Language  string

	// Context bounds every request; cancel it on shutdown.
	Context context.Context
	// Timeout applies to each request on top of Context. Zero means none.
	Timeout time.Duration

	Events   *otel.Logger
	Markdown bool
	ShowLots bool

	// OnLoaded runs when a notice becomes ready (e.g. to record a visit).
	OnLoaded func(n model.Notice) tea.Cmd
}

// Model is the panel state for one notice at a time.
type Model struct {
	cfg Config

	epoch   uint64
	ticket  Ticket
	phase   Phase
	loadErr string

	notice model.Notice
	lots   []model.Lot
	docs   []model.Document
	cursor int

	lang       string
	summary    summaryState
	analysis   map[string]AnalysisSlot
	expansion  Expansion
	downloads  map[string]OpSlot
	upload     OpSlot
	discover   OpSlot
	favorite   OpSlot
	refreshing bool
	refreshSeq uint64
	qa         qaState

	focus       Focus
	uploadInput textinput.Model
	spinner     spinner.Model
	width       int
	height      int
	markdown    *markdownRenderer
}

// New creates an empty panel. Call Open to load a notice.
func New(cfg Config) Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"fr", "nl", "en"}
	}
	if cfg.Language == "" {
		cfg.Language = cfg.Languages[0]
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	up := textinput.New()
	up.Placeholder = "path/to/file.pdf"
	up.Prompt = "upload> "
	up.CharLimit = 1024

	m := Model{
		cfg:         cfg,
		lang:        cfg.Language,
		spinner:     s,
		uploadInput: up,
		qa:          newQAState(),
	}
	if cfg.Markdown {
		m.markdown = newMarkdownRenderer()
	}
	m.reset()
	return m
}

// reset clears every notice-scoped map and slot. It runs before any fetch
// for a new notice is issued.
func (m *Model) reset() {
	m.notice = model.Notice{}
	m.lots = nil
	m.docs = nil
	m.cursor = 0
	m.loadErr = ""
	m.summary = summaryState{}
	m.analysis = make(map[string]AnalysisSlot)
	m.expansion = Expansion{}
	m.downloads = make(map[string]OpSlot)
	m.upload = OpSlot{}
	m.discover = OpSlot{}
	m.favorite = OpSlot{}
	m.refreshing = false
	m.qa.reset()
	m.uploadInput.Reset()
	m.setFocus(FocusDocuments)
}

// Open switches the panel to notice id. Every keyed map is cleared and the
// epoch advances before the entity fetch is issued, so replies to requests
// from the previous notice (or a previous open of the same one) are ignored.
func (m *Model) Open(id string) tea.Cmd {
	m.reset()
	m.epoch++
	m.ticket = Ticket{NoticeID: id, Epoch: m.epoch}
	m.phase = PhaseLoading
	m.lang = m.cfg.Language

	logging.Info("panel open", "notice", id, "epoch", m.epoch)
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPanelOpen, Comp: "panel", Notice: id, Epoch: m.epoch})
	return m.fetchNotice()
}

// Close drops the current notice. Outstanding replies become stale.
func (m *Model) Close() {
	m.reset()
	m.epoch++
	m.ticket = Ticket{Epoch: m.epoch}
	m.phase = PhaseEmpty
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSize updates the render dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.qa.input.Width = max(width-12, 10)
	m.uploadInput.Width = max(width-12, 10)
}

// isCurrent is the staleness guard applied to every completion message.
func (m *Model) isCurrent(t Ticket, what string) bool {
	if t == m.ticket && m.phase != PhaseEmpty {
		return true
	}
	logging.Debug("panel stale reply", "what", what, "notice", t.NoticeID, "epoch", t.Epoch, "active", m.ticket.NoticeID, "active_epoch", m.ticket.Epoch)
	m.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPanelStale, Comp: "panel", Notice: t.NoticeID, Epoch: t.Epoch, Msg: what})
	return false
}

// requestContext returns a factory for per-request contexts, called from
// inside the command so the timeout starts when the request does.
func (m *Model) requestContext() func() (context.Context, context.CancelFunc) {
	parent, timeout := m.cfg.Context, m.cfg.Timeout
	return func() (context.Context, context.CancelFunc) {
		if timeout > 0 {
			return context.WithTimeout(parent, timeout)
		}
		return context.WithCancel(parent)
	}
}

// Update applies a message to the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case NoticeLoaded:
		return m, m.applyNoticeLoaded(msg)

	case DocumentsRefreshed:
		m.applyDocumentsRefreshed(msg)
		return m, nil

	case SummaryGenerated:
		m.applySummary(msg)
		return m, nil

	case AnalysisCompleted:
		return m, m.applyAnalysis(msg)

	case AnswerReceived:
		m.applyAnswer(msg)
		return m, nil

	case DownloadCompleted:
		return m, m.applyDownload(msg)

	case UploadCompleted:
		return m, m.applyUpload(msg)

	case DiscoveryCompleted:
		return m, m.applyDiscovery(msg)

	case FavoriteToggled:
		m.applyFavorite(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// Ticket returns the active ticket.
func (m Model) Ticket() Ticket { return m.ticket }

// Phase returns the entity-fetch state.
func (m Model) Phase() Phase { return m.phase }

// LoadError returns the reason the notice could not be loaded.
func (m Model) LoadError() string { return m.loadErr }

// Notice returns the loaded notice.
func (m Model) Notice() model.Notice { return m.notice }

// Lots returns the loaded lots.
func (m Model) Lots() []model.Lot { return m.lots }

// Documents returns the current document list.
func (m Model) Documents() []model.Document { return m.docs }

// Language returns the selected language.
func (m Model) Language() string { return m.lang }

// Cursor returns the index of the highlighted document.
func (m Model) Cursor() int { return m.cursor }

// Focus returns which input receives keystrokes.
func (m Model) Focus() Focus { return m.focus }

// Busy reports whether any request is outstanding.
func (m Model) Busy() bool {
	if m.phase == PhaseLoading || m.summary.loading || m.qa.inFlight || m.refreshing {
		return true
	}
	if m.upload.Loading || m.discover.Loading || m.favorite.Loading {
		return true
	}
	for _, s := range m.analysis {
		if s.Phase == AnalysisLoading {
			return true
		}
	}
	for _, s := range m.downloads {
		if s.Loading {
			return true
		}
	}
	return false
}

func (m *Model) document(id string) (model.Document, bool) {
	for _, d := range m.docs {
		if d.ID == id {
			return d, true
		}
	}
	return model.Document{}, false
}

// SelectedDocument returns the document under the cursor.
func (m Model) SelectedDocument() (model.Document, bool) {
	if m.cursor < 0 || m.cursor >= len(m.docs) {
		return model.Document{}, false
	}
	return m.docs[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.docs) {
		m.cursor = len(m.docs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	m.focus = f
	m.qa.input.Blur()
	m.uploadInput.Blur()
	switch f {
	case FocusQuestion:
		return m.qa.input.Focus()
	case FocusUpload:
		return m.uploadInput.Focus()
	}
	return nil
}
