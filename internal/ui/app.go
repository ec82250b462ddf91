package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/panel"
)

// Mode is the screen the App is showing.
type Mode int

const (
	ModeInbox Mode = iota
	ModePanel
)

// AppConfig wires the App to its collaborators.
// IMPORTANT: App does NOT hold *store.Store. It receives rows via messages.
type AppConfig struct {
	Panel panel.Config

	// LoadInbox returns a Cmd producing InboxLoaded. May be nil.
	LoadInbox func() tea.Cmd

	// InitialNotice, when set, is opened on start.
	InitialNotice string
}

// row is one selectable line of the inbox.
type row struct {
	entry  model.InboxEntry
	recent bool
}

// App is the root Bubble Tea model.
type App struct {
	cfg  AppConfig
	mode Mode

	panel panel.Model

	recent  []model.InboxEntry
	entries []model.InboxEntry
	cursor  int

	idInput  textinput.Model
	typingID bool
	status   string
	statusAt time.Time
	err      error
	width    int
	height   int
	ready    bool
	loading  bool
}

// NewApp creates an App in inbox mode.
func NewApp(cfg AppConfig) App {
	in := textinput.New()
	in.Prompt = "open> "
	in.Placeholder = "notice id"
	in.CharLimit = 256

	return App{
		cfg:     cfg,
		panel:   panel.New(cfg.Panel),
		idInput: in,
	}
}

// Init loads the inbox and, when configured, opens the initial notice.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.panel.Init()}
	if a.cfg.LoadInbox != nil {
		cmds = append(cmds, a.cfg.LoadInbox())
	}
	if a.cfg.InitialNotice != "" {
		cmds = append(cmds, func() tea.Msg { return openNotice{id: a.cfg.InitialNotice} })
	}
	return tea.Batch(cmds...)
}

// openNotice switches to panel mode from Init, which cannot mutate the App.
type openNotice struct{ id string }

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.panel.SetSize(msg.Width, msg.Height-1)
		return a, nil

	case openNotice:
		return a.open(msg.id)

	case InboxLoaded:
		a.loading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.recent = msg.Recent
		a.entries = msg.Entries
		a.err = nil
		if n := len(a.rows()); a.cursor >= n {
			a.cursor = max(n-1, 0)
		}
		return a, nil

	case InboxUpdated:
		a.statusAt = time.Now()
		if msg.Err != nil {
			a.status = fmt.Sprintf("%s: %v", msg.Watchlist, msg.Err)
			return a, nil
		}
		a.status = fmt.Sprintf("%s: %d new", msg.Watchlist, msg.NewEntries)
		if msg.NewEntries > 0 && a.cfg.LoadInbox != nil {
			a.loading = true
			return a, a.cfg.LoadInbox()
		}
		return a, nil
	}

	// Everything else (spinner ticks, panel replies) belongs to the panel.
	var cmd tea.Cmd
	a.panel, cmd = a.panel.Update(msg)
	return a, cmd
}

// open switches to panel mode and starts loading id.
func (a App) open(id string) (tea.Model, tea.Cmd) {
	id = strings.TrimSpace(id)
	if id == "" {
		return a, nil
	}
	logging.Debug("opening notice", "id", id)
	a.mode = ModePanel
	a.typingID = false
	a.idInput.Blur()
	a.idInput.Reset()
	return a, a.panel.Open(id)
}

// back returns to the inbox and reloads it so new visits show up.
func (a App) back() (tea.Model, tea.Cmd) {
	a.panel.Close()
	a.mode = ModeInbox
	if a.cfg.LoadInbox != nil {
		a.loading = true
		return a, a.cfg.LoadInbox()
	}
	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.mode == ModePanel {
		return a.handlePanelKey(msg)
	}
	if a.typingID {
		return a.handleIDKey(msg)
	}

	// Clear any existing error on key press
	a.err = nil

	rows := a.rows()
	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < len(rows)-1 {
			a.cursor++
		}
	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
	case "g", "home":
		a.cursor = 0
	case "G", "end":
		if len(rows) > 0 {
			a.cursor = len(rows) - 1
		}

	case "enter":
		if a.cursor < len(rows) {
			return a.open(rows[a.cursor].entry.NoticeID)
		}

	case "o", "/":
		a.typingID = true
		return a, a.idInput.Focus()

	case "r":
		if a.cfg.LoadInbox != nil {
			a.loading = true
			return a, a.cfg.LoadInbox()
		}
	}
	return a, nil
}

func (a App) handleIDKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.typingID = false
		a.idInput.Blur()
		a.idInput.Reset()
		return a, nil
	case tea.KeyEnter:
		return a.open(a.idInput.Value())
	}
	var cmd tea.Cmd
	a.idInput, cmd = a.idInput.Update(msg)
	return a, cmd
}

func (a App) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.panel.CapturesInput() {
		switch msg.String() {
		case "esc", "backspace":
			return a.back()
		case "q":
			return a, tea.Quit
		}
	}
	var cmd tea.Cmd
	a.panel, cmd = a.panel.Update(msg)
	return a, cmd
}

// rows returns recent visits followed by watchlist entries, skipping
// watchlist entries for notices already listed as recent.
func (a App) rows() []row {
	out := make([]row, 0, len(a.recent)+len(a.entries))
	seen := make(map[string]bool, len(a.recent))
	for _, e := range a.recent {
		seen[e.NoticeID] = true
		out = append(out, row{entry: e, recent: true})
	}
	for _, e := range a.entries {
		if seen[e.NoticeID] {
			continue
		}
		out = append(out, row{entry: e})
	}
	return out
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.mode == ModePanel {
		return a.panel.View() + "\n" + a.renderStatusBar()
	}

	contentHeight := a.height - 1
	if a.err != nil {
		contentHeight--
	}
	if a.typingID {
		contentHeight--
	}

	var b strings.Builder
	b.WriteString(renderInbox(a.rows(), a.cursor, a.width, contentHeight))
	if a.typingID {
		b.WriteString(OpenBar.Width(a.width).Render(a.idInput.View()))
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString(ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)"))
		b.WriteString("\n")
	}
	b.WriteString(a.renderStatusBar())
	return b.String()
}

// Mode returns the current screen (for testing).
func (a App) Mode() Mode { return a.mode }

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int { return a.cursor }

// Panel returns the embedded notice panel (for testing).
func (a App) Panel() panel.Model { return a.panel }

// Status returns the last watchlist status line (for testing).
func (a App) Status() string { return a.status }
