package panel

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CapturesInput reports whether a text input has focus, in which case the
// host must forward every key to the panel.
func (m Model) CapturesInput() bool {
	return m.focus != FocusDocuments
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.focus {
	case FocusQuestion:
		return m.handleQuestionKey(msg)
	case FocusUpload:
		return m.handleUploadKey(msg)
	}

	if m.phase != PhaseReady {
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.docs)-1 {
			m.cursor++
		}
		return m, nil

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "enter", " ":
		if d, ok := m.SelectedDocument(); ok {
			return m, m.ToggleExpand(d.ID)
		}

	case "a":
		if d, ok := m.SelectedDocument(); ok && m.DocumentAffordances(d).Analyze {
			return m, m.Analyze(d.ID, false)
		}

	case "A":
		if d, ok := m.SelectedDocument(); ok && m.DocumentAffordances(d).Regenerate {
			return m, m.Analyze(d.ID, true)
		}

	case "d":
		if d, ok := m.SelectedDocument(); ok {
			return m, m.Download(d.ID)
		}

	case "s":
		if m.Affordances().GenerateSummary {
			return m, m.GenerateSummary(false)
		}

	case "S":
		if m.Affordances().RegenerateSummary {
			return m, m.GenerateSummary(true)
		}

	case "l":
		m.CycleLanguage()
		return m, nil

	case "D":
		return m, m.Discover()

	case "u":
		if m.Affordances().Upload {
			return m, m.setFocus(FocusUpload)
		}

	case "?", "/":
		return m, m.setFocus(FocusQuestion)

	case "f":
		return m, m.ToggleFavorite()

	case "r":
		return m, m.RefreshDocuments()
	}
	return m, nil
}

func (m Model) handleQuestionKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, m.setFocus(FocusDocuments)
	case tea.KeyEnter:
		return m, m.Ask(m.qa.input.Value())
	}
	// The input is disabled while a question is outstanding.
	if m.qa.inFlight {
		return m, nil
	}
	var cmd tea.Cmd
	m.qa.input, cmd = m.qa.input.Update(msg)
	return m, cmd
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.uploadInput.Reset()
		return m, m.setFocus(FocusDocuments)
	case tea.KeyEnter:
		return m, m.Upload(m.uploadInput.Value())
	}
	if m.upload.Loading {
		return m, nil
	}
	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)
	return m, cmd
}
