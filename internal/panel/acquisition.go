package panel

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// OpSlot is the state of one acquisition-style action. Message is kept
// until the next attempt of the same action.
type OpSlot struct {
	Loading bool
	Message string
	Failed  bool
}

func (s OpSlot) finish(message string, err error) OpSlot {
	if err != nil {
		return OpSlot{Message: api.UserMessage(err), Failed: true}
	}
	return OpSlot{Message: message}
}

// DownloadFor returns the download slot of a document.
func (m Model) DownloadFor(docID string) OpSlot { return m.downloads[docID] }

// UploadState returns the upload slot.
func (m Model) UploadState() OpSlot { return m.upload }

// DiscoverState returns the discovery slot.
func (m Model) DiscoverState() OpSlot { return m.discover }

// FavoriteState returns the favorite-toggle slot.
func (m Model) FavoriteState() OpSlot { return m.favorite }

// Download asks the server to fetch docID. It is ignored for documents that
// cannot be downloaded or are already downloading.
func (m *Model) Download(docID string) tea.Cmd {
	if m.phase != PhaseReady {
		return nil
	}
	doc, ok := m.document(docID)
	if !ok || !model.Derive(doc).CanDownload || m.downloads[docID].Loading {
		return nil
	}
	m.downloads[docID] = OpSlot{Loading: true}

	ticket := m.ticket
	backend := m.cfg.Backend
	return runRequest(m,
		func(ctx context.Context) (string, error) {
			return backend.DownloadDocument(ctx, ticket.NoticeID, docID)
		},
		func(message string, err error, _ time.Duration) tea.Msg {
			return DownloadCompleted{Ticket: ticket, DocID: docID, Message: message, Err: err}
		})
}

func (m *Model) applyDownload(msg DownloadCompleted) tea.Cmd {
	if !m.isCurrent(msg.Ticket, "download") {
		return nil
	}
	m.downloads[msg.DocID] = m.downloads[msg.DocID].finish(msg.Message, msg.Err)
	m.emitAcquire(otel.KindDownload, msg.Ticket, msg.DocID, msg.Message, msg.Err)
	return m.refreshCmd()
}

// Upload submits the file at path to the open notice.
func (m *Model) Upload(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if m.phase != PhaseReady || path == "" || m.upload.Loading {
		return nil
	}
	m.upload = OpSlot{Loading: true}

	ticket := m.ticket
	backend := m.cfg.Backend
	return runRequest(m,
		func(ctx context.Context) (string, error) {
			return backend.UploadDocument(ctx, ticket.NoticeID, path)
		},
		func(message string, err error, _ time.Duration) tea.Msg {
			return UploadCompleted{Ticket: ticket, Path: path, Message: message, Err: err}
		})
}

// applyUpload resets the path input after either outcome so the same file
// can be submitted again.
func (m *Model) applyUpload(msg UploadCompleted) tea.Cmd {
	if !m.isCurrent(msg.Ticket, "upload") {
		return nil
	}
	m.upload = m.upload.finish(msg.Message, msg.Err)
	m.uploadInput.Reset()
	if m.focus == FocusUpload {
		m.setFocus(FocusDocuments)
	}
	m.emitAcquire(otel.KindUpload, msg.Ticket, "", msg.Path, msg.Err)
	return m.refreshCmd()
}

// Discover asks the server to locate further documents for the notice.
// Only offered for providers whose portals the backend can crawl.
func (m *Model) Discover() tea.Cmd {
	if m.phase != PhaseReady || !m.notice.Source.SupportsDiscovery() || m.discover.Loading {
		return nil
	}
	m.discover = OpSlot{Loading: true}

	ticket := m.ticket
	backend := m.cfg.Backend
	return runRequest(m,
		func(ctx context.Context) (string, error) {
			return backend.DiscoverDocuments(ctx, ticket.NoticeID)
		},
		func(message string, err error, _ time.Duration) tea.Msg {
			return DiscoveryCompleted{Ticket: ticket, Message: message, Err: err}
		})
}

func (m *Model) applyDiscovery(msg DiscoveryCompleted) tea.Cmd {
	if !m.isCurrent(msg.Ticket, "discover") {
		return nil
	}
	m.discover = m.discover.finish(msg.Message, msg.Err)
	m.emitAcquire(otel.KindDiscover, msg.Ticket, "", msg.Message, msg.Err)
	return m.refreshCmd()
}

// ToggleFavorite flips the favorite flag of the notice.
func (m *Model) ToggleFavorite() tea.Cmd {
	if m.phase != PhaseReady || m.favorite.Loading {
		return nil
	}
	m.favorite = OpSlot{Loading: true}

	ticket := m.ticket
	backend := m.cfg.Backend
	want := !m.notice.Favorite
	return runRequest(m,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, backend.SetFavorite(ctx, ticket.NoticeID, want)
		},
		func(_ struct{}, err error, _ time.Duration) tea.Msg {
			return FavoriteToggled{Ticket: ticket, Favorite: want, Err: err}
		})
}

func (m *Model) applyFavorite(msg FavoriteToggled) {
	if !m.isCurrent(msg.Ticket, "favorite") {
		return
	}
	if msg.Err != nil {
		m.favorite = m.favorite.finish("", msg.Err)
		logging.Warn("favorite toggle failed", "notice", msg.Ticket.NoticeID, "error", msg.Err)
		return
	}
	m.notice.Favorite = msg.Favorite
	if msg.Favorite {
		m.favorite = OpSlot{Message: "added to favorites"}
	} else {
		m.favorite = OpSlot{Message: "removed from favorites"}
	}
}

func (m *Model) emitAcquire(kind otel.EventKind, t Ticket, docID, msg string, err error) {
	e := otel.Event{Level: otel.LevelInfo, Kind: kind, Comp: "panel", Notice: t.NoticeID, Document: docID, Epoch: t.Epoch, Msg: msg}
	if err != nil {
		e.Level = otel.LevelWarn
		e.Err = err.Error()
		logging.Warn("acquisition failed", "kind", kind, "notice", t.NoticeID, "doc", docID, "error", err)
	}
	m.cfg.Events.Emit(e)
}
