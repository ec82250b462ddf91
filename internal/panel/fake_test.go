package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/model"
)

var errBoom = errors.New("boom")

// fakeBackend serves canned notices. Hooks, when set, override the default
// behavior of the matching call.
type fakeBackend struct {
	mu sync.Mutex

	notices map[string]model.Notice
	lots    map[string][]model.Lot
	docs    map[string][]model.Document

	noticeErr error
	lotsErr   error
	docsErr   error

	summaryFn  func(id, lang string, force bool) (model.Summary, error)
	analyzeFn  func(noticeID, docID, lang string, force bool) (model.AnalysisResult, error)
	askFn      func(noticeID, question, lang string) (model.Answer, error)
	downloadFn func(noticeID, docID string) (string, error)
	uploadFn   func(noticeID, path string) (string, error)
	discoverFn func(noticeID string) (string, error)
	favoriteFn func(noticeID string, favorite bool) error

	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		notices: map[string]model.Notice{},
		lots:    map[string][]model.Lot{},
		docs:    map[string][]model.Document{},
		calls:   map[string]int{},
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) setDocs(id string, docs []model.Document) {
	f.mu.Lock()
	f.docs[id] = docs
	f.mu.Unlock()
}

func (f *fakeBackend) Notice(_ context.Context, id string) (model.Notice, error) {
	f.record("notice")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noticeErr != nil {
		return model.Notice{}, f.noticeErr
	}
	n, ok := f.notices[id]
	if !ok {
		return model.Notice{}, errors.New("notice not found")
	}
	return n, nil
}

func (f *fakeBackend) Lots(_ context.Context, id string) ([]model.Lot, error) {
	f.record("lots")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lotsErr != nil {
		return nil, f.lotsErr
	}
	return append([]model.Lot(nil), f.lots[id]...), nil
}

func (f *fakeBackend) Documents(_ context.Context, id string) ([]model.Document, error) {
	f.record("documents")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	return append([]model.Document(nil), f.docs[id]...), nil
}

func (f *fakeBackend) Summary(_ context.Context, id, lang string, force bool) (model.Summary, error) {
	f.record("summary")
	if f.summaryFn != nil {
		return f.summaryFn(id, lang, force)
	}
	return model.Summary{Text: "summary " + lang, Lang: lang}, nil
}

func (f *fakeBackend) AnalyzeDocument(_ context.Context, noticeID, docID, lang string, force bool) (model.AnalysisResult, error) {
	f.record("analyze")
	if f.analyzeFn != nil {
		return f.analyzeFn(noticeID, docID, lang, force)
	}
	return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Text: "analysis of " + docID}}, nil
}

func (f *fakeBackend) Ask(_ context.Context, noticeID, question, lang string) (model.Answer, error) {
	f.record("ask")
	if f.askFn != nil {
		return f.askFn(noticeID, question, lang)
	}
	return model.Answer{Status: model.AnswerOK, Text: "answer to " + question}, nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, noticeID, path string) (string, error) {
	f.record("upload")
	if f.uploadFn != nil {
		return f.uploadFn(noticeID, path)
	}
	return "uploaded", nil
}

func (f *fakeBackend) DownloadDocument(_ context.Context, noticeID, docID string) (string, error) {
	f.record("download")
	if f.downloadFn != nil {
		return f.downloadFn(noticeID, docID)
	}
	return "downloaded", nil
}

func (f *fakeBackend) DiscoverDocuments(_ context.Context, noticeID string) (string, error) {
	f.record("discover")
	if f.discoverFn != nil {
		return f.discoverFn(noticeID)
	}
	return "nothing new", nil
}

func (f *fakeBackend) SetFavorite(_ context.Context, noticeID string, favorite bool) error {
	f.record("favorite")
	if f.favoriteFn != nil {
		return f.favoriteFn(noticeID, favorite)
	}
	return nil
}

// drain runs cmd and every command its messages produce, feeding each
// message back through Update, until nothing is left.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("drain: command chain did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		var next tea.Cmd
		m, next = m.Update(msg)
		queue = append(queue, next)
	}
	return m
}

// apply feeds one message through Update and returns the follow-up command.
func apply(m Model, msg tea.Msg) (Model, tea.Cmd) {
	return m.Update(msg)
}

func pdfDoc(id string, status model.DownloadStatus) model.Document {
	return model.Document{ID: id, Title: "Doc " + id, URL: "https://example.org/" + id + ".pdf", FileType: "PDF", DownloadStatus: status}
}

// seeded returns a backend holding notice N1 (TED) with three documents:
// d1 downloaded PDF, d2 PDF not yet downloaded, d3 portal page.
func seeded() *fakeBackend {
	f := newFakeBackend()
	f.notices["N1"] = model.Notice{ID: "N1", Title: "Road resurfacing", Source: model.SourceTED}
	f.notices["N2"] = model.Notice{ID: "N2", Title: "School catering", Source: model.SourceBOSA}
	f.lots["N1"] = []model.Lot{{Number: "1", Title: "North"}, {Number: "2", Title: "South"}}
	f.docs["N1"] = []model.Document{
		pdfDoc("d1", model.DownloadOK),
		pdfDoc("d2", model.DownloadUnset),
		{ID: "d3", Title: "Portal", URL: "https://portal.example.org/n1", FileType: "html"},
	}
	f.docs["N2"] = []model.Document{pdfDoc("e1", model.DownloadOK)}
	return f
}

func newTestPanel(f *fakeBackend) Model {
	return New(Config{Backend: f, Languages: []string{"fr", "nl", "en"}, Language: "fr", ShowLots: true})
}

// opened returns a panel with notice id loaded.
func opened(t *testing.T, f *fakeBackend, id string) Model {
	t.Helper()
	m := newTestPanel(f)
	cmd := m.Open(id)
	m = drain(t, m, cmd)
	if m.Phase() != PhaseReady {
		t.Fatalf("phase after open = %v, want ready", m.Phase())
	}
	return m
}
