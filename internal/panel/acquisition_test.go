package panel

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/model"
)

func TestDownloadThenRefetchEnablesAnalysis(t *testing.T) {
	f := seeded()
	f.downloadFn = func(_, docID string) (string, error) {
		docs := f.docs["N1"]
		for i := range docs {
			if docs[i].ID == docID {
				docs[i].DownloadStatus = model.DownloadOK
			}
		}
		f.setDocs("N1", docs)
		return "Document downloaded", nil
	}
	m := opened(t, f, "N1")

	d2 := m.Documents()[1]
	aff := m.DocumentAffordances(d2)
	if !aff.Lifecycle.CanDownload || aff.Lifecycle.CanAnalyze {
		t.Fatalf("before download: %+v", aff.Lifecycle)
	}

	cmd := m.Download("d2")
	if !m.DownloadFor("d2").Loading {
		t.Error("download slot should be loading")
	}
	if m.DocumentAffordances(d2).Download {
		t.Error("download must not be offered while one is in flight")
	}
	m = drain(t, m, cmd)

	d2 = m.Documents()[1]
	aff = m.DocumentAffordances(d2)
	if aff.Lifecycle.CanDownload || !aff.Lifecycle.CanAnalyze {
		t.Errorf("after download: %+v", aff.Lifecycle)
	}
	if got := m.DownloadFor("d2"); got.Message != "Document downloaded" || got.Failed || got.Loading {
		t.Errorf("download slot = %+v", got)
	}
}

func TestDownloadFailureMessageRetainedUntilRetry(t *testing.T) {
	f := seeded()
	f.downloadFn = func(string, string) (string, error) { return "", errBoom }
	m := opened(t, f, "N1")

	m = drain(t, m, m.Download("d2"))
	if got := m.DownloadFor("d2"); !got.Failed || got.Message != "boom" {
		t.Fatalf("slot = %+v, want failed boom", got)
	}

	m = drain(t, m, m.RefreshDocuments())
	if got := m.DownloadFor("d2"); got.Message != "boom" {
		t.Errorf("refresh cleared the download message: %+v", got)
	}

	m.Download("d2")
	if got := m.DownloadFor("d2"); got.Message != "" || !got.Loading {
		t.Errorf("retry slot = %+v, want fresh loading", got)
	}
}

func TestDownloadIgnoredForIneligibleDocuments(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")
	for _, id := range []string{"d1", "d3", "nope"} {
		if cmd := m.Download(id); cmd != nil {
			t.Errorf("Download(%s) should be ignored", id)
		}
	}
}

func TestRefreshDoesNotClobberAnalysis(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")
	m = drain(t, m, m.Analyze("d1", false))
	before := m.AnalysisFor("d1")

	// The refreshed list no longer mentions d1 at all.
	f.setDocs("N1", []model.Document{pdfDoc("d2", model.DownloadUnset)})
	m = drain(t, m, m.Download("d2"))

	if got := m.AnalysisFor("d1"); got.Phase != before.Phase || got.Result.Analysis.Text != before.Result.Analysis.Text {
		t.Errorf("analysis slot changed by refresh: %+v", got)
	}
}

func TestLateRefreshDoesNotOverwriteNewerList(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")

	// Issued against the original three documents, delivered last.
	late := m.RefreshDocuments()().(DocumentsRefreshed)

	f.discoverFn = func(string) (string, error) {
		f.setDocs("N1", append(f.docs["N1"], pdfDoc("d4", model.DownloadOK)))
		return "Found 1 new document.", nil
	}
	m = drain(t, m, m.Discover())
	if got := len(m.Documents()); got != 4 {
		t.Fatalf("after discover: %d docs, want 4", got)
	}

	m, _ = apply(m, late)
	if got := len(m.Documents()); got != 4 {
		t.Errorf("late refresh replaced newer list: %d docs, want 4", got)
	}
	if !m.Affordances().Refresh {
		t.Error("a superseded reply must not leave the panel refreshing")
	}
}

func TestRefreshingClearedOnlyByLatestReply(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")

	first := m.RefreshDocuments()
	second := m.RefreshDocuments()

	m, _ = apply(m, second())
	if !m.Affordances().Refresh {
		t.Fatal("latest reply should clear the refreshing state")
	}
	f.setDocs("N1", nil)
	m, _ = apply(m, first())
	if got := len(m.Documents()); got != 3 {
		t.Errorf("superseded reply applied: %d docs, want 3", got)
	}
}

func TestDownloadConcurrentWithAnalysisOfSameDocument(t *testing.T) {
	f := seeded()
	f.docs["N1"][1].HasAIAnalysis = true
	m := opened(t, f, "N1")

	analyze := m.Analyze("d2", false)
	download := m.Download("d2")
	if analyze == nil || download == nil {
		t.Fatal("both actions should start")
	}
	m = drain(t, m, download)
	if got := m.AnalysisFor("d2").Phase; got != AnalysisLoading {
		t.Errorf("analysis phase = %v, want still loading", got)
	}
	m = drain(t, m, analyze)
	if got := m.AnalysisFor("d2").Phase; got != AnalysisDone {
		t.Errorf("analysis phase = %v, want done", got)
	}
}

func TestDiscoverRegistersDocumentsOnce(t *testing.T) {
	f := seeded()
	discovered := false
	f.discoverFn = func(noticeID string) (string, error) {
		if discovered {
			return "0 new documents", nil
		}
		discovered = true
		f.setDocs(noticeID, append(f.docs[noticeID], pdfDoc("found", model.DownloadUnset)))
		return "1 new document", nil
	}
	m := opened(t, f, "N1")

	before := len(m.Documents())
	m = drain(t, m, m.Discover())
	if got := m.DiscoverState().Message; got != "1 new document" {
		t.Errorf("message = %q", got)
	}
	if got := len(m.Documents()); got != before+1 {
		t.Fatalf("documents = %d, want %d", got, before+1)
	}

	m = drain(t, m, m.Discover())
	if got := m.DiscoverState().Message; got != "0 new documents" {
		t.Errorf("message = %q", got)
	}
	if got := len(m.Documents()); got != before+1 {
		t.Errorf("documents = %d after second discover, want unchanged %d", got, before+1)
	}
	if got := f.count("documents"); got != 3 {
		t.Errorf("documents calls = %d, want one refresh per discover", got)
	}
}

func TestDiscoverOnlyForSupportedSources(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N2") // BOSA
	if m.Affordances().Discover {
		t.Error("discover must not be offered for BOSA")
	}
	if cmd := m.Discover(); cmd != nil {
		t.Error("Discover should be ignored for BOSA")
	}
}

func TestUploadResetsInputAfterEitherOutcome(t *testing.T) {
	f := seeded()
	results := []error{errBoom, nil}
	f.uploadFn = func(_, path string) (string, error) {
		err := results[0]
		results = results[1:]
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("uploaded %s", path), nil
	}
	m := opened(t, f, "N1")
	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	for _, wantFailed := range []bool{true, false} {
		m, _ = m.Update(key("u"))
		if m.Focus() != FocusUpload {
			t.Fatalf("focus = %v, want upload", m.Focus())
		}
		m, _ = m.Update(key("/tmp/offer.pdf"))
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = drain(t, m, cmd)

		if got := m.UploadState(); got.Failed != wantFailed {
			t.Errorf("upload state = %+v, want failed=%v", got, wantFailed)
		}
		if m.uploadInput.Value() != "" {
			t.Errorf("upload input = %q, want reset", m.uploadInput.Value())
		}
		if m.Focus() != FocusDocuments {
			t.Errorf("focus = %v, want documents", m.Focus())
		}
	}
	if got := m.UploadState().Message; got != "uploaded /tmp/offer.pdf" {
		t.Errorf("message = %q", got)
	}
}

func TestToggleFavorite(t *testing.T) {
	f := seeded()
	var calls []bool
	f.favoriteFn = func(_ string, fav bool) error {
		calls = append(calls, fav)
		return nil
	}
	m := opened(t, f, "N1")

	m = drain(t, m, m.ToggleFavorite())
	if !m.Notice().Favorite {
		t.Error("notice should be a favorite")
	}
	m = drain(t, m, m.ToggleFavorite())
	if m.Notice().Favorite {
		t.Error("notice should no longer be a favorite")
	}
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("calls = %v, want [true false]", calls)
	}

	f.favoriteFn = func(string, bool) error { return errBoom }
	m = drain(t, m, m.ToggleFavorite())
	if got := m.FavoriteState(); !got.Failed || m.Notice().Favorite {
		t.Errorf("failed toggle: state = %+v favorite = %v", got, m.Notice().Favorite)
	}
}
