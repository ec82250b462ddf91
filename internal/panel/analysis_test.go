package panel

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/tenderwatch/internal/model"
)

func TestAnalyzeOpensPanelImmediately(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")

	cmd := m.Analyze("d1", false)
	if cmd == nil {
		t.Fatal("Analyze should return a command")
	}
	if got := m.AnalysisFor("d1").Phase; got != AnalysisLoading {
		t.Errorf("phase = %v, want loading", got)
	}
	if want := (Expansion{DocID: "d1", Stage: Expanding}); m.Expansion() != want {
		t.Errorf("expansion = %+v, want %+v", m.Expansion(), want)
	}

	m = drain(t, m, cmd)
	slot := m.AnalysisFor("d1")
	if slot.Phase != AnalysisDone || slot.Result.Analysis.Text != "analysis of d1" {
		t.Errorf("slot = %+v", slot)
	}
	if want := (Expansion{DocID: "d1", Stage: Expanded}); m.Expansion() != want {
		t.Errorf("expansion = %+v, want %+v", m.Expansion(), want)
	}
}

func TestExpandIsSinglePointer(t *testing.T) {
	f := seeded()
	f.docs["N1"][1].HasAIAnalysis = true
	m := opened(t, f, "N1")

	m = drain(t, m, m.ToggleExpand("d1"))
	if !m.Expansion().Open("d1") {
		t.Fatal("d1 should be expanded")
	}
	m = drain(t, m, m.ToggleExpand("d2"))
	if m.Expansion().Open("d1") {
		t.Error("expanding d2 must collapse d1")
	}
	if !m.Expansion().Open("d2") {
		t.Error("d2 should be expanded")
	}

	m = drain(t, m, m.ToggleExpand("d2"))
	if m.Expansion() != (Expansion{}) {
		t.Errorf("expansion = %+v, want collapsed", m.Expansion())
	}
}

func TestToggleExpandFetchesOnlyWhenNeeded(t *testing.T) {
	f := seeded()
	f.docs["N1"][0].HasAIAnalysis = true
	m := opened(t, f, "N1")

	cmd := m.ToggleExpand("d1")
	if cmd == nil {
		t.Fatal("expanding an unanalyzed document should fetch its analysis")
	}
	if m.Expansion().Stage != Expanding {
		t.Errorf("stage = %v, want Expanding", m.Expansion().Stage)
	}
	m = drain(t, m, cmd)
	if m.Expansion().Stage != Expanded {
		t.Errorf("stage = %v, want Expanded", m.Expansion().Stage)
	}

	// Collapse and reopen: the stored result is shown without a new request.
	m.ToggleExpand("d1")
	if cmd := m.ToggleExpand("d1"); cmd != nil {
		t.Error("reopening an analyzed document must not refetch")
	}
	if got := f.count("analyze"); got != 1 {
		t.Errorf("analyze calls = %d, want 1", got)
	}
}

func TestToggleExpandWhileInFlightDoesNotRefetch(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")

	pending := m.Analyze("d1", false)
	m.ToggleExpand("d1") // collapse
	if cmd := m.ToggleExpand("d1"); cmd != nil {
		t.Error("expanding a document with a request in flight must not issue another")
	}
	m = drain(t, m, pending)
	if got := f.count("analyze"); got != 1 {
		t.Errorf("analyze calls = %d, want 1", got)
	}
}

func TestToggleExpandIneligibleDocument(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")

	// d2 is a PDF that has not been downloaded and has no server analysis.
	if cmd := m.ToggleExpand("d2"); cmd != nil {
		t.Error("an ineligible document must not be analyzed on expand")
	}
	if !m.Expansion().Open("d2") || m.Expansion().Stage != Expanded {
		t.Errorf("expansion = %+v, want d2 expanded", m.Expansion())
	}
	if f.count("analyze") != 0 {
		t.Error("no analysis request expected")
	}
}

func TestSecondAnalyzeWhileInFlightIsDropped(t *testing.T) {
	f := seeded()
	calls := 0
	f.analyzeFn = func(_, docID, _ string, force bool) (model.AnalysisResult, error) {
		calls++
		return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Text: "first"}}, nil
	}
	m := opened(t, f, "N1")

	first := m.Analyze("d1", false)
	if second := m.Analyze("d1", true); second != nil {
		t.Fatal("second analyze for the same document should be dropped")
	}
	m = drain(t, m, first)

	if calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
	if got := m.AnalysisFor("d1").Result.Analysis.Text; got != "first" {
		t.Errorf("stored result = %q, want first", got)
	}
}

func TestAnalysisSlotsAreIndependent(t *testing.T) {
	f := seeded()
	f.docs["N1"] = append(f.docs["N1"], pdfDoc("d4", model.DownloadOK))
	f.analyzeFn = func(_, docID, _ string, _ bool) (model.AnalysisResult, error) {
		if docID == "d4" {
			return model.AnalysisResult{}, errBoom
		}
		return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Text: docID}}, nil
	}
	m := opened(t, f, "N1")

	a := m.Analyze("d1", false)
	b := m.Analyze("d4", false)
	m = drain(t, m, b)

	if got := m.AnalysisFor("d1").Phase; got != AnalysisLoading {
		t.Errorf("d1 phase = %v, want still loading", got)
	}
	if slot := m.AnalysisFor("d4"); slot.Phase != AnalysisFailed || slot.Err != "boom" {
		t.Errorf("d4 slot = %+v, want failed with boom", slot)
	}

	m = drain(t, m, a)
	if got := m.AnalysisFor("d1").Phase; got != AnalysisDone {
		t.Errorf("d1 phase = %v, want done", got)
	}
	if got := m.AnalysisFor("d4").Phase; got != AnalysisFailed {
		t.Errorf("d4 phase = %v, want failed", got)
	}
}

func TestNoTextIsAResultNotAnError(t *testing.T) {
	f := seeded()
	f.analyzeFn = func(string, string, string, bool) (model.AnalysisResult, error) {
		return model.AnalysisResult{Status: model.AnalysisNoText, Message: "scanned document"}, nil
	}
	m := opened(t, f, "N1")
	m = drain(t, m, m.Analyze("d1", false))

	slot := m.AnalysisFor("d1")
	if slot.Phase != AnalysisDone {
		t.Fatalf("phase = %v, want done", slot.Phase)
	}
	if slot.Err != "" {
		t.Errorf("error slot = %q, want empty", slot.Err)
	}
	if m.DocumentAffordances(m.Documents()[0]).Regenerate {
		t.Error("no_text result must not offer regeneration")
	}
	if f.count("documents") != 1 {
		t.Error("a no_text result should not trigger a document refresh")
	}
}

func TestOkResultOffersRegenerateAndRefreshes(t *testing.T) {
	f := seeded()
	f.analyzeFn = func(_, docID, _ string, _ bool) (model.AnalysisResult, error) {
		docs := f.docs["N1"]
		docs[0].HasAIAnalysis = true
		f.setDocs("N1", docs)
		return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Text: "ok"}}, nil
	}
	m := opened(t, f, "N1")
	m = drain(t, m, m.Analyze("d1", false))

	if !m.DocumentAffordances(m.Documents()[0]).Regenerate {
		t.Error("ok result should offer regeneration")
	}
	if !m.Documents()[0].HasAIAnalysis {
		t.Error("has_ai_analysis should come from the refreshed list")
	}
	if got := f.count("documents"); got != 2 {
		t.Errorf("documents calls = %d, want 2", got)
	}
}

func TestAnalyzeKeyRespectsAffordances(t *testing.T) {
	f := seeded()
	m := opened(t, f, "N1")
	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	// d2 is not analyzable.
	m, _ = m.Update(key("j"))
	if _, cmd := m.Update(key("a")); cmd != nil {
		t.Error("a on an ineligible document should do nothing")
	}

	m, _ = m.Update(key("k"))
	if _, cmd := m.Update(key("A")); cmd != nil {
		t.Error("A without a prior ok result should do nothing")
	}
	var cmd tea.Cmd
	m, cmd = m.Update(key("a"))
	if cmd == nil {
		t.Fatal("a on an analyzable document should analyze")
	}
	m = drain(t, m, cmd)

	forced := false
	f.analyzeFn = func(_, _, _ string, force bool) (model.AnalysisResult, error) {
		forced = force
		return model.AnalysisResult{Status: model.AnalysisOK}, nil
	}
	m, cmd = m.Update(key("A"))
	drain(t, m, cmd)
	if !forced {
		t.Error("A should request a forced analysis")
	}
}
