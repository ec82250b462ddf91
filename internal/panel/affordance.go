package panel

import "github.com/abelbrown/tenderwatch/internal/model"

// Affordances is the set of notice-level actions currently offered.
type Affordances struct {
	GenerateSummary   bool
	RegenerateSummary bool
	Discover          bool
	Upload            bool
	Ask               bool
	Favorite          bool
	Refresh           bool
}

// DocAffordances is the set of actions offered for one document.
type DocAffordances struct {
	Lifecycle  model.Lifecycle
	Download   bool
	Analyze    bool
	Regenerate bool
	Expandable bool
}

// Affordances derives the notice-level actions from current state.
func (m Model) Affordances() Affordances {
	if m.phase != PhaseReady {
		return Affordances{}
	}
	return Affordances{
		GenerateSummary:   m.summary.current == nil && !m.summary.loading,
		RegenerateSummary: m.summary.current != nil && !m.summary.loading,
		Discover:          m.notice.Source.SupportsDiscovery() && !m.discover.Loading,
		Upload:            !m.upload.Loading,
		Ask:               !m.qa.inFlight,
		Favorite:          !m.favorite.Loading,
		Refresh:           !m.refreshing,
	}
}

// DocumentAffordances derives the actions for d. It is recomputed on every
// render from the document list and the keyed slots.
func (m Model) DocumentAffordances(d model.Document) DocAffordances {
	lc := model.Derive(d)
	slot := m.analysis[d.ID]
	eligible := lc.CanAnalyze || d.HasAIAnalysis
	idle := slot.Phase == AnalysisIdle || slot.Phase == AnalysisFailed
	return DocAffordances{
		Lifecycle:  lc,
		Download:   lc.CanDownload && !m.downloads[d.ID].Loading,
		Analyze:    eligible && idle,
		Regenerate: slot.Phase == AnalysisDone && slot.Result.Regenerable(),
		Expandable: eligible || slot.Phase != AnalysisIdle,
	}
}
