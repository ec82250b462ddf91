package model

// DownloadStatus is the server-reported acquisition state of a document.
type DownloadStatus string

const (
	DownloadUnset   DownloadStatus = ""
	DownloadOK      DownloadStatus = "ok"
	DownloadFailed  DownloadStatus = "failed"
	DownloadSkipped DownloadStatus = "skipped"
)

// UploadScheme prefixes the URL of documents supplied by the user rather than
// fetched from a provider.
const UploadScheme = "upload://"

// Document is a file attached to a notice.
type Document struct {
	ID             string
	Title          string
	URL            string
	FileType       string
	Language       string
	DownloadStatus DownloadStatus
	HasAIAnalysis  bool
}

// AnalysisStatus tags the outcome of a document analysis request.
type AnalysisStatus string

const (
	AnalysisOK     AnalysisStatus = "ok"
	AnalysisNoText AnalysisStatus = "no_text"
	AnalysisError  AnalysisStatus = "error"
)

// Analysis is the payload of a successful analysis. Structured is nil when
// the server answered with free text only.
type Analysis struct {
	Text       string
	Structured *StructuredAnalysis
}

// StructuredAnalysis is the extraction the backend produces from a tender
// document.
type StructuredAnalysis struct {
	Summary      string
	Objectives   []string
	Lots         []string
	Eligibility  []string
	Deadlines    []string
	SMEScore     *int
	SMERationale string
}

// AnalysisResult is one answer from the analysis endpoint. A no_text or error
// status is a valid, displayable outcome, not a transport failure.
type AnalysisResult struct {
	Status   AnalysisStatus
	Analysis Analysis
	Message  string
	Cached   bool
}

// Regenerable reports whether a forced re-analysis makes sense. Only an ok
// result can be regenerated; no_text and error depend on eligibility that a
// retry does not change.
func (r AnalysisResult) Regenerable() bool {
	return r.Status == AnalysisOK
}
