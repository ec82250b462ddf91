package panel

import (
	"time"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// Ticket identifies the panel session a request was issued from. Every
// completion message carries the ticket of its request; Update discards
// messages whose ticket is no longer the active one.
type Ticket struct {
	NoticeID string
	Epoch    uint64
}

// NoticeLoaded is sent when the entity fetch for a notice finishes.
// Err is only set when the primary notice request failed; lot and document
// failures are recovered to empty lists.
type NoticeLoaded struct {
	Ticket    Ticket
	Notice    model.Notice
	Lots      []model.Lot
	Documents []model.Document
	Err       error
	Dur       time.Duration
}

// DocumentsRefreshed is sent when a document-list refetch finishes. Seq
// orders refetches within one ticket; only the latest may apply.
type DocumentsRefreshed struct {
	Ticket    Ticket
	Seq       uint64
	Documents []model.Document
	Err       error
}

// SummaryGenerated is sent when a summary request finishes. Seq orders
// summary requests within one ticket; only the latest may apply.
type SummaryGenerated struct {
	Ticket  Ticket
	Seq     uint64
	Summary model.Summary
	Err     error
	Dur     time.Duration
}

// AnalysisCompleted is sent when a document analysis request finishes.
type AnalysisCompleted struct {
	Ticket Ticket
	DocID  string
	Result model.AnalysisResult
	Err    error
	Dur    time.Duration
}

// AnswerReceived is sent when a question has been answered.
type AnswerReceived struct {
	Ticket   Ticket
	Question string
	Answer   model.Answer
	Err      error
	Dur      time.Duration
}

// DownloadCompleted is sent when a per-document download finishes.
type DownloadCompleted struct {
	Ticket  Ticket
	DocID   string
	Message string
	Err     error
}

// UploadCompleted is sent when a file upload finishes.
type UploadCompleted struct {
	Ticket  Ticket
	Path    string
	Message string
	Err     error
}

// DiscoveryCompleted is sent when document discovery finishes.
type DiscoveryCompleted struct {
	Ticket  Ticket
	Message string
	Err     error
}

// FavoriteToggled is sent when the favorite flag has been changed.
type FavoriteToggled struct {
	Ticket   Ticket
	Favorite bool
	Err      error
}
