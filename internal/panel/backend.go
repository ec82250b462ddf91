package panel

import (
	"context"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// Backend is the remote API the panel drives. *api.Client implements it;
// tests substitute a scripted fake.
type Backend interface {
	Notice(ctx context.Context, id string) (model.Notice, error)
	Lots(ctx context.Context, id string) ([]model.Lot, error)
	Documents(ctx context.Context, id string) ([]model.Document, error)
	Summary(ctx context.Context, id, lang string, force bool) (model.Summary, error)
	AnalyzeDocument(ctx context.Context, noticeID, docID, lang string, force bool) (model.AnalysisResult, error)
	Ask(ctx context.Context, noticeID, question, lang string) (model.Answer, error)
	UploadDocument(ctx context.Context, noticeID, path string) (string, error)
	DownloadDocument(ctx context.Context, noticeID, docID string) (string, error)
	DiscoverDocuments(ctx context.Context, noticeID string) (string, error)
	SetFavorite(ctx context.Context, noticeID string, favorite bool) error
}
