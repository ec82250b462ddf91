package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// wireTime accepts RFC 3339 timestamps as well as bare dates, since
// providers publish deadlines both ways.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *wireTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// looseString decodes from either a JSON string or a number (lot numbers
// come both ways).
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(strings.TrimSpace(string(b)))
	return nil
}

// NoticeWire is the JSON shape of GET notice/{id}.
type NoticeWire struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	OrganisationName     map[string]string `json:"organisation_name"`
	Source               string            `json:"source"`
	CPVCode              string            `json:"cpv_code"`
	PublicationDate      *wireTime         `json:"publication_date,omitempty"`
	DeadlineDate         *wireTime         `json:"deadline_date,omitempty"`
	EstimatedValue       *float64          `json:"estimated_value,omitempty"`
	AwardedValue         *float64          `json:"awarded_value,omitempty"`
	IsFavorite           bool              `json:"is_favorite"`
	AISummary            *string           `json:"ai_summary,omitempty"`
	AISummaryLang        string            `json:"ai_summary_lang,omitempty"`
	AISummaryGeneratedAt *wireTime         `json:"ai_summary_generated_at,omitempty"`
}

// LotWire is one element of GET notice/{id}/lots.
type LotWire struct {
	LotNumber   looseString `json:"lot_number"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CPVCode     string      `json:"cpv_code"`
}

// DocumentWire is one element of GET notice/{id}/documents.
type DocumentWire struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	FileType       string  `json:"file_type"`
	Language       string  `json:"language"`
	DownloadStatus *string `json:"download_status"`
	HasAIAnalysis  bool    `json:"has_ai_analysis"`
}

// SummaryRequest is the body of POST notice/{id}/summary.
type SummaryRequest struct {
	Language string `json:"language"`
	Force    bool   `json:"force"`
}

// SummaryWire is the response of POST notice/{id}/summary.
type SummaryWire struct {
	Summary     string    `json:"summary"`
	Lang        string    `json:"lang"`
	GeneratedAt *wireTime `json:"generated_at,omitempty"`
	Cached      bool      `json:"cached"`
}

// AnalyzeRequest is the body of POST .../document/{doc}/analyze.
type AnalyzeRequest struct {
	Language string `json:"language"`
	Force    bool   `json:"force"`
}

// AnalysisWire is the response of the analyze endpoint. Analysis holds
// either a structured object or a plain string.
type AnalysisWire struct {
	Status   string          `json:"status"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
	Message  string          `json:"message,omitempty"`
	Cached   bool            `json:"cached,omitempty"`
}

// StructuredAnalysisWire is the object form of AnalysisWire.Analysis.
type StructuredAnalysisWire struct {
	Summary      string   `json:"summary,omitempty"`
	Objectives   []string `json:"objectives,omitempty"`
	Lots         []string `json:"lots,omitempty"`
	Eligibility  []string `json:"eligibility,omitempty"`
	Deadlines    []string `json:"deadlines,omitempty"`
	SMEScore     *int     `json:"sme_score,omitempty"`
	SMERationale string   `json:"sme_rationale,omitempty"`
}

// AskRequest is the body of POST notice/{id}/ask.
type AskRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

// AskWire is the response of POST notice/{id}/ask.
type AskWire struct {
	Status  string       `json:"status"`
	Answer  string       `json:"answer,omitempty"`
	Sources []SourceWire `json:"sources,omitempty"`
	Message string       `json:"message,omitempty"`
}

// SourceWire is a document cited by an answer.
type SourceWire struct {
	Title string `json:"title"`
}

// MessageWire is the response of the acquisition endpoints.
type MessageWire struct {
	Message string `json:"message"`
}

// ToModel converts the wire notice.
func (w NoticeWire) ToModel() model.Notice {
	n := model.Notice{
		ID:                w.ID,
		Title:             w.Title,
		OrganisationNames: w.OrganisationName,
		Source:            model.ParseSource(w.Source),
		CPVCode:           w.CPVCode,
		DeadlineAt:        w.DeadlineDate.ptr(),
		EstimatedValue:    w.EstimatedValue,
		AwardedValue:      w.AwardedValue,
		Favorite:          w.IsFavorite,
	}
	if p := w.PublicationDate.ptr(); p != nil {
		n.PublishedAt = *p
	}
	if w.AISummary != nil && *w.AISummary != "" {
		s := &model.Summary{Text: *w.AISummary, Lang: w.AISummaryLang, Cached: true}
		if p := w.AISummaryGeneratedAt.ptr(); p != nil {
			s.GeneratedAt = *p
		}
		n.Summary = s
	}
	return n
}

// ToModel converts the wire lot.
func (w LotWire) ToModel() model.Lot {
	return model.Lot{
		Number:      string(w.LotNumber),
		Title:       w.Title,
		Description: w.Description,
		CPVCode:     w.CPVCode,
	}
}

// ToModel converts the wire document. A null download_status maps to
// model.DownloadUnset.
func (w DocumentWire) ToModel() model.Document {
	d := model.Document{
		ID:            w.ID,
		Title:         w.Title,
		URL:           w.URL,
		FileType:      w.FileType,
		Language:      w.Language,
		HasAIAnalysis: w.HasAIAnalysis,
	}
	if w.DownloadStatus != nil {
		d.DownloadStatus = model.DownloadStatus(strings.ToLower(*w.DownloadStatus))
	}
	return d
}

// ToModel converts the wire summary.
func (w SummaryWire) ToModel() model.Summary {
	s := model.Summary{Text: w.Summary, Lang: w.Lang, Cached: w.Cached}
	if p := w.GeneratedAt.ptr(); p != nil {
		s.GeneratedAt = *p
	}
	return s
}

// ToModel converts the wire analysis. An unknown status is treated as error
// so it never masquerades as a regenerable ok.
func (w AnalysisWire) ToModel() (model.AnalysisResult, error) {
	r := model.AnalysisResult{
		Status:  model.AnalysisStatus(w.Status),
		Message: w.Message,
		Cached:  w.Cached,
	}
	switch r.Status {
	case model.AnalysisOK, model.AnalysisNoText, model.AnalysisError:
	default:
		r.Status = model.AnalysisError
		if r.Message == "" {
			r.Message = fmt.Sprintf("unexpected analysis status %q", w.Status)
		}
	}

	raw := bytes.TrimSpace(w.Analysis)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return r, nil
	}
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &r.Analysis.Text); err != nil {
			return r, fmt.Errorf("decode analysis text: %w", err)
		}
	case '{':
		var sw StructuredAnalysisWire
		if err := json.Unmarshal(raw, &sw); err != nil {
			return r, fmt.Errorf("decode structured analysis: %w", err)
		}
		r.Analysis.Structured = &model.StructuredAnalysis{
			Summary:      sw.Summary,
			Objectives:   sw.Objectives,
			Lots:         sw.Lots,
			Eligibility:  sw.Eligibility,
			Deadlines:    sw.Deadlines,
			SMEScore:     sw.SMEScore,
			SMERationale: sw.SMERationale,
		}
	default:
		return r, fmt.Errorf("unexpected analysis payload %.20q", string(raw))
	}
	return r, nil
}

// ToModel converts the wire answer.
func (w AskWire) ToModel() model.Answer {
	a := model.Answer{Status: w.Status, Text: w.Answer, Message: w.Message}
	for _, s := range w.Sources {
		a.Sources = append(a.Sources, s.Title)
	}
	return a
}
