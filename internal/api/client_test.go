package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/tenderwatch/internal/model"
)

func newTestClient(t *testing.T, h http.Handler, token string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRateLimit(0), WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(srv.URL+"/api/", Session{Token: token}, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.org", "://bad"} {
		if _, err := NewClient(raw, Session{}); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewClient(%q) error = %v, want ErrInvalidConfig", raw, err)
		}
	}
	if _, err := NewClient("https://example.org/api", Session{}); err != nil {
		t.Errorf("NewClient(https) error = %v", err)
	}
}

type countingTransport struct {
	n    atomic.Int32
	next http.RoundTripper
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.n.Add(1)
	return t.next.RoundTrip(r)
}

func TestCustomHTTPClientAndUserAgent(t *testing.T) {
	tr := &countingTransport{next: http.DefaultTransport}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "tenderwatch-test/1" {
			t.Errorf("User-Agent = %q", got)
		}
		io.WriteString(w, `[]`)
	}), "", WithHTTPClient(&http.Client{Transport: tr}), WithUserAgent("tenderwatch-test/1"))

	if _, err := c.Lots(context.Background(), "N1"); err != nil {
		t.Fatalf("Lots: %v", err)
	}
	if got := tr.n.Load(); got != 1 {
		t.Errorf("round trips = %d, want 1", got)
	}
}

func TestNoticeDecodesWireFormat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notices/TED-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		io.WriteString(w, `{
			"id": "TED-1",
			"title": "Road works",
			"organisation_name": {"fr": "Ville", "nl": "Stad"},
			"source": "ted",
			"cpv_code": "45233140",
			"publication_date": "2026-03-01",
			"deadline_date": "2026-04-15T12:00:00Z",
			"estimated_value": 125000.5,
			"is_favorite": true,
			"ai_summary": "Résumé",
			"ai_summary_lang": "fr",
			"ai_summary_generated_at": "2026-03-02T08:00:00Z"
		}`)
	}), "tok")

	n, err := c.Notice(context.Background(), "TED-1")
	if err != nil {
		t.Fatalf("Notice: %v", err)
	}
	if n.Source != model.SourceTED {
		t.Errorf("Source = %v, want TED", n.Source)
	}
	if !n.PublishedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", n.PublishedAt)
	}
	if n.DeadlineAt == nil || n.DeadlineAt.Hour() != 12 {
		t.Errorf("DeadlineAt = %v", n.DeadlineAt)
	}
	if n.EstimatedValue == nil || *n.EstimatedValue != 125000.5 {
		t.Errorf("EstimatedValue = %v", n.EstimatedValue)
	}
	if n.AwardedValue != nil {
		t.Errorf("AwardedValue = %v, want nil", *n.AwardedValue)
	}
	if !n.Favorite {
		t.Error("Favorite = false")
	}
	if n.Summary == nil || n.Summary.Text != "Résumé" || n.Summary.Lang != "fr" || !n.Summary.Cached {
		t.Errorf("Summary = %+v", n.Summary)
	}
}

func TestLotsAndDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notices/N1/lots", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"lot_number": 1, "title": "Lot A"}, {"lot_number": "2b", "title": "Lot B"}]`)
	})
	mux.HandleFunc("/api/notices/N1/documents", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"id": "d1", "title": "Spec", "url": "https://x/spec.pdf", "file_type": "PDF", "download_status": null, "has_ai_analysis": false},
			{"id": "d2", "title": "Annex", "url": "upload://d2", "file_type": "pdf", "download_status": "OK", "has_ai_analysis": true}
		]`)
	})
	c := newTestClient(t, mux, "")

	lots, err := c.Lots(context.Background(), "N1")
	if err != nil {
		t.Fatalf("Lots: %v", err)
	}
	wantLots := []model.Lot{{Number: "1", Title: "Lot A"}, {Number: "2b", Title: "Lot B"}}
	if diff := cmp.Diff(wantLots, lots); diff != "" {
		t.Errorf("Lots mismatch (-want +got):\n%s", diff)
	}

	docs, err := c.Documents(context.Background(), "N1")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	wantDocs := []model.Document{
		{ID: "d1", Title: "Spec", URL: "https://x/spec.pdf", FileType: "PDF"},
		{ID: "d2", Title: "Annex", URL: "upload://d2", FileType: "pdf", DownloadStatus: model.DownloadOK, HasAIAnalysis: true},
	}
	if diff := cmp.Diff(wantDocs, docs); diff != "" {
		t.Errorf("Documents mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryRequestBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var body SummaryRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Language != "nl" || !body.Force {
			t.Errorf("body = %+v", body)
		}
		io.WriteString(w, `{"summary": "Samenvatting", "lang": "nl", "cached": false, "generated_at": "2026-03-02T08:00:00Z"}`)
	}), "")

	s, err := c.Summary(context.Background(), "N1", "nl", true)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Text != "Samenvatting" || s.Lang != "nl" || s.Cached || s.GeneratedAt.IsZero() {
		t.Errorf("Summary = %+v", s)
	}
}

func TestAnalyzeDocumentPayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.AnalysisResult
	}{
		{
			name: "structured",
			body: `{"status": "ok", "cached": true, "analysis": {"summary": "S", "objectives": ["o1"], "sme_score": 4}}`,
			want: model.AnalysisResult{
				Status: model.AnalysisOK,
				Cached: true,
				Analysis: model.Analysis{Structured: &model.StructuredAnalysis{
					Summary:    "S",
					Objectives: []string{"o1"},
					SMEScore:   intPtr(4),
				}},
			},
		},
		{
			name: "plain text",
			body: `{"status": "ok", "analysis": "free text"}`,
			want: model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Text: "free text"}},
		},
		{
			name: "no text",
			body: `{"status": "no_text", "message": "nothing to read"}`,
			want: model.AnalysisResult{Status: model.AnalysisNoText, Message: "nothing to read"},
		},
		{
			name: "unknown status",
			body: `{"status": "weird"}`,
			want: model.AnalysisResult{Status: model.AnalysisError, Message: `unexpected analysis status "weird"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.EscapedPath(); got != "/api/notices/N1/documents/d%201/analyze" {
					t.Errorf("path = %q", got)
				}
				io.WriteString(w, tt.body)
			}), "")
			got, err := c.AnalyzeDocument(context.Background(), "N1", "d 1", "fr", false)
			if err != nil {
				t.Fatalf("AnalyzeDocument: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAskCollectsSourceTitles(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body AskRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Question != "deadline?" || body.Language != "en" {
			t.Errorf("body = %+v", body)
		}
		io.WriteString(w, `{"status": "ok", "answer": "May 1", "sources": [{"title": "Spec"}, {"title": "Annex"}]}`)
	}), "")

	a, err := c.Ask(context.Background(), "N1", "deadline?", "en")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	want := model.Answer{Status: "ok", Text: "May 1", Sources: []string{"Spec", "Annex"}}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("answer mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadDocumentMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offer.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o600); err != nil {
		t.Fatal(err)
	}

	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "offer.pdf" || string(data) != "%PDF-1.7" {
			t.Errorf("attempt %d: got %q with %q", n, hdr.Filename, data)
		}
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"message": "uploaded"}`)
	}), "")

	msg, err := c.UploadDocument(context.Background(), "N1", path)
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if msg != "uploaded" {
		t.Errorf("message = %q", msg)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2 (body rebuilt on retry)", got)
	}
}

func TestRetryStopsOnClientError(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"code": "not_found", "message": "no such notice"}`)
	}), "")

	_, err := c.Notice(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
	if got := UserMessage(err); got != "no such notice" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestRetryExhaustsOnServerError(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}), "", WithRetryMax(2))

	_, err := c.Documents(context.Background(), "N1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsServerError() {
		t.Fatalf("error = %v, want server APIError", err)
	}
	if apiErr.Message != "boom" {
		t.Errorf("Message = %q, want boom", apiErr.Message)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestUploadNotRetriedOnServerError(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "stored but failed", http.StatusBadGateway)
	}), "", WithRetryMax(3))

	_, err := c.UploadDocumentBytes(context.Background(), "N1", "offer.pdf", []byte("%PDF-1.7"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsServerError() {
		t.Fatalf("error = %v, want server APIError", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestRateLimitedHonorsRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"message": "queued"}`)
	}), "")

	msg, err := c.DiscoverDocuments(context.Background(), "N1")
	if err != nil {
		t.Fatalf("DiscoverDocuments: %v", err)
	}
	if msg != "queued" {
		t.Errorf("message = %q", msg)
	}
}

func TestSetFavorite(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/favorites/N1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}), "tok")

	if err := c.SetFavorite(context.Background(), "N1", true); err != nil {
		t.Fatalf("SetFavorite(true): %v", err)
	}
	if err := c.SetFavorite(context.Background(), "N1", false); err != nil {
		t.Fatalf("SetFavorite(false): %v", err)
	}
	if diff := cmp.Diff([]string{http.MethodPost, http.MethodDelete}, methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}

	anon, _ := NewClient("http://localhost:1/api", Session{})
	if err := anon.SetFavorite(context.Background(), "N1", true); !errors.Is(err, ErrNoSession) {
		t.Errorf("anonymous SetFavorite error = %v, want ErrNoSession", err)
	}
}

func TestContextCancelDuringBackoff(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), "", WithRetryWait(time.Second, 2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Notice(ctx, "N1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Error("backoff ignored context cancellation")
	}
}

func intPtr(v int) *int { return &v }
