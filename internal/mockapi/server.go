// Package mockapi is an in-memory stand-in for the procurement API. It serves
// every endpoint the client uses, seeded from a YAML fixture, so the panel
// can be demonstrated and tested without the real backend.
package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
)

// maxUploadSize bounds multipart uploads.
const maxUploadSize = 32 << 20

// Server serves the stand-in API.
type Server struct {
	state   *state
	latency time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every API response by d so in-flight states are
// visible in the demo.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithClock replaces time.Now for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.state.now = now }
}

// New creates a Server seeded from f.
func New(f *Fixture, opts ...Option) (*Server, error) {
	st, err := newState(f, time.Now)
	if err != nil {
		return nil, err
	}
	s := &Server{state: st}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the HTTP handler with every route mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(s.delay)
		api.Route("/notices/{id}", func(nr chi.Router) {
			nr.Get("/", s.wrap(s.handleNotice))
			nr.Get("/lots", s.wrap(s.handleLots))
			nr.Get("/documents", s.wrap(s.handleDocuments))
			nr.Post("/summary", s.wrap(s.handleSummary))
			nr.Post("/ask", s.wrap(s.handleAsk))
			nr.Post("/discover-documents", s.wrap(s.handleDiscover))
			nr.Post("/documents/upload", s.wrap(s.handleUpload))
			nr.Post("/documents/{doc}/download", s.wrap(s.handleDownload))
			nr.Post("/documents/{doc}/analyze", s.wrap(s.handleAnalyze))
		})
		api.Post("/favorites/{id}", s.wrap(s.handleFavorite(true)))
		api.Delete("/favorites/{id}", s.wrap(s.handleFavorite(false)))
	})
	return r
}

// delay applies the configured latency, giving up when the client does.
func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps handler errors onto status codes and a {"message": ...} body.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		var (
			nf  errNotFound
			bad errBadRequest
			unp errUnprocessable
		)
		switch {
		case errors.As(err, &nf):
			status = http.StatusNotFound
		case errors.As(err, &bad):
			status = http.StatusBadRequest
		case errors.As(err, &unp):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, errUnauthorized):
			status = http.StatusUnauthorized
		}
		logging.Debug("mockapi error", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		writeJSON(w, status, map[string]string{"message": err.Error()})
	}
}

var errUnauthorized = errors.New("authentication required")

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// param returns the unescaped URL parameter name.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadRequest("invalid JSON body")
	}
	return nil
}

// GET /api/notices/{id}
func (s *Server) handleNotice(w http.ResponseWriter, r *http.Request) error {
	n, err := s.state.getNotice(param(r, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, noticeToJSON(n))
}

// GET /api/notices/{id}/lots
func (s *Server) handleLots(w http.ResponseWriter, r *http.Request) error {
	lots, err := s.state.lots(param(r, "id"))
	if err != nil {
		return err
	}
	out := make([]lotJSON, 0, len(lots))
	for _, l := range lots {
		out = append(out, lotJSON{LotNumber: l.Number, Title: l.Title, Description: l.Description, CPVCode: l.CPVCode})
	}
	return writeJSON(w, http.StatusOK, out)
}

// GET /api/notices/{id}/documents
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) error {
	docs, err := s.state.documents(param(r, "id"))
	if err != nil {
		return err
	}
	out := make([]documentJSON, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentToJSON(d))
	}
	return writeJSON(w, http.StatusOK, out)
}

// POST /api/notices/{id}/summary {"language": "fr", "force": false}
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Language string `json:"language"`
		Force    bool   `json:"force"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	sum, err := s.state.summary(param(r, "id"), body.Language, body.Force)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summaryJSON{
		Summary:     sum.Text,
		Lang:        sum.Lang,
		GeneratedAt: timeString(sum.GeneratedAt),
		Cached:      sum.Cached,
	})
}

// POST /api/notices/{id}/documents/{doc}/analyze {"language": "fr", "force": false}
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Language string `json:"language"`
		Force    bool   `json:"force"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	res, err := s.state.analyze(param(r, "id"), param(r, "doc"), body.Language, body.Force)
	if err != nil {
		return err
	}
	out := analysisJSON{Status: string(res.Status), Message: res.Message, Cached: res.Cached}
	if a := res.Analysis.Structured; a != nil {
		out.Analysis = &structuredJSON{
			Summary:      a.Summary,
			Objectives:   a.Objectives,
			Lots:         a.Lots,
			Eligibility:  a.Eligibility,
			Deadlines:    a.Deadlines,
			SMEScore:     a.SMEScore,
			SMERationale: a.SMERationale,
		}
	}
	return writeJSON(w, http.StatusOK, out)
}

// POST /api/notices/{id}/ask {"question": "...", "language": "fr"}
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Question string `json:"question"`
		Language string `json:"language"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	ans, err := s.state.ask(param(r, "id"), body.Question, body.Language)
	if err != nil {
		return err
	}
	out := askJSON{Status: ans.Status, Answer: ans.Text, Message: ans.Message}
	for _, title := range ans.Sources {
		out.Sources = append(out.Sources, sourceJSON{Title: title})
	}
	return writeJSON(w, http.StatusOK, out)
}

// POST /api/notices/{id}/documents/{doc}/download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) error {
	msg, err := s.state.download(param(r, "id"), param(r, "doc"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, messageJSON{Message: msg})
}

// POST /api/notices/{id}/discover-documents
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) error {
	msg, err := s.state.discover(param(r, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, messageJSON{Message: msg})
}

// POST /api/notices/{id}/documents/upload (multipart, field "file")
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		return errBadRequest("missing file field")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return errBadRequest("unreadable upload")
	}
	msg, err := s.state.upload(param(r, "id"), header.Filename, len(data))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, messageJSON{Message: msg})
}

// POST|DELETE /api/favorites/{id}
func (s *Server) handleFavorite(fav bool) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return errUnauthorized
		}
		if err := s.state.setFavorite(param(r, "id"), fav); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}

// JSON shapes served to clients.

type noticeJSON struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	OrganisationName     map[string]string `json:"organisation_name"`
	Source               string            `json:"source"`
	CPVCode              string            `json:"cpv_code,omitempty"`
	PublicationDate      string            `json:"publication_date,omitempty"`
	DeadlineDate         string            `json:"deadline_date,omitempty"`
	EstimatedValue       *float64          `json:"estimated_value,omitempty"`
	AwardedValue         *float64          `json:"awarded_value,omitempty"`
	IsFavorite           bool              `json:"is_favorite"`
	AISummary            *string           `json:"ai_summary"`
	AISummaryLang        string            `json:"ai_summary_lang,omitempty"`
	AISummaryGeneratedAt string            `json:"ai_summary_generated_at,omitempty"`
}

type lotJSON struct {
	LotNumber   string `json:"lot_number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CPVCode     string `json:"cpv_code,omitempty"`
}

type documentJSON struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	FileType       string  `json:"file_type"`
	Language       string  `json:"language,omitempty"`
	DownloadStatus *string `json:"download_status"`
	HasAIAnalysis  bool    `json:"has_ai_analysis"`
}

type summaryJSON struct {
	Summary     string `json:"summary"`
	Lang        string `json:"lang"`
	GeneratedAt string `json:"generated_at,omitempty"`
	Cached      bool   `json:"cached"`
}

type structuredJSON struct {
	Summary      string   `json:"summary"`
	Objectives   []string `json:"objectives"`
	Lots         []string `json:"lots"`
	Eligibility  []string `json:"eligibility"`
	Deadlines    []string `json:"deadlines"`
	SMEScore     *int     `json:"sme_score"`
	SMERationale string   `json:"sme_rationale"`
}

type analysisJSON struct {
	Status   string          `json:"status"`
	Analysis *structuredJSON `json:"analysis,omitempty"`
	Message  string          `json:"message,omitempty"`
	Cached   bool            `json:"cached"`
}

type sourceJSON struct {
	Title string `json:"title"`
}

type askJSON struct {
	Status  string       `json:"status"`
	Answer  string       `json:"answer,omitempty"`
	Sources []sourceJSON `json:"sources,omitempty"`
	Message string       `json:"message,omitempty"`
}

type messageJSON struct {
	Message string `json:"message"`
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func noticeToJSON(n model.Notice) noticeJSON {
	out := noticeJSON{
		ID:               n.ID,
		Title:            n.Title,
		OrganisationName: n.OrganisationNames,
		Source:           string(n.Source),
		CPVCode:          n.CPVCode,
		PublicationDate:  timeString(n.PublishedAt),
		EstimatedValue:   n.EstimatedValue,
		AwardedValue:     n.AwardedValue,
		IsFavorite:       n.Favorite,
	}
	if n.DeadlineAt != nil {
		out.DeadlineDate = timeString(*n.DeadlineAt)
	}
	if n.Summary != nil {
		text := n.Summary.Text
		out.AISummary = &text
		out.AISummaryLang = n.Summary.Lang
		out.AISummaryGeneratedAt = timeString(n.Summary.GeneratedAt)
	}
	return out
}

func documentToJSON(d model.Document) documentJSON {
	out := documentJSON{
		ID:            d.ID,
		Title:         d.Title,
		URL:           d.URL,
		FileType:      d.FileType,
		Language:      d.Language,
		HasAIAnalysis: d.HasAIAnalysis,
	}
	if d.DownloadStatus != model.DownloadUnset {
		status := string(d.DownloadStatus)
		out.DownloadStatus = &status
	}
	return out
}
