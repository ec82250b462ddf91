package mockapi

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// document is a stored document plus the server-side facts the client
// never sees.
type document struct {
	model.Document
	hasText       bool
	failsDownload bool
}

type summaryEntry struct {
	text string
	at   time.Time
}

type analysisKey struct {
	docID string
	lang  string
}

// notice is the full server-side record of one notice.
type notice struct {
	model.Notice
	lots         []model.Lot
	docs         []*document
	discoverable []*document
	summaries    map[string]summaryEntry
	summaryLang  string // language of the most recent summary
}

// state is the mutable data behind the stand-in API.
type state struct {
	mu        sync.Mutex
	notices   map[string]*notice
	analyses  map[analysisKey]model.StructuredAnalysis
	favorites map[string]bool
	now       func() time.Time
}

func newState(f *Fixture, now func() time.Time) (*state, error) {
	s := &state{
		notices:   make(map[string]*notice, len(f.Notices)),
		analyses:  make(map[analysisKey]model.StructuredAnalysis),
		favorites: make(map[string]bool),
		now:       now,
	}
	for _, fn := range f.Notices {
		n, err := fromFixture(fn, now())
		if err != nil {
			return nil, err
		}
		s.notices[n.ID] = n
		if fn.Favorite {
			s.favorites[n.ID] = true
		}
	}
	return s, nil
}

func fromFixture(fn FixtureNotice, seeded time.Time) (*notice, error) {
	n := &notice{
		Notice: model.Notice{
			ID:                fn.ID,
			Title:             fn.Title,
			OrganisationNames: fn.OrganisationName,
			Source:            model.ParseSource(fn.Source),
			CPVCode:           fn.CPVCode,
			EstimatedValue:    fn.EstimatedValue,
			AwardedValue:      fn.AwardedValue,
		},
		summaries: make(map[string]summaryEntry),
	}
	if fn.PublicationDate != "" {
		t, err := parseDate(fn.PublicationDate)
		if err != nil {
			return nil, fmt.Errorf("notice %s publication_date: %w", fn.ID, err)
		}
		n.PublishedAt = t
	}
	if fn.DeadlineDate != "" {
		t, err := parseDate(fn.DeadlineDate)
		if err != nil {
			return nil, fmt.Errorf("notice %s deadline_date: %w", fn.ID, err)
		}
		n.DeadlineAt = &t
	}
	langs := make([]string, 0, len(fn.Summaries))
	for lang, text := range fn.Summaries {
		n.summaries[lang] = summaryEntry{text: strings.TrimSpace(text), at: seeded}
		langs = append(langs, lang)
	}
	if len(langs) > 0 {
		sort.Strings(langs)
		n.summaryLang = langs[0]
	}
	for _, l := range fn.Lots {
		n.lots = append(n.lots, model.Lot{Number: l.Number, Title: l.Title, Description: l.Description, CPVCode: l.CPVCode})
	}
	for _, d := range fn.Documents {
		n.docs = append(n.docs, docFromFixture(d))
	}
	for _, d := range fn.Discoverable {
		n.discoverable = append(n.discoverable, docFromFixture(d))
	}
	return n, nil
}

func docFromFixture(d FixtureDocument) *document {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &document{
		Document: model.Document{
			ID:             id,
			Title:          d.Title,
			URL:            d.URL,
			FileType:       d.FileType,
			Language:       d.Language,
			DownloadStatus: model.DownloadStatus(strings.ToLower(d.DownloadStatus)),
			HasAIAnalysis:  d.HasAIAnalysis,
		},
		hasText:       d.HasText,
		failsDownload: d.FailsDownload,
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// errNotFound marks lookups of unknown notices or documents.
type errNotFound string

func (e errNotFound) Error() string { return string(e) }

// errBadRequest marks requests the stand-in refuses.
type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

func (s *state) lookup(id string) (*notice, error) {
	n, ok := s.notices[id]
	if !ok {
		return nil, errNotFound("notice not found")
	}
	return n, nil
}

func (n *notice) findDocument(id string) (*document, error) {
	for _, d := range n.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, errNotFound("document not found")
}

// acquired reports whether the server holds extracted text for d.
func (d *document) acquired() bool {
	return d.hasText && (d.DownloadStatus == model.DownloadOK || model.IsUploaded(d.Document))
}

func (s *state) getNotice(id string) (model.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return model.Notice{}, err
	}
	out := n.Notice
	out.Favorite = s.favorites[id]
	if e, ok := n.summaries[n.summaryLang]; ok {
		out.Summary = &model.Summary{Text: e.text, Lang: n.summaryLang, GeneratedAt: e.at, Cached: true}
	}
	return out, nil
}

func (s *state) lots(id string) ([]model.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]model.Lot{}, n.lots...), nil
}

func (s *state) documents(id string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make([]model.Document, 0, len(n.docs))
	for _, d := range n.docs {
		out = append(out, d.Document)
	}
	return out, nil
}

// summary returns the cached summary for lang unless force, generating one
// otherwise.
func (s *state) summary(id, lang string, force bool) (model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return model.Summary{}, err
	}
	if lang == "" {
		lang = "fr"
	}
	if e, ok := n.summaries[lang]; ok && !force {
		return model.Summary{Text: e.text, Lang: lang, GeneratedAt: e.at, Cached: true}, nil
	}
	e := summaryEntry{text: composeSummary(n, lang), at: s.now()}
	n.summaries[lang] = e
	n.summaryLang = lang
	return model.Summary{Text: e.text, Lang: lang, GeneratedAt: e.at}, nil
}

// analyze runs the document analysis for (doc, lang), caching per pair.
func (s *state) analyze(noticeID, docID, lang string, force bool) (model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(noticeID)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	d, err := n.findDocument(docID)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	if !d.acquired() {
		msg := "No text could be extracted from this document."
		if d.DownloadStatus != model.DownloadOK && !model.IsUploaded(d.Document) {
			msg = "The document has not been downloaded yet."
		}
		return model.AnalysisResult{Status: model.AnalysisNoText, Message: msg}, nil
	}

	key := analysisKey{docID: docID, lang: lang}
	if a, ok := s.analyses[key]; ok && !force {
		return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Structured: &a}, Cached: true}, nil
	}
	a := composeAnalysis(n, d, lang)
	s.analyses[key] = a
	d.HasAIAnalysis = true
	return model.AnalysisResult{Status: model.AnalysisOK, Analysis: model.Analysis{Structured: &a}}, nil
}

// ask answers from the analyzable documents of the notice.
func (s *state) ask(noticeID, question, lang string) (model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(noticeID)
	if err != nil {
		return model.Answer{}, err
	}
	if strings.TrimSpace(question) == "" {
		return model.Answer{}, errBadRequest("question is required")
	}
	var sources []string
	for _, d := range n.docs {
		if d.acquired() {
			sources = append(sources, d.Title)
		}
	}
	if len(sources) == 0 {
		return model.Answer{Status: "no_documents", Message: "No analyzable documents are available for this notice."}, nil
	}
	if len(sources) > 3 {
		sources = sources[:3]
	}
	return model.Answer{Status: model.AnswerOK, Text: composeAnswer(n, question, lang, sources), Sources: sources}, nil
}

// download acquires d and reports what happened.
func (s *state) download(noticeID, docID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(noticeID)
	if err != nil {
		return "", err
	}
	d, err := n.findDocument(docID)
	if err != nil {
		return "", err
	}
	switch {
	case model.IsPortalPage(d.Document):
		d.DownloadStatus = model.DownloadSkipped
		return "Portal page: nothing to download.", nil
	case d.failsDownload:
		d.DownloadStatus = model.DownloadFailed
		return "", errUnprocessable("the provider refused the download")
	}
	d.DownloadStatus = model.DownloadOK
	if !d.hasText {
		return "Downloaded, but no text could be extracted.", nil
	}
	return "Downloaded and text extracted.", nil
}

// errUnprocessable marks acquisitions that failed on the provider side.
type errUnprocessable string

func (e errUnprocessable) Error() string { return string(e) }

// discover registers each discoverable document once.
func (s *state) discover(noticeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(noticeID)
	if err != nil {
		return "", err
	}
	if !n.Source.SupportsDiscovery() {
		return "", errBadRequest("document discovery is only available for TED notices")
	}
	added := 0
	for _, d := range n.discoverable {
		if _, err := n.findDocument(d.ID); err == nil {
			continue
		}
		cp := *d
		cp.DownloadStatus = model.DownloadOK
		n.docs = append(n.docs, &cp)
		added++
	}
	switch added {
	case 0:
		return "No new documents found.", nil
	case 1:
		return "Found 1 new document.", nil
	default:
		return fmt.Sprintf("Found %d new documents.", added), nil
	}
}

// upload stores a user-supplied document.
func (s *state) upload(noticeID, filename string, size int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(noticeID)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", errBadRequest("uploaded file is empty")
	}
	name := path.Base(filename)
	n.docs = append(n.docs, &document{
		Document: model.Document{
			ID:             uuid.NewString(),
			Title:          name,
			URL:            model.UploadScheme + name,
			FileType:       strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."),
			DownloadStatus: model.DownloadOK,
		},
		hasText: true,
	})
	return fmt.Sprintf("Uploaded %s.", name), nil
}

func (s *state) setFavorite(noticeID string, fav bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(noticeID); err != nil {
		return err
	}
	if fav {
		s.favorites[noticeID] = true
	} else {
		delete(s.favorites, noticeID)
	}
	return nil
}
