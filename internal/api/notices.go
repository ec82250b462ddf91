package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/abelbrown/tenderwatch/internal/model"
)

func noticePath(id string, parts ...string) string {
	p := "/notices/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Notice fetches the primary notice record.
func (c *Client) Notice(ctx context.Context, id string) (model.Notice, error) {
	var w NoticeWire
	if err := c.get(ctx, noticePath(id), &w); err != nil {
		return model.Notice{}, err
	}
	if w.ID == "" {
		w.ID = id
	}
	return w.ToModel(), nil
}

// Lots fetches the lots of a notice.
func (c *Client) Lots(ctx context.Context, id string) ([]model.Lot, error) {
	var ws []LotWire
	if err := c.get(ctx, noticePath(id, "lots"), &ws); err != nil {
		return nil, err
	}
	lots := make([]model.Lot, 0, len(ws))
	for _, w := range ws {
		lots = append(lots, w.ToModel())
	}
	return lots, nil
}

// Documents fetches the document list of a notice.
func (c *Client) Documents(ctx context.Context, id string) ([]model.Document, error) {
	var ws []DocumentWire
	if err := c.get(ctx, noticePath(id, "documents"), &ws); err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(ws))
	for _, w := range ws {
		docs = append(docs, w.ToModel())
	}
	return docs, nil
}

// Summary requests the notice summary in lang. force bypasses the server
// cache.
func (c *Client) Summary(ctx context.Context, id, lang string, force bool) (model.Summary, error) {
	var w SummaryWire
	if err := c.post(ctx, noticePath(id, "summary"), SummaryRequest{Language: lang, Force: force}, &w); err != nil {
		return model.Summary{}, err
	}
	return w.ToModel(), nil
}

// AnalyzeDocument requests the AI analysis of one document.
func (c *Client) AnalyzeDocument(ctx context.Context, noticeID, docID, lang string, force bool) (model.AnalysisResult, error) {
	var w AnalysisWire
	path := noticePath(noticeID, "documents", url.PathEscape(docID), "analyze")
	if err := c.post(ctx, path, AnalyzeRequest{Language: lang, Force: force}, &w); err != nil {
		return model.AnalysisResult{}, err
	}
	return w.ToModel()
}

// Ask submits a free-form question about a notice.
func (c *Client) Ask(ctx context.Context, noticeID, question, lang string) (model.Answer, error) {
	var w AskWire
	if err := c.post(ctx, noticePath(noticeID, "ask"), AskRequest{Question: question, Language: lang}, &w); err != nil {
		return model.Answer{}, err
	}
	return w.ToModel(), nil
}

// DownloadDocument asks the server to fetch and extract a document.
func (c *Client) DownloadDocument(ctx context.Context, noticeID, docID string) (string, error) {
	var w MessageWire
	path := noticePath(noticeID, "documents", url.PathEscape(docID), "download")
	if err := c.post(ctx, path, nil, &w); err != nil {
		return "", err
	}
	return w.Message, nil
}

// DiscoverDocuments asks the server to locate additional documents for the
// notice on the provider's portals.
func (c *Client) DiscoverDocuments(ctx context.Context, noticeID string) (string, error) {
	var w MessageWire
	if err := c.post(ctx, noticePath(noticeID, "discover-documents"), nil, &w); err != nil {
		return "", err
	}
	return w.Message, nil
}

// UploadDocument submits the file at path as a document of the notice.
func (c *Client) UploadDocument(ctx context.Context, noticeID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return c.UploadDocumentBytes(ctx, noticeID, filepath.Base(path), data)
}

// UploadDocumentBytes submits data as a multipart "file" field. Each call
// creates a new document, so a failed upload is never retried.
func (c *Client) UploadDocumentBytes(ctx context.Context, noticeID, filename string, data []byte) (string, error) {
	body := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, "", fmt.Errorf("write form file: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart: %w", err)
		}
		return &buf, mw.FormDataContentType(), nil
	}

	var w MessageWire
	if err := c.doOnce(ctx, http.MethodPost, noticePath(noticeID, "documents", "upload"), body, &w); err != nil {
		return "", err
	}
	return w.Message, nil
}

// SetFavorite adds (POST) or removes (DELETE) the notice from the user's
// favorites.
func (c *Client) SetFavorite(ctx context.Context, noticeID string, favorite bool) error {
	if !c.session.Authenticated() {
		return ErrNoSession
	}
	method := http.MethodDelete
	if favorite {
		method = http.MethodPost
	}
	return c.do(ctx, method, "/favorites/"+url.PathEscape(noticeID), nil, nil)
}
