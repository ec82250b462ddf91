package model

import (
	"net/url"
	"strings"
)

// Lifecycle is the derived acquisition/analysis state of one document.
type Lifecycle struct {
	IsUploaded     bool
	IsDownloaded   bool
	HasRealURL     bool
	CanDownload    bool
	DownloadFailed bool
	CanAnalyze     bool
}

// Derive computes the lifecycle flags of d from its URL, declared type and
// download status. It is pure; callers recompute it whenever the document
// list changes.
func Derive(d Document) Lifecycle {
	lc := Lifecycle{
		IsUploaded:   IsUploaded(d),
		IsDownloaded: d.DownloadStatus == DownloadOK,
	}
	lc.HasRealURL = d.URL != "" && !lc.IsUploaded
	lc.CanDownload = lc.HasRealURL && !lc.IsDownloaded && !IsPortalPage(d)
	lc.DownloadFailed = d.DownloadStatus == DownloadFailed || d.DownloadStatus == DownloadSkipped
	lc.CanAnalyze = IsPDFLike(d) && (lc.IsDownloaded || lc.IsUploaded)
	return lc
}

// IsUploaded reports whether d was supplied by the user.
func IsUploaded(d Document) bool {
	return strings.HasPrefix(d.URL, UploadScheme)
}

// IsPDFLike reports whether d is a PDF, by declared type or URL suffix.
func IsPDFLike(d Document) bool {
	switch strings.ToLower(strings.TrimSpace(d.FileType)) {
	case "pdf", "application/pdf":
		return true
	}
	return strings.HasSuffix(strings.ToLower(urlPath(d.URL)), ".pdf")
}

// IsPortalPage reports whether d is an HTML landing page rather than a file.
func IsPortalPage(d Document) bool {
	switch strings.ToLower(strings.TrimSpace(d.FileType)) {
	case "html", "text/html", "portal":
		return true
	}
	return false
}

// urlPath strips query and fragment so "x.pdf?token=1" still counts as PDF.
func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
