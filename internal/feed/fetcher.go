// Package feed retrieves watchlist feeds and converts their entries into
// inbox entries.
//
// A watchlist is a saved search that the procurement service publishes as
// an RSS or Atom feed; each entry links to one notice.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// Source is one configured watchlist feed.
type Source struct {
	Name string
	URL  string
}

// Fetcher retrieves entries from watchlist feeds.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "tenderwatch (+https://github.com/abelbrown/tenderwatch)",
	}
}

// Fetch retrieves the entries of src. Does NOT store them - caller decides
// what to do with them. Entries without a usable notice id are skipped.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]model.InboxEntry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]model.InboxEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if e, ok := convertFeedItem(item, src); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// convertFeedItem maps a feed item onto an inbox entry.
func convertFeedItem(item *gofeed.Item, src Source) (model.InboxEntry, bool) {
	id := NoticeID(item.GUID, item.Link)
	if id == "" {
		return model.InboxEntry{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = id
	}

	return model.InboxEntry{
		NoticeID:  id,
		Title:     title,
		Link:      item.Link,
		Published: published,
		Watchlist: src.Name,
	}, true
}

// NoticeID derives the notice identifier of a feed entry: the GUID when it
// is a bare identifier, otherwise the last path segment of the GUID URL or
// of the link.
func NoticeID(guid, link string) string {
	guid = strings.TrimSpace(guid)
	if guid != "" && !strings.Contains(guid, "/") {
		return guid
	}
	for _, raw := range []string{guid, link} {
		if id := lastSegment(raw); id != "" {
			return id
		}
	}
	return ""
}

func lastSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	seg := path.Base(p)
	if seg == "." || seg == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return seg
}
