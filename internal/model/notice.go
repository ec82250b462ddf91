// Package model provides the domain types shared by the panel, the API client
// and the local store.
//
// Notices, lots and documents mirror what the procurement API reports. The
// only derived state lives in Derive (see lifecycle.go); everything else is
// plain data.
package model

import (
	"sort"
	"strings"
	"time"
)

// Source identifies the publication provider a notice was harvested from.
type Source string

const (
	SourceTED     Source = "TED"
	SourceBOSA    Source = "BOSA"
	SourceUnknown Source = "UNKNOWN"
)

// ParseSource maps a provider name onto a Source, case-insensitively.
func ParseSource(s string) Source {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TED":
		return SourceTED
	case "BOSA":
		return SourceBOSA
	default:
		return SourceUnknown
	}
}

// SupportsDiscovery reports whether the provider can locate extra documents
// on its own portals. Only TED notices link out to buyer portals that the
// backend knows how to crawl.
func (s Source) SupportsDiscovery() bool {
	return s == SourceTED
}

// Notice is a single published procurement opportunity.
type Notice struct {
	ID                string
	Title             string
	OrganisationNames map[string]string // language -> name
	Source            Source
	CPVCode           string
	PublishedAt       time.Time
	DeadlineAt        *time.Time
	EstimatedValue    *float64
	AwardedValue      *float64
	Favorite          bool
	Summary           *Summary // previously cached AI summary, if any
}

// organisationFallback is the language order tried when the requested
// language has no organisation name.
var organisationFallback = []string{"fr", "nl", "en"}

// OrganisationFor returns the organisation name in lang, falling back to the
// common languages and finally to any available name.
func (n Notice) OrganisationFor(lang string) string {
	if name := n.OrganisationNames[lang]; name != "" {
		return name
	}
	for _, l := range organisationFallback {
		if name := n.OrganisationNames[l]; name != "" {
			return name
		}
	}
	keys := make([]string, 0, len(n.OrganisationNames))
	for k := range n.OrganisationNames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if name := n.OrganisationNames[k]; name != "" {
			return name
		}
	}
	return ""
}

// Lot is a sub-division of a notice's scope of work.
type Lot struct {
	Number      string
	Title       string
	Description string
	CPVCode     string
}

// Summary is the notice-level AI summary.
type Summary struct {
	Text        string
	Lang        string
	GeneratedAt time.Time
	Cached      bool
}

// InboxEntry is a notice reference surfaced by a watchlist feed or by the
// visit history.
type InboxEntry struct {
	NoticeID  string
	Title     string
	Link      string
	Published time.Time
	Watchlist string
}
