// Package ui provides the root Bubble Tea model for tenderwatch: an inbox of
// notices to pick from and the notice panel.
package ui

import "github.com/abelbrown/tenderwatch/internal/model"

// InboxLoaded is sent when inbox rows are read from the store.
type InboxLoaded struct {
	Recent  []model.InboxEntry // recently opened notices, newest first
	Entries []model.InboxEntry // watchlist entries, newest first
	Err     error
}

// InboxUpdated is sent by the coordinator after polling one watchlist.
type InboxUpdated struct {
	Watchlist  string
	NewEntries int
	Err        error
}
