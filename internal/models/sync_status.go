// Package models provides data model definitions for the Bestlist client core.
package models

// SyncResult summarizes one sync pass over the mutation queue.
type SyncResult struct {
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	TotalItems int `json:"total_items"`
	// AlreadyInProgress is set when the pass was refused by the
	// single-flight guard and no work was attempted.
	AlreadyInProgress bool `json:"already_in_progress,omitempty"`
}

// SyncStatusRecord is the last-sync metadata persisted after each pass.
type SyncStatusRecord struct {
	LastSync int64      `json:"last_sync"`
	Results  SyncResult `json:"results"`
}

// QueueStatus is the point-in-time queue snapshot exposed to the UI.
type QueueStatus struct {
	PendingItems int         `json:"pending_items"`
	IsOnline     bool        `json:"is_online"`
	IsSyncing    bool        `json:"is_syncing"`
	LastSync     int64       `json:"last_sync,omitempty"`
	LastResults  *SyncResult `json:"last_results,omitempty"`
}
