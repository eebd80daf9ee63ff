// Package models provides data model definitions for the Bestlist client core.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Record represents a single journaled item or feed post. Records created
// while offline carry a synthetic id and Offline=true until the sync engine
// confirms them against the backend.
type Record struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id,omitempty"`
	ListID      string `json:"list_id,omitempty"`
	Name        string `json:"name"`
	Rating      int    `json:"rating"`
	IsStayAway  bool   `json:"is_stay_away,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Offline     bool   `json:"offline,omitempty"`
	PendingSync bool   `json:"pending_sync,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// ContentKey derives the identity used to dedupe records that do not have a
// stable server id yet. Two records with the same name, rating and list are
// considered the same offline creation.
func (r *Record) ContentKey() string {
	return fmt.Sprintf("%s|%d|%s", strings.ToLower(strings.TrimSpace(r.Name)), r.Rating, r.ListID)
}

// HasServerID reports whether the record carries a backend-assigned id.
func (r *Record) HasServerID() bool {
	return r.ID != "" && !r.Offline && !strings.HasPrefix(r.ID, "offline_")
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (r *Record) CreatedAtTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}
