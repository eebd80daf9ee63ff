// Package models provides data model definitions for the Bestlist client core.
package models

import "time"

// CacheEntry holds the cached record list for one cache domain
// (e.g. "feed:following" or "profile:<userId>").
// Records are ordered newest-first and unique by id once ids are known.
type CacheEntry struct {
	Records     []Record `json:"records"`
	HasMore     bool     `json:"has_more"`
	Offset      int      `json:"offset"`
	LastUpdated int64    `json:"last_updated"`
}

// Touch updates the LastUpdated timestamp.
func (e *CacheEntry) Touch() {
	e.LastUpdated = time.Now().Unix()
}

// Clone returns a deep enough copy for handing to callers: the record slice
// is copied so consumers cannot mutate the cached working set.
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	out := &CacheEntry{
		Records:     make([]Record, len(e.Records)),
		HasMore:     e.HasMore,
		Offset:      e.Offset,
		LastUpdated: e.LastUpdated,
	}
	copy(out.Records, e.Records)
	return out
}
