// Package merge combines record lists from multiple sources (offline
// placeholders, optimistic inserts, authoritative fetches) into one
// order-preserving, duplicate-free list.
package merge

import "github.com/bestlist/vitara-core/internal/models"

// Merge flattens the given lists in order, keeping the first occurrence of
// each record and dropping later duplicates. Two records are duplicates when
// they share an id, or when either side is an offline placeholder and the
// content keys match. An authoritative record arriving after its offline
// placeholder therefore supersedes it in place (the placeholder's position
// is taken by whichever occurrence came first in the input).
func Merge(lists ...[]models.Record) []models.Record {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	out := make([]models.Record, 0, total)
	byID := make(map[string]int, total)         // record id -> index in out
	byContentKey := make(map[string]int, total) // contentKey -> index of offline-matched entry

	for _, list := range lists {
		for _, rec := range list {
			if idx, ok := byID[rec.ID]; ok && rec.ID != "" {
				// Same id seen already; prefer the authoritative copy.
				if out[idx].Offline && !rec.Offline {
					replace(out, idx, rec, byID, byContentKey)
				}
				continue
			}

			key := rec.ContentKey()
			if idx, ok := byContentKey[key]; ok {
				// Content-key dedup only applies when either side still
				// lacks a server id. Two confirmed records may legitimately
				// share a content key.
				if rec.Offline || out[idx].Offline {
					if out[idx].Offline && !rec.Offline {
						replace(out, idx, rec, byID, byContentKey)
					}
					continue
				}
			}

			out = append(out, rec)
			idx := len(out) - 1
			if rec.ID != "" {
				byID[rec.ID] = idx
			}
			byContentKey[key] = idx
		}
	}

	return out
}

// replace swaps the record at idx for the authoritative rec, keeping its
// position, and reindexes both lookup maps.
func replace(out []models.Record, idx int, rec models.Record, byID, byContentKey map[string]int) {
	old := out[idx]
	delete(byID, old.ID)
	out[idx] = rec
	if rec.ID != "" {
		byID[rec.ID] = idx
	}
	byContentKey[rec.ContentKey()] = idx
}

// DropOfflineForUser removes offline placeholders belonging to userID whose
// content key appears in contentKeys. The sync engine calls this after a
// pass confirms queued mutations, so the placeholders those mutations made
// redundant do not linger next to their authoritative replacements. A
// placeholder whose mutation is still queued keeps its content key out of
// the set and survives.
func DropOfflineForUser(records []models.Record, userID string, contentKeys map[string]bool) []models.Record {
	out := records[:0]
	for _, rec := range records {
		if rec.Offline && rec.UserID == userID && contentKeys[rec.ContentKey()] {
			continue
		}
		out = append(out, rec)
	}
	return out
}
