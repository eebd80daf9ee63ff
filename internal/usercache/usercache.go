// Package usercache keeps small per-user blobs (avatar URL, stats, basic
// profile) in the kvstore so profile views render instantly while offline.
// All reads are best-effort: a miss or decode failure yields the zero value.
package usercache

import (
	"encoding/json"
	"time"

	"github.com/bestlist/vitara-core/internal/kvstore"
)

// BasicProfile is the minimal profile snapshot cached locally.
type BasicProfile struct {
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Stats mirrors the profile counters shown while offline.
type Stats struct {
	TotalItems     int `json:"total_items"`
	TotalLists     int `json:"total_lists"`
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
}

// UserCache reads and writes per-user blobs.
type UserCache struct {
	store kvstore.Store
}

// New creates a UserCache.
func New(store kvstore.Store) *UserCache {
	return &UserCache{store: store}
}

func avatarKey(userID string) string  { return "local_avatar_url_" + userID }
func statsKey(userID string) string   { return "local_user_stats_" + userID }
func profileKey(userID string) string { return "local_basic_profile_" + userID }

// SaveAvatarURL stores the user's avatar URL.
func (u *UserCache) SaveAvatarURL(userID, url string) {
	if userID == "" || url == "" {
		return
	}
	_ = u.store.Set(avatarKey(userID), url)
}

// AvatarURL returns the cached avatar URL, or "".
func (u *UserCache) AvatarURL(userID string) string {
	if userID == "" {
		return ""
	}
	v, _, _ := u.store.Get(avatarKey(userID))
	return v
}

// SaveStats stores the user's profile counters.
func (u *UserCache) SaveStats(userID string, stats Stats) {
	if userID == "" {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = u.store.Set(statsKey(userID), string(data))
}

// GetStats returns the cached counters, or nil.
func (u *UserCache) GetStats(userID string) *Stats {
	if userID == "" {
		return nil
	}
	raw, found, err := u.store.Get(statsKey(userID))
	if err != nil || !found {
		return nil
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil
	}
	return &stats
}

// SaveBasicProfile stores the minimal profile snapshot.
func (u *UserCache) SaveBasicProfile(userID string, profile BasicProfile) {
	if userID == "" {
		return
	}
	profile.UpdatedAt = time.Now().Unix()
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	_ = u.store.Set(profileKey(userID), string(data))
}

// GetBasicProfile returns the cached profile snapshot, or nil.
func (u *UserCache) GetBasicProfile(userID string) *BasicProfile {
	if userID == "" {
		return nil
	}
	raw, found, err := u.store.Get(profileKey(userID))
	if err != nil || !found {
		return nil
	}
	var profile BasicProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil
	}
	return &profile
}
