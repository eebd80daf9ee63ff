// Package uuid provides UUID v4 generation plus synthetic offline-id helpers.
package uuid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// OfflinePrefix marks ids minted locally before the backend has assigned a
// real one. Offline ids never leave the device.
const OfflinePrefix = "offline_"

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// NewOffline generates a synthetic id for a record created while offline.
func NewOffline() string {
	return OfflinePrefix + uuid.New().String()
}

// IsOffline reports whether id is a synthetic offline id.
func IsOffline(id string) bool {
	return strings.HasPrefix(id, OfflinePrefix)
}

// IsValid checks if a string is a valid UUID v4.
// Enforces strict format with dashes and correct variant bits.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
