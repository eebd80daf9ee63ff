// Package kvstore provides the durable key-value storage the client core
// persists into. Values are opaque strings (JSON blobs up to a few MB);
// backends must survive process restarts.
package kvstore

// Store is the persistence collaborator shared by the queue, the cache
// manager and the local caches. A missing key is (value "", found false),
// never an error.
type Store interface {
	// Get returns the value for key, or found=false if never set.
	Get(key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Close releases backend resources.
	Close() error
}
