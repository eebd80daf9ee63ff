// Package remote defines the backend API collaborator the sync engine
// replays queued mutations against, plus the HTTP implementation used in
// production. Every operation is idempotent where the backend allows it;
// failures are reported as errors and retried by the caller.
package remote

import (
	"context"
	"encoding/json"

	"github.com/bestlist/vitara-core/internal/models"
)

// Client is the remote API surface consumed by the sync engine and the
// cache store. Implementations must be safe for concurrent use.
type Client interface {
	// CreateRecord inserts a journaled item and returns the authoritative
	// record (with its server-assigned id).
	CreateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error)

	// UpdateRecord applies updates to an existing item.
	UpdateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error)

	// DeleteRecord removes an item.
	DeleteRecord(ctx context.Context, payload json.RawMessage) error

	// CreatePost publishes a feed post and returns the authoritative record.
	CreatePost(ctx context.Context, payload json.RawMessage) (*models.Record, error)

	// UpdateProfile applies profile field updates.
	UpdateProfile(ctx context.Context, payload json.RawMessage) error

	// CreateList creates a new list container.
	CreateList(ctx context.Context, payload json.RawMessage) error

	// FetchPage returns one page of records for a cache domain, newest
	// first. A short page (len < limit) means the domain is exhausted.
	FetchPage(ctx context.Context, domain string, limit, offset int) ([]models.Record, error)
}
