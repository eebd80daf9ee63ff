// Package models provides data model definitions for the Bestlist client core.
package models

import (
	"encoding/json"
	"time"
)

// Operation represents a queued mutation type.
type Operation string

const (
	OperationCreateRecord  Operation = "create_item"
	OperationUpdateRecord  Operation = "update_item"
	OperationDeleteRecord  Operation = "delete_item"
	OperationCreatePost    Operation = "create_post"
	OperationUpdateProfile Operation = "update_profile"
	OperationCreateList    Operation = "create_list"
)

// DefaultMaxRetries is the bounded retry budget for a queued mutation.
const DefaultMaxRetries = 3

// QueueItem represents one pending write operation in the durable mutation
// queue. It is created on enqueue, its RetryCount is incremented on a failed
// sync attempt, and it is removed on success or once MaxRetries is reached.
type QueueItem struct {
	ID         string          `json:"id"`
	Type       Operation       `json:"type"`
	Payload    json.RawMessage `json:"data"`
	CreatedAt  int64           `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (q *QueueItem) CreatedAtTime() time.Time {
	return time.Unix(q.CreatedAt, 0)
}

// Exhausted reports whether the item has used up its retry budget.
func (q *QueueItem) Exhausted() bool {
	return q.RetryCount >= q.MaxRetries
}
