package memory

import (
	"context"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultRecentLimit applies when Recent is called with a non-positive limit.
	DefaultRecentLimit = 10
)

// Turn is one stored message of a conversation. Seq is assigned by the store and
// strictly increases in insertion order.
type Turn struct {
	Seq       int64     `json:"seq"`
	UserID    string    `json:"uid"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store appends turns and reads back the recent tail of a user's conversation.
type Store interface {
	Append(ctx context.Context, userID, role, text string) (int64, error)
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)
	Ping(ctx context.Context) error
	Close() error
}

// StorageError reports a failed store operation. It is never retried internally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// chronological reverses newest-first rows in place.
func chronological(turns []Turn) []Turn {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}
