// internal/repository/store.go
package repository

import (
	"context"
	"fmt"
	"time"
)

// Concerns stored per account.
const (
	ConcernSubscription  = "subscription"
	ConcernQuota         = "quota"
	ConcernRelationships = "relationships"
)

// Document is one stored JSON blob and the version it was read at.
type Document struct {
	Key       string
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

// DocumentStore is a versioned key/value store. Put is a compare-and-swap:
// expectedVersion 0 means the key must not exist yet, otherwise it must
// match the stored version. A mismatch returns xerrors.ErrVersionConflict.
type DocumentStore interface {
	// Get returns xerrors.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (*Document, error)
	// Put returns the new version on success.
	Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// Key builds the storage key for one concern of one account.
func Key(concern, accountID string) string {
	return fmt.Sprintf("fluencr:%s:%s", concern, accountID)
}
