// internal/repository/postgres/document_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository stores versioned documents in kv_documents. Writes are
// conditional on the version read, so concurrent writers conflict instead
// of overwriting each other. Deleted rows stay as tombstones so versions
// keep increasing when a key is recreated.
type DocumentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get retrieves a document by key
func (r *DocumentRepository) Get(ctx context.Context, key string) (*repository.Document, error) {
	query := `
		SELECT key, data, version, updated_at
		FROM kv_documents
		WHERE key = $1 AND NOT deleted
	`

	var d repository.Document
	err := r.db.QueryRow(ctx, query, key).Scan(&d.Key, &d.Data, &d.Version, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &d, nil
}

// Put inserts or conditionally updates a document
func (r *DocumentRepository) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	if expectedVersion == 0 {
		query := `
			INSERT INTO kv_documents (key, data, version, deleted, updated_at)
			VALUES ($1, $2, 1, FALSE, NOW())
			ON CONFLICT (key) DO UPDATE
			SET data = EXCLUDED.data, version = kv_documents.version + 1, deleted = FALSE, updated_at = NOW()
			WHERE kv_documents.deleted
			RETURNING version
		`
		var version int64
		err := r.db.QueryRow(ctx, query, key, data).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, xerrors.ErrVersionConflict
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert document: %w", err)
		}
		return version, nil
	}

	query := `
		UPDATE kv_documents
		SET data = $2, version = version + 1, updated_at = NOW()
		WHERE key = $1 AND version = $3 AND NOT deleted
	`
	result, err := r.db.Exec(ctx, query, key, data, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, xerrors.ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

// Delete turns a document into a tombstone
func (r *DocumentRepository) Delete(ctx context.Context, key string) error {
	query := `
		UPDATE kv_documents
		SET deleted = TRUE, data = ''::bytea, updated_at = NOW()
		WHERE key = $1 AND NOT deleted
	`
	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
