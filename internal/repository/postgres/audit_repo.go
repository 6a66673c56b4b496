// internal/repository/postgres/audit_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fluencr-service/internal/domain/audit"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit event
func (r *AuditRepository) Create(ctx context.Context, e *audit.Event) error {
	query := `
		INSERT INTO audit_events (id, account_id, actor, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var detailsJSON []byte
	var err error
	if e.Details != nil {
		detailsJSON, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, query, e.ID, e.AccountID, e.Actor, string(e.Action), detailsJSON, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

// List returns the newest events matching filters
func (r *AuditRepository) List(ctx context.Context, filters audit.ListFilters) ([]audit.Event, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filters.AccountID != "" {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argPos))
		args = append(args, filters.AccountID)
		argPos++
	}
	if filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argPos))
		args = append(args, filters.Action)
		argPos++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, account_id, actor, action, details, created_at FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var e audit.Event
		var action string
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Actor, &action, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
