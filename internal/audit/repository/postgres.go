package repository

import (
	"context"
	"database/sql"
	"fmt"

	"notevault/auth-service/internal/audit/domain"
)

// PostgresRepository persists audit entries in the auth_audit_log table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the entry. The entry must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	const query = `
        INSERT INTO auth_audit_log (id, user_id, phone, action, resource, ip, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Phone, e.Action, e.Resource, e.IP, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// ListByUser returns the user's audit entries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.Entry, error) {
	const query = `
        SELECT id, user_id, phone, action, resource, ip, metadata, created_at
        FROM auth_audit_log WHERE user_id = $1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3
    `
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Phone, &e.Action, &e.Resource, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return out, nil
}
