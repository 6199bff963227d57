package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type AuditEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Record(ctx context.Context, userID, action, target, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (user_id, action, target, detail) VALUES ($1, $2, $3, $4)`,
		userID, action, target, detail)
	return err
}

func (s *AuditService) List(ctx context.Context, limit int) ([]AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, target, detail, created_at
         FROM audit_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Action, &ev.Target, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
