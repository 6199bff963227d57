package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mcpboard-dev/mcpboard/internal/realtime"
)

// Server is a managed MCP server the dashboard tracks.
type Server struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Transport   string     `json:"transport"`
	Endpoint    string     `json:"endpoint"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type ServerService struct {
	db *sql.DB
}

func NewServerService(db *sql.DB) *ServerService {
	return &ServerService{db: db}
}

const serverColumns = `id, name, transport, endpoint, description, enabled, status, last_seen_at, created_at, updated_at`

func scanServer(row interface{ Scan(...any) error }) (*Server, error) {
	var srv Server
	var lastSeen sql.NullTime
	err := row.Scan(&srv.ID, &srv.Name, &srv.Transport, &srv.Endpoint, &srv.Description,
		&srv.Enabled, &srv.Status, &lastSeen, &srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		srv.LastSeenAt = &lastSeen.Time
	}
	return &srv, nil
}

func (s *ServerService) List(ctx context.Context) ([]Server, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serverColumns+` FROM servers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var out []Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		out = append(out, *srv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (s *ServerService) GetByID(ctx context.Context, id string) (*Server, error) {
	return scanServer(s.db.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE id = $1`, id))
}

func (s *ServerService) Create(ctx context.Context, srv *Server) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO servers (name, transport, endpoint, description, enabled, status)
         VALUES ($1, $2, $3, $4, $5, 'unknown')
         RETURNING id, status, created_at, updated_at`,
		srv.Name, srv.Transport, srv.Endpoint, srv.Description, srv.Enabled,
	).Scan(&srv.ID, &srv.Status, &srv.CreatedAt, &srv.UpdatedAt)
}

func (s *ServerService) Update(ctx context.Context, srv *Server) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE servers
         SET name = $2, transport = $3, endpoint = $4, description = $5, enabled = $6, updated_at = NOW()
         WHERE id = $1`,
		srv.ID, srv.Name, srv.Transport, srv.Endpoint, srv.Description, srv.Enabled)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ServerService) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus records the latest health observed for a server, typically
// from the bridge event stream.
func (s *ServerService) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE servers SET status = $2, last_seen_at = NOW(), updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

// Statuses implements the realtime hub's read-only server view.
func (s *ServerService) Statuses(ctx context.Context) ([]realtime.ServerStatus, error) {
	servers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]realtime.ServerStatus, 0, len(servers))
	for _, srv := range servers {
		out = append(out, realtime.ServerStatus{
			ID:         srv.ID,
			Name:       srv.Name,
			Status:     srv.Status,
			LastSeenAt: srv.LastSeenAt,
		})
	}
	return out, nil
}
