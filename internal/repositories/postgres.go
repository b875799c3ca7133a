package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidvault/backend/internal/db"
	"github.com/vidvault/backend/internal/models"
	"github.com/vidvault/backend/internal/videos"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Username, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByUsername fetches a user by their unique handle.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users
        WHERE username = $1
    `, username)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by username: %w", err)
	}

	return user, nil
}

// PostgresRequestRepository provides PostgreSQL-backed persistence for the
// download request audit log.
type PostgresRequestRepository struct {
	pool db.Pool
}

// NewPostgresRequestRepository constructs a request repository backed by PostgreSQL.
func NewPostgresRequestRepository(pool db.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{pool: pool}
}

// Create persists a new download request in the queued state.
func (r *PostgresRequestRepository) Create(ctx context.Context, request models.DownloadRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := request.Status
	if status == "" {
		status = models.RequestStatusQueued
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO download_requests (id, user_id, url, format_id, status, error_detail, created_at, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, request.ID, request.UserID, request.URL, request.FormatID, status, request.Error, request.CreatedAt, request.StartedAt, request.FinishedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert download request: %w", err)
	}

	return nil
}

// MarkInProgress moves a queued request forward and stamps its start time.
func (r *PostgresRequestRepository) MarkInProgress(ctx context.Context, requestID string) error {
	return r.transition(ctx, requestID, `
        UPDATE download_requests
        SET status = $2, started_at = $3
        WHERE id = $1 AND status = $4
    `, models.RequestStatusInProgress, time.Now().UTC(), models.RequestStatusQueued)
}

// MarkCompleted finalises a request in the completed state.
func (r *PostgresRequestRepository) MarkCompleted(ctx context.Context, requestID string) error {
	return r.transition(ctx, requestID, `
        UPDATE download_requests
        SET status = $2, finished_at = $3
        WHERE id = $1 AND status = $4
    `, models.RequestStatusCompleted, time.Now().UTC(), models.RequestStatusInProgress)
}

// MarkFailed finalises a request in the failed state with the error detail.
func (r *PostgresRequestRepository) MarkFailed(ctx context.Context, requestID, detail string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE download_requests
        SET status = $2, error_detail = $3, finished_at = $4
        WHERE id = $1 AND status IN ($5, $6)
    `, requestID, models.RequestStatusFailed, detail, time.Now().UTC(), models.RequestStatusQueued, models.RequestStatusInProgress)
	if err != nil {
		return fmt.Errorf("update download request failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the user's most recent requests, newest first.
func (r *PostgresRequestRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.DownloadRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if limit <= 0 {
		limit = 50
	}

	rows, err := conn.Query(ctx, `
        SELECT id, user_id, url, format_id, status, error_detail, created_at, started_at, finished_at
        FROM download_requests
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query download requests: %w", err)
	}
	defer rows.Close()

	var requests []models.DownloadRequest
	for rows.Next() {
		var (
			req        models.DownloadRequest
			startedAt  sql.NullTime
			finishedAt sql.NullTime
		)

		if err := rows.Scan(&req.ID, &req.UserID, &req.URL, &req.FormatID, &req.Status, &req.Error, &req.CreatedAt, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan download request: %w", err)
		}

		if startedAt.Valid {
			t := startedAt.Time.UTC()
			req.StartedAt = &t
		}
		if finishedAt.Valid {
			t := finishedAt.Time.UTC()
			req.FinishedAt = &t
		}

		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate download requests: %w", err)
	}

	return requests, nil
}

func (r *PostgresRequestRepository) transition(ctx context.Context, requestID, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	allArgs := append([]any{requestID}, args...)
	tag, err := conn.Exec(ctx, query, allArgs...)
	if err != nil {
		return fmt.Errorf("update download request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ RequestRepository = (*PostgresRequestRepository)(nil)
var _ videos.RequestLog = (*PostgresRequestRepository)(nil)
