package repositories

import (
	"context"

	"github.com/vidvault/backend/internal/models"
)

// RequestRepository exposes data access for the download request audit log.
type RequestRepository interface {
	Create(ctx context.Context, request models.DownloadRequest) error
	MarkInProgress(ctx context.Context, requestID string) error
	MarkCompleted(ctx context.Context, requestID string) error
	MarkFailed(ctx context.Context, requestID, detail string) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.DownloadRequest, error)
}
