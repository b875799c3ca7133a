package handlers

import (
	"context"

	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/internal/models"
	"github.com/vidvault/backend/internal/videos"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// SessionManager issues and resolves authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (auth.Session, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string)
}

// VideoService exposes the acquisition pipeline to the HTTP layer.
type VideoService interface {
	Probe(ctx context.Context, url string) (videos.Metadata, error)
	Acquire(ctx context.Context, req videos.AcquireRequest) (videos.AcquireResult, error)
	List(ctx context.Context, ownerID string, page int, textFilter string) (videos.AssetPage, error)
	DownloadLink(ctx context.Context, assetID, ownerID string) (string, error)
	Delete(ctx context.Context, assetID, ownerID string) error
}

// RequestHistory reads back a user's download request audit log.
type RequestHistory interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]models.DownloadRequest, error)
}

// ExpiredReaper removes assets past their retention window.
type ExpiredReaper interface {
	Reap(ctx context.Context, limit int) (int, error)
}
