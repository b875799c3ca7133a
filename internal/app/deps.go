package app

import (
	"log/slog"
	"time"

	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/internal/config"
	"github.com/vidvault/backend/internal/db"
	"github.com/vidvault/backend/internal/handlers"
	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/internal/repositories"
	"github.com/vidvault/backend/internal/videos"
)

const sessionTTL = 24 * time.Hour

// buildDependencies assembles the handler collaborators from configuration
// and the connected backends.
func buildDependencies(pool db.Pool, b backends, cfg config.Config, logger *slog.Logger) handlers.Dependencies {
	extractor := videos.NewYTDLPExtractor(cfg.YTDLPPath, cfg.AllowedFormats, cfg.ProbeTimeout, cfg.DownloadTimeout)
	cached := videos.NewCachingExtractor(extractor, cfg.ProbeCacheTTL)

	requestLog := repositories.NewPostgresRequestRepository(pool)
	service := videos.NewService(cached, b.idx, b.store, b.creds, requestLog,
		videos.ServiceConfig{
			AllowedFormats: cfg.AllowedFormats,
			MaxAssetBytes:  cfg.MaxAssetBytes,
			Retention:      time.Duration(cfg.RetentionDays) * 24 * time.Hour,
			LinkTTL:        cfg.LinkTTL,
		})

	return handlers.Dependencies{
		Users:          repositories.NewPostgresUserRepository(pool),
		Sessions:       auth.NewManager(sessionTTL, repositories.NewPostgresSessionStore(pool)),
		Videos:         service,
		Requests:       requestLog,
		Reaper:         videos.NewReaper(b.idx, b.store, logger),
		AcquireLimiter: middleware.NewCallerRateLimiter(5, time.Minute, 2, 10*time.Minute),
		AdminToken:     cfg.AdminToken,
		ReapBatchLimit: cfg.ReapBatchLimit,
	}
}
