package videos

import (
	"context"
	"log/slog"
)

// Reaper removes assets whose retention window has elapsed, deleting the
// stored object first and the index record second. Repeated or concurrent
// invocations are safe: deletes are idempotent and no cursor is shared.
type Reaper struct {
	index  AssetIndex
	store  ObjectStore
	logger *slog.Logger
}

// NewReaper constructs a reaper over the provided index and store.
func NewReaper(index AssetIndex, store ObjectStore, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{index: index, store: store, logger: logger}
}

// Reap processes up to limit expired records and returns the number removed.
// A failed object delete is logged and skipped over so a missing object never
// blocks index cleanup; a failed expiry query aborts the pass with zero
// progress.
func (r *Reaper) Reap(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	expired, err := r.index.FindExpired(ctx, limit)
	if err != nil {
		return 0, &IndexError{Op: "find expired", Err: err}
	}

	removed := 0
	for _, asset := range expired {
		if err := r.store.Delete(ctx, asset.ObjectKey); err != nil {
			r.logger.Warn("delete expired object", "assetId", asset.VideoID, "key", asset.ObjectKey, "error", err)
		}
		if err := r.index.Delete(ctx, asset.VideoID); err != nil {
			r.logger.Error("delete expired index record", "assetId", asset.VideoID, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}
