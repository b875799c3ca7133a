package videos

import (
	"context"
	"sync"
	"time"
)

type probeEntry struct {
	metadata Metadata
	expires  time.Time
}

// CachingExtractor wraps another Extractor with a TTL-based in-memory cache
// for probe results. Downloads always pass straight through.
type CachingExtractor struct {
	base Extractor
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]probeEntry
}

// NewCachingExtractor returns an Extractor that caches probes for the
// provided TTL.
func NewCachingExtractor(base Extractor, ttl time.Duration) *CachingExtractor {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingExtractor{
		base:  base,
		ttl:   ttl,
		items: make(map[string]probeEntry),
	}
}

// Probe returns cached metadata when available, otherwise it delegates to the
// underlying extractor and stores the result.
func (c *CachingExtractor) Probe(ctx context.Context, url string, opts ProbeOptions) (Metadata, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[url]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.metadata, nil
	}

	metadata, err := c.base.Probe(ctx, url, opts)
	if err != nil {
		return Metadata{}, err
	}

	c.mu.Lock()
	c.items[url] = probeEntry{metadata: metadata, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return metadata, nil
}

// Download delegates to the underlying extractor.
func (c *CachingExtractor) Download(ctx context.Context, url string, opts DownloadOptions) error {
	return c.base.Download(ctx, url, opts)
}
