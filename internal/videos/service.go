package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidvault/backend/internal/logging"
	"github.com/vidvault/backend/internal/models"
)

// AssetIndex is the searchable store of per-user asset records. Get returns
// an error wrapping ErrNotFound when no record exists. The index performs no
// authorization checks; callers must verify ownership before Delete.
type AssetIndex interface {
	Put(ctx context.Context, asset models.Asset) error
	Get(ctx context.Context, assetID string) (models.Asset, error)
	Delete(ctx context.Context, assetID string) error
	List(ctx context.Context, ownerID string, page, pageSize int, textFilter string) ([]models.Asset, int64, error)
	FindExpired(ctx context.Context, limit int) ([]models.Asset, error)
}

// ObjectStore is the durable byte store for downloaded media. Delete is
// idempotent: removing a missing key is not an error.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CredentialStore holds the shared cookie jar used by the extraction tool.
// Load returns an error wrapping ErrMissingCredentials when the slot is empty.
type CredentialStore interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, blob []byte) error
}

// RequestLog records the lifecycle of acquisition attempts. It is an audit
// trail: failures to write it are logged by the service but never abort a
// download.
type RequestLog interface {
	Create(ctx context.Context, request models.DownloadRequest) error
	MarkInProgress(ctx context.Context, requestID string) error
	MarkCompleted(ctx context.Context, requestID string) error
	MarkFailed(ctx context.Context, requestID, detail string) error
}

// ServiceConfig carries the policy knobs for the acquisition pipeline.
type ServiceConfig struct {
	AllowedFormats []string
	MaxAssetBytes  int64
	Retention      time.Duration
	LinkTTL        time.Duration
	PageSize       int
}

// Service coordinates the extractor, object store, asset index and credential
// cache. It is the only writer of index and object entries during creation
// and the only component permitted to delete both together.
type Service struct {
	extractor Extractor
	index     AssetIndex
	store     ObjectStore
	creds     CredentialStore
	requests  RequestLog
	cfg       ServiceConfig

	now func() time.Time
}

// NewService wires the pipeline's collaborators together.
func NewService(extractor Extractor, index AssetIndex, store ObjectStore, creds CredentialStore, requests RequestLog, cfg ServiceConfig) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = time.Hour
	}
	return &Service{
		extractor: extractor,
		index:     index,
		store:     store,
		creds:     creds,
		requests:  requests,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Probe validates the URL shape and returns descriptive metadata without
// transferring media bytes.
func (s *Service) Probe(ctx context.Context, url string) (Metadata, error) {
	if _, err := ParseVideoURL(url); err != nil {
		return Metadata{}, err
	}

	dir, err := os.MkdirTemp("", "vidvault-probe-*")
	if err != nil {
		return Metadata{}, fmt.Errorf("create probe workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	cookieFile, err := s.materializeCookies(ctx, dir)
	if err != nil {
		return Metadata{}, err
	}

	return s.extractor.Probe(ctx, url, ProbeOptions{CookieFile: cookieFile})
}

// AcquireRequest describes one acquisition invocation.
type AcquireRequest struct {
	URL      string
	OwnerID  string
	FormatID string
}

// AcquireResult is returned to the caller once the asset is durably stored
// and indexed. Retrieval locations are a transport concern and derived from
// AssetID by the caller.
type AcquireResult struct {
	AssetID  string
	Title    string
	FileName string
	FileSize int64
}

// Acquire runs the full pipeline: probe, download into invocation-scoped
// transient storage, size check, upload, index write. Transient storage is
// released on every exit path. A failure after upload deletes the orphaned
// object so no index entry can ever dangle.
func (s *Service) Acquire(ctx context.Context, req AcquireRequest) (AcquireResult, error) {
	logger := logging.FromContext(ctx)

	if _, err := ParseVideoURL(req.URL); err != nil {
		return AcquireResult{}, err
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return AcquireResult{}, errors.New("owner id must be provided")
	}

	requestID := s.logRequest(ctx, req)

	result, err := s.acquire(ctx, req)
	if err != nil {
		s.logRequestFailed(ctx, requestID, err)
		return AcquireResult{}, err
	}

	s.logRequestCompleted(ctx, requestID)
	logger.Info("asset acquired",
		"assetId", result.AssetID,
		"ownerId", req.OwnerID,
		"fileSize", result.FileSize,
	)
	return result, nil
}

func (s *Service) acquire(ctx context.Context, req AcquireRequest) (AcquireResult, error) {
	logger := logging.FromContext(ctx)

	// Transient storage is scoped to this single invocation and released on
	// every exit path from here on.
	dir, err := os.MkdirTemp("", "vidvault-dl-*")
	if err != nil {
		return AcquireResult{}, fmt.Errorf("create download workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	cookieFile, err := s.materializeCookies(ctx, dir)
	if err != nil {
		return AcquireResult{}, err
	}

	meta, err := s.extractor.Probe(ctx, req.URL, ProbeOptions{CookieFile: cookieFile})
	if err != nil {
		return AcquireResult{}, err
	}

	if req.FormatID != "" && !hasFormat(meta.Formats, req.FormatID) {
		return AcquireResult{}, &FormatUnavailableError{
			Requested: req.FormatID,
			Available: FormatIDs(meta.Formats),
		}
	}

	assetID := uuid.NewString()

	err = s.extractor.Download(ctx, req.URL, DownloadOptions{
		FormatID:   req.FormatID,
		OutputDir:  dir,
		BaseName:   assetID,
		CookieFile: cookieFile,
	})
	if err != nil {
		return AcquireResult{}, err
	}

	fileName, filePath, err := findProducedFile(dir, assetID, s.cfg.AllowedFormats)
	if err != nil {
		return AcquireResult{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return AcquireResult{}, fmt.Errorf("stat downloaded file: %w", err)
	}
	// The size gate runs against the local file, before any store write.
	if s.cfg.MaxAssetBytes > 0 && info.Size() > s.cfg.MaxAssetBytes {
		return AcquireResult{}, &SizeLimitError{Size: info.Size(), Limit: s.cfg.MaxAssetBytes}
	}

	// Key is namespaced by owner and asset so concurrent invocations can
	// never collide and per-user prefix operations stay possible.
	objectKey := fmt.Sprintf("%s/%s/%s", req.OwnerID, assetID, fileName)

	f, err := os.Open(filePath)
	if err != nil {
		return AcquireResult{}, fmt.Errorf("open downloaded file: %w", err)
	}
	err = s.store.Put(ctx, objectKey, f, info.Size(), contentTypeFor(fileName))
	f.Close()
	if err != nil {
		return AcquireResult{}, &UploadError{Key: objectKey, Err: err}
	}

	now := s.now().UTC()
	asset := models.Asset{
		VideoID:      assetID,
		UserID:       req.OwnerID,
		URL:          req.URL,
		Title:        meta.Title,
		Duration:     meta.Duration,
		Uploader:     meta.Uploader,
		UploadDate:   meta.UploadDate,
		ViewCount:    meta.ViewCount,
		LikeCount:    meta.LikeCount,
		Tags:         meta.Tags,
		Description:  meta.Description,
		Thumbnail:    meta.Thumbnail,
		ObjectKey:    objectKey,
		FileName:     fileName,
		FileSize:     info.Size(),
		FormatID:     req.FormatID,
		Status:       models.AssetStatusCompleted,
		DownloadDate: now,
		ExpiryDate:   now.Add(s.cfg.Retention),
	}

	if err := s.index.Put(ctx, asset); err != nil {
		// The object is already durable; remove it so nothing unindexed leaks.
		if delErr := s.store.Delete(ctx, objectKey); delErr != nil {
			logger.Error("remove orphaned object after index failure", "key", objectKey, "error", delErr)
		}
		return AcquireResult{}, &IndexError{Op: "put", Err: err}
	}

	s.refreshCredentials(ctx, cookieFile)

	return AcquireResult{
		AssetID:  assetID,
		Title:    meta.Title,
		FileName: fileName,
		FileSize: info.Size(),
	}, nil
}

// AssetPage is one page of a user's non-expired assets.
type AssetPage struct {
	Assets    []models.Asset
	Total     int64
	Page      int
	PageCount int
}

// List returns the caller's non-expired assets, newest first, optionally
// filtered by free text.
func (s *Service) List(ctx context.Context, ownerID string, page int, textFilter string) (AssetPage, error) {
	if page < 1 {
		page = 1
	}

	assets, total, err := s.index.List(ctx, ownerID, page, s.cfg.PageSize, textFilter)
	if err != nil {
		return AssetPage{}, &IndexError{Op: "list", Err: err}
	}

	pageCount := int((total + int64(s.cfg.PageSize) - 1) / int64(s.cfg.PageSize))
	return AssetPage{Assets: assets, Total: total, Page: page, PageCount: pageCount}, nil
}

// DownloadLink returns a time-limited retrieval URL for the asset. Ownership
// and expiry are checked independently so "not yours" and "no longer
// available" never blur together.
func (s *Service) DownloadLink(ctx context.Context, assetID, ownerID string) (string, error) {
	asset, err := s.index.Get(ctx, assetID)
	if err != nil {
		return "", err
	}
	if asset.UserID != ownerID {
		return "", ErrUnauthorized
	}
	if asset.Expired(s.now()) {
		return "", ErrExpired
	}

	url, err := s.store.PresignedGet(ctx, asset.ObjectKey, s.cfg.LinkTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", asset.ObjectKey, err)
	}
	return url, nil
}

// Delete removes the asset's bytes and its index record, in that order, after
// verifying ownership.
func (s *Service) Delete(ctx context.Context, assetID, ownerID string) error {
	asset, err := s.index.Get(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.UserID != ownerID {
		return ErrUnauthorized
	}

	if err := s.store.Delete(ctx, asset.ObjectKey); err != nil {
		return fmt.Errorf("delete object %s: %w", asset.ObjectKey, err)
	}
	if err := s.index.Delete(ctx, assetID); err != nil {
		return &IndexError{Op: "delete", Err: err}
	}
	return nil
}

// materializeCookies writes the shared cookie jar into the invocation's
// workspace so the tool can read it. An empty slot is a hard failure rather
// than a silent unauthenticated attempt.
func (s *Service) materializeCookies(ctx context.Context, dir string) (string, error) {
	blob, err := s.creds.Load(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "cookies.txt")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return "", fmt.Errorf("write cookie file: %w", err)
	}
	return path, nil
}

// refreshCredentials stores the possibly rotated cookie jar back into the
// shared slot. Last write wins; a concurrent invocation racing here at worst
// leaves slightly stale cookies behind.
func (s *Service) refreshCredentials(ctx context.Context, cookieFile string) {
	logger := logging.FromContext(ctx)

	blob, err := os.ReadFile(cookieFile)
	if err != nil {
		logger.Warn("read rotated cookie jar", "error", err)
		return
	}
	if err := s.creds.Store(ctx, blob); err != nil {
		logger.Warn("store rotated cookie jar", "error", err)
	}
}

func (s *Service) logRequest(ctx context.Context, req AcquireRequest) string {
	if s.requests == nil {
		return ""
	}

	logger := logging.FromContext(ctx)
	requestID := uuid.NewString()
	record := models.DownloadRequest{
		ID:        requestID,
		UserID:    req.OwnerID,
		URL:       req.URL,
		FormatID:  req.FormatID,
		Status:    models.RequestStatusQueued,
		CreatedAt: s.now().UTC(),
	}
	if err := s.requests.Create(ctx, record); err != nil {
		logger.Warn("record download request", "error", err)
		return ""
	}
	if err := s.requests.MarkInProgress(ctx, requestID); err != nil {
		logger.Warn("mark download request in progress", "requestId", requestID, "error", err)
	}
	return requestID
}

func (s *Service) logRequestCompleted(ctx context.Context, requestID string) {
	if s.requests == nil || requestID == "" {
		return
	}
	if err := s.requests.MarkCompleted(ctx, requestID); err != nil {
		logging.FromContext(ctx).Warn("mark download request completed", "requestId", requestID, "error", err)
	}
}

func (s *Service) logRequestFailed(ctx context.Context, requestID string, cause error) {
	if s.requests == nil || requestID == "" {
		return
	}
	if err := s.requests.MarkFailed(ctx, requestID, cause.Error()); err != nil {
		logging.FromContext(ctx).Warn("mark download request failed", "requestId", requestID, "error", err)
	}
}

func hasFormat(formats []Format, id string) bool {
	for _, f := range formats {
		if f.ID == id {
			return true
		}
	}
	return false
}

// findProducedFile locates the tool's output by matching the base name and an
// allowed container extension.
func findProducedFile(dir, baseName string, allowedFormats []string) (name, path string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("read download workspace: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
		if !strings.HasPrefix(fileName, baseName+".") {
			continue
		}
		for _, allowed := range allowedFormats {
			if strings.EqualFold(ext, allowed) {
				return fileName, filepath.Join(dir, fileName), nil
			}
		}
	}

	return "", "", ErrNoFileProduced
}

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
}

func contentTypeFor(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
