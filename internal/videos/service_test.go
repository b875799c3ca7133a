package videos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidvault/backend/internal/models"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeExtractor struct {
	meta        Metadata
	probeErr    error
	downloadErr error

	produceExt  string
	produceSize int

	probes      int
	downloads   int
	downloadDir string
}

func (f *fakeExtractor) Probe(ctx context.Context, url string, opts ProbeOptions) (Metadata, error) {
	f.probes++
	if f.probeErr != nil {
		return Metadata{}, f.probeErr
	}
	return f.meta, nil
}

func (f *fakeExtractor) Download(ctx context.Context, url string, opts DownloadOptions) error {
	f.downloads++
	f.downloadDir = opts.OutputDir
	if f.downloadErr != nil {
		return f.downloadErr
	}
	ext := f.produceExt
	if ext == "" {
		return nil
	}
	size := f.produceSize
	if size <= 0 {
		size = 16
	}
	path := filepath.Join(opts.OutputDir, opts.BaseName+"."+ext)
	return os.WriteFile(path, bytes.Repeat([]byte{'v'}, size), 0o600)
}

type fakeIndex struct {
	items   map[string]models.Asset
	putErr  error
	puts    []models.Asset
	deleted []string

	listAssets []models.Asset
	listTotal  int64
	listErr    error

	expired []models.Asset
	findErr error
	delErr  error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{items: make(map[string]models.Asset)}
}

func (f *fakeIndex) Put(ctx context.Context, asset models.Asset) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, asset)
	f.items[asset.VideoID] = asset
	return nil
}

func (f *fakeIndex) Get(ctx context.Context, assetID string) (models.Asset, error) {
	asset, ok := f.items[assetID]
	if !ok {
		return models.Asset{}, fmt.Errorf("get %s: %w", assetID, ErrNotFound)
	}
	return asset, nil
}

func (f *fakeIndex) Delete(ctx context.Context, assetID string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, assetID)
	delete(f.items, assetID)
	return nil
}

func (f *fakeIndex) List(ctx context.Context, ownerID string, page, pageSize int, textFilter string) ([]models.Asset, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listAssets, f.listTotal, nil
}

func (f *fakeIndex) FindExpired(ctx context.Context, limit int) ([]models.Asset, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if limit < len(f.expired) {
		return f.expired[:limit], nil
	}
	return f.expired, nil
}

type fakeStore struct {
	objects map[string]int64
	putErr  error
	delErr  error
	deleted []string

	presignErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]int64)}
}

func (f *fakeStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("declared size %d but read %d", size, n)
	}
	f.objects[key] = size
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://store.example/" + key + "?ttl=" + ttl.String(), nil
}

type fakeCreds struct {
	blob    []byte
	loadErr error
	stored  [][]byte
}

func (f *fakeCreds) Load(ctx context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.blob, nil
}

func (f *fakeCreds) Store(ctx context.Context, blob []byte) error {
	f.stored = append(f.stored, blob)
	return nil
}

type fakeRequestLog struct {
	created   []models.DownloadRequest
	statuses  map[string]string
	createErr error
}

func newFakeRequestLog() *fakeRequestLog {
	return &fakeRequestLog{statuses: make(map[string]string)}
}

func (f *fakeRequestLog) Create(ctx context.Context, request models.DownloadRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, request)
	f.statuses[request.ID] = request.Status
	return nil
}

func (f *fakeRequestLog) MarkInProgress(ctx context.Context, requestID string) error {
	f.statuses[requestID] = models.RequestStatusInProgress
	return nil
}

func (f *fakeRequestLog) MarkCompleted(ctx context.Context, requestID string) error {
	f.statuses[requestID] = models.RequestStatusCompleted
	return nil
}

func (f *fakeRequestLog) MarkFailed(ctx context.Context, requestID, detail string) error {
	f.statuses[requestID] = models.RequestStatusFailed
	return nil
}

type serviceFixture struct {
	extractor *fakeExtractor
	index     *fakeIndex
	store     *fakeStore
	creds     *fakeCreds
	requests  *fakeRequestLog
	service   *Service
	now       time.Time
}

func newServiceFixture(cfg ServiceConfig) *serviceFixture {
	f := &serviceFixture{
		extractor: &fakeExtractor{
			meta: Metadata{
				Title:    "Example Video",
				Duration: 212,
				Uploader: "Channel",
				Formats: []Format{
					{ID: "18", Ext: "mp4"},
					{ID: "247", Ext: "webm"},
				},
			},
			produceExt: "mp4",
		},
		index:    newFakeIndex(),
		store:    newFakeStore(),
		creds:    &fakeCreds{blob: []byte("# Netscape HTTP Cookie File\n")},
		requests: newFakeRequestLog(),
		now:      time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	if cfg.AllowedFormats == nil {
		cfg.AllowedFormats = []string{"mp4", "webm", "mkv", "avi"}
	}
	if cfg.Retention == 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	f.service = NewService(f.extractor, f.index, f.store, f.creds, f.requests, cfg)
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestServiceAcquireSuccess(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{MaxAssetBytes: 1 << 20})

	result, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if result.AssetID == "" {
		t.Fatal("expected an asset id")
	}
	if result.Title != "Example Video" {
		t.Fatalf("unexpected title: %q", result.Title)
	}
	if result.FileName != result.AssetID+".mp4" {
		t.Fatalf("unexpected file name: %q", result.FileName)
	}

	wantKey := "user-1/" + result.AssetID + "/" + result.FileName
	if _, ok := fx.store.objects[wantKey]; !ok {
		t.Fatalf("expected object stored under %q, have %v", wantKey, fx.store.objects)
	}

	if len(fx.index.puts) != 1 {
		t.Fatalf("expected 1 index write, got %d", len(fx.index.puts))
	}
	asset := fx.index.puts[0]
	if asset.VideoID != result.AssetID || asset.UserID != "user-1" || asset.ObjectKey != wantKey {
		t.Fatalf("unexpected indexed asset: %+v", asset)
	}
	if asset.Status != models.AssetStatusCompleted {
		t.Fatalf("unexpected status: %q", asset.Status)
	}
	if !asset.DownloadDate.Equal(fx.now) {
		t.Fatalf("unexpected download date: %v", asset.DownloadDate)
	}
	if !asset.ExpiryDate.Equal(fx.now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry date: %v", asset.ExpiryDate)
	}

	if len(fx.creds.stored) != 1 {
		t.Fatalf("expected cookie jar refreshed once, got %d", len(fx.creds.stored))
	}

	if len(fx.requests.created) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(fx.requests.created))
	}
	if got := fx.requests.statuses[fx.requests.created[0].ID]; got != models.RequestStatusCompleted {
		t.Fatalf("unexpected request status: %q", got)
	}
}

func TestServiceAcquireReleasesWorkspace(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})

	if _, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"}); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if fx.extractor.downloadDir == "" {
		t.Fatal("expected the extractor to receive a workspace directory")
	}
	if _, err := os.Stat(fx.extractor.downloadDir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err = %v", err)
	}
}

func TestServiceAcquireReleasesWorkspaceOnFailure(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.extractor.downloadErr = &ExtractionError{URL: testURL, Err: errors.New("network down")}

	if _, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(fx.extractor.downloadDir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err = %v", err)
	}
}

func TestServiceAcquireInvalidURL(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: "https://vimeo.com/12345678901", OwnerID: "user-1"})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if fx.extractor.probes != 0 {
		t.Fatal("expected no probe for a rejected URL")
	}
	if len(fx.requests.created) != 0 {
		t.Fatal("expected no audit record for a rejected URL")
	}
}

func TestServiceAcquireMissingOwner(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	if _, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL}); err == nil {
		t.Fatal("expected error for missing owner id")
	}
}

func TestServiceAcquireMissingCredentials(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.creds.loadErr = ErrMissingCredentials

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if fx.extractor.probes != 0 || fx.extractor.downloads != 0 {
		t.Fatal("expected no extraction without credentials")
	}
	if got := fx.requests.statuses[fx.requests.created[0].ID]; got != models.RequestStatusFailed {
		t.Fatalf("unexpected request status: %q", got)
	}
}

func TestServiceAcquireFormatUnavailable(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1", FormatID: "999"})
	var formatErr *FormatUnavailableError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatUnavailableError, got %v", err)
	}
	if formatErr.Requested != "999" {
		t.Fatalf("unexpected requested format: %q", formatErr.Requested)
	}
	if len(formatErr.Available) != 2 || formatErr.Available[0] != "18" || formatErr.Available[1] != "247" {
		t.Fatalf("unexpected available formats: %v", formatErr.Available)
	}
	if fx.extractor.downloads != 0 {
		t.Fatal("expected no download for an unavailable format")
	}
}

func TestServiceAcquireSizeLimitBeforeUpload(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{MaxAssetBytes: 100})
	fx.extractor.produceSize = 101

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	var sizeErr *SizeLimitError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeLimitError, got %v", err)
	}
	if sizeErr.Size != 101 || sizeErr.Limit != 100 {
		t.Fatalf("unexpected size error: %+v", sizeErr)
	}
	if len(fx.store.objects) != 0 {
		t.Fatal("expected no object written for an oversized file")
	}
	if len(fx.index.puts) != 0 {
		t.Fatal("expected no index entry for an oversized file")
	}
}

func TestServiceAcquireNoFileProduced(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.extractor.produceExt = "part"

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	if !errors.Is(err, ErrNoFileProduced) {
		t.Fatalf("expected ErrNoFileProduced, got %v", err)
	}
	if len(fx.store.objects) != 0 {
		t.Fatal("expected no object written")
	}
}

func TestServiceAcquireUploadFailure(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.store.putErr = errors.New("connection reset")

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if len(fx.index.puts) != 0 {
		t.Fatal("expected no index entry after a failed upload")
	}
}

func TestServiceAcquireIndexFailureRemovesObject(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.index.putErr = errors.New("cluster red")

	_, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected IndexError, got %v", err)
	}
	if len(fx.store.deleted) != 1 {
		t.Fatalf("expected the uploaded object to be removed, deletes = %v", fx.store.deleted)
	}
	if len(fx.store.objects) != 0 {
		t.Fatalf("expected no objects left, have %v", fx.store.objects)
	}
	if got := fx.requests.statuses[fx.requests.created[0].ID]; got != models.RequestStatusFailed {
		t.Fatalf("unexpected request status: %q", got)
	}
}

func TestServiceProbeValidatesURL(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})

	if _, err := fx.service.Probe(context.Background(), "not a url"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if fx.extractor.probes != 0 {
		t.Fatal("expected no probe for a rejected URL")
	}

	meta, err := fx.service.Probe(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if meta.Title != "Example Video" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestServiceListPagination(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{PageSize: 10})
	fx.index.listAssets = []models.Asset{{VideoID: "a"}, {VideoID: "b"}}
	fx.index.listTotal = 25

	page, err := fx.service.List(context.Background(), "user-1", 0, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Page != 1 {
		t.Fatalf("expected page normalised to 1, got %d", page.Page)
	}
	if page.Total != 25 || page.PageCount != 3 {
		t.Fatalf("unexpected page math: %+v", page)
	}
	if len(page.Assets) != 2 {
		t.Fatalf("unexpected assets: %+v", page.Assets)
	}
}

func TestServiceListIndexError(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.index.listErr = errors.New("cluster red")

	_, err := fx.service.List(context.Background(), "user-1", 1, "")
	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected IndexError, got %v", err)
	}
}

func TestServiceDownloadLink(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{LinkTTL: time.Hour})
	fx.index.items["asset-1"] = models.Asset{
		VideoID:    "asset-1",
		UserID:     "user-1",
		ObjectKey:  "user-1/asset-1/asset-1.mp4",
		ExpiryDate: fx.now.Add(time.Hour),
	}

	url, err := fx.service.DownloadLink(context.Background(), "asset-1", "user-1")
	if err != nil {
		t.Fatalf("DownloadLink() error = %v", err)
	}
	if url != "https://store.example/user-1/asset-1/asset-1.mp4?ttl=1h0m0s" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestServiceDownloadLinkOwnershipBeforeExpiry(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.index.items["asset-1"] = models.Asset{
		VideoID:    "asset-1",
		UserID:     "user-1",
		ObjectKey:  "user-1/asset-1/asset-1.mp4",
		ExpiryDate: fx.now.Add(-time.Hour),
	}

	// Another caller's expired asset reads as unauthorized, never as expired.
	if _, err := fx.service.DownloadLink(context.Background(), "asset-1", "user-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := fx.service.DownloadLink(context.Background(), "asset-1", "user-1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestServiceDownloadLinkNotFound(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	if _, err := fx.service.DownloadLink(context.Background(), "nope", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{})
	fx.index.items["asset-1"] = models.Asset{
		VideoID:   "asset-1",
		UserID:    "user-1",
		ObjectKey: "user-1/asset-1/asset-1.mp4",
	}

	if err := fx.service.Delete(context.Background(), "asset-1", "user-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(fx.store.deleted) != 0 || len(fx.index.deleted) != 0 {
		t.Fatal("expected nothing deleted for an unauthorized caller")
	}

	if err := fx.service.Delete(context.Background(), "asset-1", "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(fx.store.deleted) != 1 || fx.store.deleted[0] != "user-1/asset-1/asset-1.mp4" {
		t.Fatalf("unexpected object deletes: %v", fx.store.deleted)
	}
	if len(fx.index.deleted) != 1 || fx.index.deleted[0] != "asset-1" {
		t.Fatalf("unexpected index deletes: %v", fx.index.deleted)
	}

	if err := fx.service.Delete(context.Background(), "asset-1", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestServiceAcquireZeroRetentionExpiresImmediately(t *testing.T) {
	fx := newServiceFixture(ServiceConfig{Retention: time.Nanosecond})

	result, err := fx.service.Acquire(context.Background(), AcquireRequest{URL: testURL, OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	fx.now = fx.now.Add(time.Second)
	if _, err := fx.service.DownloadLink(context.Background(), result.AssetID, "user-1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestFindProducedFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"asset.mp4", "asset.part", "other.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("prepare %s: %v", name, err)
		}
	}

	name, path, err := findProducedFile(dir, "asset", []string{"mp4"})
	if err != nil {
		t.Fatalf("findProducedFile() error = %v", err)
	}
	if name != "asset.mp4" || path != filepath.Join(dir, "asset.mp4") {
		t.Fatalf("unexpected result: %q %q", name, path)
	}

	if _, _, err := findProducedFile(dir, "missing", []string{"mp4"}); !errors.Is(err, ErrNoFileProduced) {
		t.Fatalf("expected ErrNoFileProduced, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"a.mp4":  "video/mp4",
		"a.webm": "video/webm",
		"a.MKV":  "video/x-matroska",
		"a.avi":  "video/x-msvideo",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := contentTypeFor(name); got != want {
			t.Fatalf("contentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
