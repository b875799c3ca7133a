// Package index provides the searchable per-user asset store backed by
// Elasticsearch.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/vidvault/backend/internal/models"
	"github.com/vidvault/backend/internal/videos"
)

// ElasticsearchIndex implements videos.AssetIndex on one Elasticsearch index,
// one document per asset, keyed by the asset identifier.
type ElasticsearchIndex struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

// NewElasticsearch connects to the cluster at the given address.
func NewElasticsearch(address, indexName string) (*ElasticsearchIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &ElasticsearchIndex{
		client: client,
		index:  indexName,
		now:    time.Now,
	}, nil
}

var indexMapping = `{
  "mappings": {
    "properties": {
      "video_id":      {"type": "keyword"},
      "user_id":       {"type": "keyword"},
      "url":           {"type": "keyword"},
      "title":         {"type": "text"},
      "uploader":      {"type": "text"},
      "description":   {"type": "text"},
      "tags":          {"type": "text"},
      "thumbnail":     {"type": "keyword", "index": false},
      "object_key":    {"type": "keyword"},
      "file_name":     {"type": "keyword"},
      "format_id":     {"type": "keyword"},
      "status":        {"type": "keyword"},
      "upload_date":   {"type": "keyword"},
      "duration":      {"type": "long"},
      "view_count":    {"type": "long"},
      "like_count":    {"type": "long"},
      "file_size":     {"type": "long"},
      "download_date": {"type": "date"},
      "expiry_date":   {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping if it does not already
// exist. Called once at startup.
func (e *ElasticsearchIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", e.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", e.index, res.Status())
	}
	return nil
}

// Put writes the full asset document, replacing any previous version.
func (e *ElasticsearchIndex) Put(ctx context.Context, asset models.Asset) error {
	body, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("marshal asset %s: %w", asset.VideoID, err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithDocumentID(asset.VideoID),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index asset %s: %w", asset.VideoID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index asset %s: %s", asset.VideoID, res.Status())
	}
	return nil
}

// Get fetches one asset document by identifier.
func (e *ElasticsearchIndex) Get(ctx context.Context, assetID string) (models.Asset, error) {
	res, err := e.client.Get(e.index, assetID, e.client.Get.WithContext(ctx))
	if err != nil {
		return models.Asset{}, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.Asset{}, fmt.Errorf("asset %s: %w", assetID, videos.ErrNotFound)
	}
	if res.IsError() {
		return models.Asset{}, fmt.Errorf("get asset %s: %s", assetID, res.Status())
	}

	var doc struct {
		Source models.Asset `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return models.Asset{}, fmt.Errorf("decode asset %s: %w", assetID, err)
	}
	return doc.Source, nil
}

// Delete removes one asset document. Deleting a missing document is not an
// error so concurrent reap passes stay safe.
func (e *ElasticsearchIndex) Delete(ctx context.Context, assetID string) error {
	res, err := e.client.Delete(
		e.index,
		assetID,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", assetID, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete asset %s: %s", assetID, res.Status())
	}
	return nil
}

// List returns one page of the owner's non-expired assets, newest first. A
// non-empty textFilter narrows the page by free-text relevance across the
// descriptive fields.
func (e *ElasticsearchIndex) List(ctx context.Context, ownerID string, page, pageSize int, textFilter string) ([]models.Asset, int64, error) {
	must := []map[string]any{
		{"term": map[string]any{"user_id": ownerID}},
		{"range": map[string]any{"expiry_date": map[string]any{"gt": e.now().UTC().Format(time.RFC3339)}}},
	}
	if textFilter != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  textFilter,
				"fields": []string{"title", "description", "uploader", "tags"},
			},
		})
	}

	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"download_date": map[string]any{"order": "desc"}}},
		"from":  (page - 1) * pageSize,
		"size":  pageSize,
	}

	return e.search(ctx, query)
}

// FindExpired returns up to limit assets whose retention window has elapsed.
func (e *ElasticsearchIndex) FindExpired(ctx context.Context, limit int) ([]models.Asset, error) {
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{"expiry_date": map[string]any{"lte": e.now().UTC().Format(time.RFC3339)}},
		},
		"size": limit,
	}

	assets, _, err := e.search(ctx, query)
	return assets, err
}

func (e *ElasticsearchIndex) search(ctx context.Context, query map[string]any) ([]models.Asset, int64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, 0, fmt.Errorf("encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search: %s", res.Status())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Asset `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	assets := make([]models.Asset, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		assets = append(assets, hit.Source)
	}
	return assets, result.Hits.Total.Value, nil
}

var _ videos.AssetIndex = (*ElasticsearchIndex)(nil)
