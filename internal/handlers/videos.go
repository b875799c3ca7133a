package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vidvault/backend/internal/logging"
	"github.com/vidvault/backend/internal/models"
	"github.com/vidvault/backend/internal/videos"
)

// VideoHandler provides the probe, acquire, list, link and delete endpoints.
type VideoHandler struct {
	Service VideoService
	Limiter RateLimiter
}

// Probe handles POST /api/v1/videos/probe.
func (h VideoHandler) Probe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta, err := h.Service.Probe(ctx, req.URL)
	if err != nil {
		h.respondVideoError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, probeResponse{
		Title:       meta.Title,
		Duration:    meta.Duration,
		Uploader:    meta.Uploader,
		UploadDate:  meta.UploadDate,
		Description: meta.Description,
		Thumbnail:   meta.Thumbnail,
		ViewCount:   meta.ViewCount,
		Formats:     formatViews(meta.Formats),
	})
}

// Acquire handles POST /api/v1/videos.
func (h VideoHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "acquire") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many download requests")
		return
	}

	var req acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Acquire(ctx, videos.AcquireRequest{
		URL:      req.URL,
		OwnerID:  callerID(ctx),
		FormatID: strings.TrimSpace(req.FormatID),
	})
	if err != nil {
		h.respondVideoError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, acquireResponse{
		VideoID:      result.AssetID,
		Title:        result.Title,
		FileName:     result.FileName,
		FileSize:     result.FileSize,
		DownloadPath: downloadPath(result.AssetID),
	})
}

// downloadPath is the route-relative location of the asset's link endpoint,
// matching the pattern registered in RegisterRoutes.
func downloadPath(assetID string) string {
	return "/api/v1/videos/" + assetID + "/link"
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	textFilter := strings.TrimSpace(r.URL.Query().Get("q"))

	result, err := h.Service.List(ctx, callerID(ctx), page, textFilter)
	if err != nil {
		h.respondVideoError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, listResponse{
		Videos:    assetViews(result.Assets),
		Total:     result.Total,
		Page:      result.Page,
		PageCount: result.PageCount,
	})
}

// Link handles GET /api/v1/videos/{id}/link, redirecting to a presigned URL.
func (h VideoHandler) Link(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assetID := r.PathValue("id")
	url, err := h.Service.DownloadLink(ctx, assetID, callerID(ctx))
	if err != nil {
		h.respondVideoError(ctx, w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assetID := r.PathValue("id")
	if err := h.Service.Delete(ctx, assetID, callerID(ctx)); err != nil {
		h.respondVideoError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// respondVideoError maps the pipeline's error taxonomy onto HTTP statuses.
// Ownership failures and expiry are deliberately distinct outcomes.
func (h VideoHandler) respondVideoError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logging.FromContext(ctx)

	var formatErr *videos.FormatUnavailableError
	var sizeErr *videos.SizeLimitError
	var extractErr *videos.ExtractionError

	switch {
	case errors.Is(err, videos.ErrInvalidURL):
		respondError(ctx, w, http.StatusBadRequest, "invalid video URL")
	case errors.As(err, &formatErr):
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]any{
			"error":            "requested format is not available",
			"requestedFormat":  formatErr.Requested,
			"availableFormats": formatErr.Available,
		})
	case errors.As(err, &sizeErr):
		respondError(ctx, w, http.StatusRequestEntityTooLarge, sizeErr.Error())
	case errors.Is(err, videos.ErrMissingCredentials):
		logger.Error("credential cache empty", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "download service is not ready")
	case errors.Is(err, videos.ErrUnauthorized):
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
	case errors.Is(err, videos.ErrExpired):
		respondError(ctx, w, http.StatusGone, "video has expired")
	case errors.Is(err, videos.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "video not found")
	case errors.Is(err, videos.ErrTimeout):
		logger.Error("upstream timeout", "error", err)
		respondError(ctx, w, http.StatusGatewayTimeout, "download timed out")
	case errors.Is(err, videos.ErrNoFileProduced), errors.As(err, &extractErr):
		logger.Error("extraction failed", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "failed to fetch video")
	default:
		logger.Error("video operation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

type probeRequest struct {
	URL string `json:"url"`
}

type probeResponse struct {
	Title       string       `json:"title"`
	Duration    int64        `json:"duration"`
	Uploader    string       `json:"uploader"`
	UploadDate  string       `json:"uploadDate"`
	Description string       `json:"description"`
	Thumbnail   string       `json:"thumbnail"`
	ViewCount   int64        `json:"viewCount"`
	Formats     []formatView `json:"formats"`
}

type formatView struct {
	ID         string `json:"id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution,omitempty"`
	Note       string `json:"note,omitempty"`
	Filesize   int64  `json:"filesize,omitempty"`
}

type acquireRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"formatId"`
}

type acquireResponse struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	DownloadPath string `json:"downloadPath"`
}

type listResponse struct {
	Videos    []assetView `json:"videos"`
	Total     int64       `json:"total"`
	Page      int         `json:"page"`
	PageCount int         `json:"pageCount"`
}

type assetView struct {
	VideoID      string   `json:"videoId"`
	Title        string   `json:"title"`
	Duration     int64    `json:"duration"`
	Uploader     string   `json:"uploader"`
	UploadDate   string   `json:"uploadDate"`
	Thumbnail    string   `json:"thumbnail"`
	Tags         []string `json:"tags,omitempty"`
	FileName     string   `json:"fileName"`
	FileSize     int64    `json:"fileSize"`
	DownloadDate string   `json:"downloadDate"`
	ExpiryDate   string   `json:"expiryDate"`
}

func formatViews(formats []videos.Format) []formatView {
	views := make([]formatView, 0, len(formats))
	for _, f := range formats {
		views = append(views, formatView{
			ID:         f.ID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Note:       f.Note,
			Filesize:   f.Filesize,
		})
	}
	return views
}

func assetViews(assets []models.Asset) []assetView {
	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, assetView{
			VideoID:      a.VideoID,
			Title:        a.Title,
			Duration:     a.Duration,
			Uploader:     a.Uploader,
			UploadDate:   a.UploadDate,
			Thumbnail:    a.Thumbnail,
			Tags:         a.Tags,
			FileName:     a.FileName,
			FileSize:     a.FileSize,
			DownloadDate: a.DownloadDate.UTC().Format(time.RFC3339),
			ExpiryDate:   a.ExpiryDate.UTC().Format(time.RFC3339),
		})
	}
	return views
}
