package videos

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL indicates the submitted URL does not point at a supported video.
	ErrInvalidURL = errors.New("invalid video url")
	// ErrMissingCredentials indicates the shared cookie jar is empty.
	ErrMissingCredentials = errors.New("no credentials available for extraction")
	// ErrNoFileProduced indicates the download tool finished without leaving a
	// file in an allowed container format.
	ErrNoFileProduced = errors.New("no video file produced by download")
	// ErrUnauthorized indicates the caller does not own the requested asset.
	ErrUnauthorized = errors.New("asset not owned by caller")
	// ErrExpired indicates the asset's retention window has elapsed.
	ErrExpired = errors.New("asset expired")
	// ErrNotFound indicates no asset exists for the given identifier.
	ErrNotFound = errors.New("asset not found")
	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// ExtractionError wraps a failure of the external extraction tool.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FormatUnavailableError reports that the requested format identifier was not
// offered by the extractor. Available carries the probed variant list so the
// caller can retry with a valid choice.
type FormatUnavailableError struct {
	Requested string
	Available []string
}

func (e *FormatUnavailableError) Error() string {
	return fmt.Sprintf("format %q unavailable, choose one of: %s", e.Requested, strings.Join(e.Available, ", "))
}

// SizeLimitError reports a downloaded file larger than the configured maximum.
// The check runs against the local file, before any upload.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit %d", e.Size, e.Limit)
}

// UploadError wraps a failure writing the payload to the object store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IndexError wraps a failure writing or querying the asset index.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }
