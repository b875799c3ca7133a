package videos

import "context"

// Metadata captures the descriptive details returned by a probe, without any
// media bytes being transferred.
type Metadata struct {
	Title       string
	Duration    int64
	Uploader    string
	UploadDate  string
	Description string
	Thumbnail   string
	ViewCount   int64
	LikeCount   int64
	Tags        []string
	Formats     []Format
}

// Format describes one encoding variant offered by the extractor.
type Format struct {
	ID         string
	Ext        string
	Resolution string
	Note       string
	Filesize   int64
}

// FormatIDs returns the identifiers of the provided variants, preserving order.
func FormatIDs(formats []Format) []string {
	ids := make([]string, 0, len(formats))
	for _, f := range formats {
		ids = append(ids, f.ID)
	}
	return ids
}

// ProbeOptions tunes a metadata extraction call.
type ProbeOptions struct {
	// CookieFile is the path to a Netscape-format cookie jar passed to the tool.
	CookieFile string
}

// DownloadOptions tunes a download call.
type DownloadOptions struct {
	// FormatID selects an extractor variant; empty means best available in an
	// allowed container.
	FormatID string
	// OutputDir is the invocation-scoped directory the tool writes into.
	OutputDir string
	// BaseName is the extension-less file name, typically the asset identifier.
	BaseName string
	// CookieFile is the path to a Netscape-format cookie jar passed to the tool.
	CookieFile string
}

// Extractor probes and downloads videos from a source URL.
type Extractor interface {
	Probe(ctx context.Context, url string, opts ProbeOptions) (Metadata, error)
	Download(ctx context.Context, url string, opts DownloadOptions) error
}
