package videos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// YTDLPExtractor probes and downloads videos using the yt-dlp CLI tool.
type YTDLPExtractor struct {
	Binary          string
	Run             CommandRunner
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration

	// AllowedFormats is the set of container extensions probe results are
	// filtered to and the default download format is chosen from.
	AllowedFormats []string
}

// NewYTDLPExtractor constructs an Extractor that shells out to yt-dlp.
func NewYTDLPExtractor(binary string, allowedFormats []string, probeTimeout, downloadTimeout time.Duration) *YTDLPExtractor {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}
	if downloadTimeout <= 0 {
		downloadTimeout = 10 * time.Minute
	}
	return &YTDLPExtractor{
		Binary:          binary,
		Run:             defaultCommandRunner,
		ProbeTimeout:    probeTimeout,
		DownloadTimeout: downloadTimeout,
		AllowedFormats:  allowedFormats,
	}
}

type ytdlpPayload struct {
	Title       string   `json:"title"`
	Duration    float64  `json:"duration"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	ViewCount   int64    `json:"view_count"`
	LikeCount   int64    `json:"like_count"`
	Tags        []string `json:"tags"`
	Formats     []struct {
		FormatID   string  `json:"format_id"`
		Ext        string  `json:"ext"`
		Resolution string  `json:"resolution"`
		FormatNote string  `json:"format_note"`
		Filesize   float64 `json:"filesize"`
	} `json:"formats"`
}

// Probe executes yt-dlp for the provided URL and parses the JSON response.
// Offered formats are filtered to the allowed container set; no media bytes
// are transferred.
func (p *YTDLPExtractor) Probe(ctx context.Context, url string, opts ProbeOptions) (Metadata, error) {
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.ProbeTimeout)
	defer cancel()

	args := []string{"--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download"}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	args = append(args, url)

	out, err := run(execCtx, p.Binary, args...)
	if err != nil {
		return Metadata{}, p.classify(execCtx, url, err)
	}

	var payload ytdlpPayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return Metadata{}, &ExtractionError{URL: url, Err: fmt.Errorf("parse yt-dlp response: %w", err)}
	}

	meta := Metadata{
		Title:       payload.Title,
		Duration:    int64(payload.Duration),
		Uploader:    payload.Uploader,
		UploadDate:  payload.UploadDate,
		Description: payload.Description,
		Thumbnail:   payload.Thumbnail,
		ViewCount:   payload.ViewCount,
		LikeCount:   payload.LikeCount,
		Tags:        payload.Tags,
	}

	for _, f := range payload.Formats {
		if !p.allowedExt(f.Ext) {
			continue
		}
		meta.Formats = append(meta.Formats, Format{
			ID:         f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Note:       f.FormatNote,
			Filesize:   int64(f.Filesize),
		})
	}

	return meta, nil
}

// Download materialises the video into opts.OutputDir. The produced file is
// named after opts.BaseName with the container extension chosen by the tool.
func (p *YTDLPExtractor) Download(ctx context.Context, url string, opts DownloadOptions) error {
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}
	if opts.OutputDir == "" || opts.BaseName == "" {
		return &ExtractionError{URL: url, Err: errors.New("download output location not set")}
	}

	execCtx, cancel := context.WithTimeout(ctx, p.DownloadTimeout)
	defer cancel()

	format := opts.FormatID
	if format == "" {
		format = p.defaultFormat()
	}

	template := filepath.Join(opts.OutputDir, opts.BaseName+".%(ext)s")
	args := []string{"--no-warnings", "--no-playlist", "-f", format, "-o", template}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	args = append(args, url)

	if _, err := run(execCtx, p.Binary, args...); err != nil {
		return p.classify(execCtx, url, err)
	}
	return nil
}

// defaultFormat prefers the best variant in the first allowed container,
// falling back to the tool's overall best.
func (p *YTDLPExtractor) defaultFormat() string {
	if len(p.AllowedFormats) == 0 {
		return "best"
	}
	return fmt.Sprintf("best[ext=%s]/best", p.AllowedFormats[0])
}

func (p *YTDLPExtractor) allowedExt(ext string) bool {
	for _, allowed := range p.AllowedFormats {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// classify maps a runner failure onto the error taxonomy. When the deadline
// kills the process, exec.Cmd.Wait reports the process's exit error rather
// than the context error, so the invocation context is consulted as well.
func (p *YTDLPExtractor) classify(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: yt-dlp %s", ErrTimeout, url)
	}
	return &ExtractionError{URL: url, Err: err}
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}
