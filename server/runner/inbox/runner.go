// Package inbox provides a background runner that extracts notification
// times from screenshots dropped into a directory.
//
// For every image in the directory the runner writes a "<name>.times.json"
// sidecar. An image with a sidecar is considered processed and skipped.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/gamenoti/internal/profile"
	"github.com/hrygo/gamenoti/plugin/timeextract"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

// SidecarSuffix is appended to an image name to form its result file.
const SidecarSuffix = ".times.json"

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// Sidecar is the JSON written next to each processed screenshot.
type Sidecar struct {
	Image       string                  `json:"image"`
	ProcessedAt time.Time               `json:"processedAt"`
	Text        string                  `json:"text,omitempty"`
	Candidates  []timeextract.Candidate `json:"candidates"`
	Error       string                  `json:"error,omitempty"`
}

// Runner processes screenshots found in the inbox directory.
type Runner struct {
	service   *alarm.Service
	dir       string
	interval  time.Duration
	batchSize int
	maxBytes  int64
	now       func() time.Time
}

// NewRunner creates a new inbox runner.
func NewRunner(service *alarm.Service, profile *profile.Profile) *Runner {
	batchSize := profile.BatchConcurrency
	if batchSize < 1 {
		batchSize = 1
	}
	return &Runner{
		service:   service,
		dir:       profile.InboxDir,
		interval:  profile.InboxInterval,
		batchSize: batchSize,
		maxBytes:  profile.MaxUploadBytes,
		now:       time.Now,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	slog.Info("inbox runner started", "dir", r.dir, "interval", r.interval)

	// Process once on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("inbox runner stopped")
			return
		}
	}
}

// RunOnce processes pending screenshots once and returns how many sidecars
// were written.
func (r *Runner) RunOnce(ctx context.Context) int {
	pending, err := r.findPending()
	if err != nil {
		slog.Error("failed to scan inbox", "dir", r.dir, "error", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	slog.Info("processing inbox screenshots", "count", len(pending))

	written := 0
	for i := 0; i < len(pending); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("inbox processing cancelled", "processed", i, "total", len(pending))
			return written
		default:
		}

		end := min(i+r.batchSize, len(pending))
		images := r.load(pending[i:end])

		for _, item := range r.service.ExtractFromImages(ctx, images) {
			if err := r.writeSidecar(item); err != nil {
				slog.Warn("failed to write sidecar", "image", item.Name, "error", err)
				continue
			}
			written++
		}
		slog.Info("batch processed", "count", len(images), "progress", fmt.Sprintf("%d/%d", end, len(pending)))
	}
	return written
}

// findPending lists images in the inbox that have no sidecar yet.
func (r *Runner) findPending() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read inbox")
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
	}

	var pending []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if seen[e.Name()+SidecarSuffix] {
			continue
		}
		pending = append(pending, e.Name())
	}
	return pending, nil
}

// load reads the named files. Unreadable or oversized files are passed on
// empty so the service reports them and a sidecar records the error.
func (r *Runner) load(names []string) []alarm.Image {
	images := make([]alarm.Image, 0, len(names))
	for _, name := range names {
		img := alarm.Image{Name: name}
		data, err := os.ReadFile(filepath.Join(r.dir, name))
		switch {
		case err != nil:
			slog.Warn("failed to read screenshot", "image", name, "error", err)
		case int64(len(data)) > r.maxBytes:
			slog.Warn("screenshot too large", "image", name, "bytes", len(data))
		default:
			img.Data = data
			img.MimeType = http.DetectContentType(data)
		}
		images = append(images, img)
	}
	return images
}

func (r *Runner) writeSidecar(item alarm.BatchItem) error {
	sidecar := Sidecar{
		Image:       item.Name,
		ProcessedAt: r.now(),
		Candidates:  []timeextract.Candidate{},
	}
	if item.Result != nil {
		sidecar.Text = item.Result.Text
		sidecar.Candidates = item.Result.Candidates
	}
	if item.Err != nil {
		sidecar.Error = item.Err.Error()
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal sidecar")
	}

	path := filepath.Join(r.dir, item.Name+SidecarSuffix)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write sidecar")
	}
	return errors.Wrap(os.Rename(tmp, path), "rename sidecar")
}
