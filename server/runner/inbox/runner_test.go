package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gamenoti/internal/profile"
	"github.com/hrygo/gamenoti/plugin/timeextract"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

func writePNG(t *testing.T, path string, width int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, 4))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func readSidecar(t *testing.T, path string) Sidecar {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var s Sidecar
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func newTestRunner(t *testing.T, recognizer *alarm.MockRecognizer) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()

	p := profile.Default()
	p.InboxDir = dir
	p.BatchConcurrency = 2

	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	extractor := timeextract.NewExtractor(time.UTC).WithClock(func() time.Time { return now })
	svc := alarm.NewService(extractor, alarm.WithRecognizer(recognizer))

	r := NewRunner(svc, p)
	r.now = func() time.Time { return now }
	return r, dir
}

func TestRunOnce(t *testing.T) {
	recognizer := alarm.NewMockRecognizer("채집 완료까지 15분 남음")
	r, dir := newTestRunner(t, recognizer)

	writePNG(t, filepath.Join(dir, "a.png"), 4)
	writePNG(t, filepath.Join(dir, "b.PNG"), 5)
	writePNG(t, filepath.Join(dir, "c.png"), 6)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("10분"), 0o644))

	assert.Equal(t, 3, r.RunOnce(context.Background()))
	assert.Equal(t, 3, recognizer.Calls())

	s := readSidecar(t, filepath.Join(dir, "a.png"+SidecarSuffix))
	assert.Equal(t, "a.png", s.Image)
	assert.Empty(t, s.Error)
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, 15, s.Candidates[0].ExtractedTime.Minutes)
	assert.Equal(t, "15분 후", s.Candidates[0].DisplayText)

	assert.FileExists(t, filepath.Join(dir, "b.PNG"+SidecarSuffix))
	assert.NoFileExists(t, filepath.Join(dir, "notes.txt"+SidecarSuffix))

	// Processed images are skipped.
	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Equal(t, 3, recognizer.Calls())
}

func TestRunOnce_RecordsErrors(t *testing.T) {
	recognizer := alarm.NewMockRecognizer("1시간")
	r, dir := newTestRunner(t, recognizer)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not really a png"), 0o644))

	assert.Equal(t, 1, r.RunOnce(context.Background()))

	s := readSidecar(t, filepath.Join(dir, "broken.png"+SidecarSuffix))
	assert.Contains(t, s.Error, "UNSUPPORTED_MEDIA")
	assert.Empty(t, s.Candidates)
	assert.Equal(t, 0, recognizer.Calls())
}

func TestRunOnce_MissingDir(t *testing.T) {
	r, dir := newTestRunner(t, alarm.NewMockRecognizer(""))
	r.dir = filepath.Join(dir, "missing")

	assert.Equal(t, 0, r.RunOnce(context.Background()))
}

func TestRunOnce_Canceled(t *testing.T) {
	recognizer := alarm.NewMockRecognizer("5분")
	r, dir := newTestRunner(t, recognizer)
	writePNG(t, filepath.Join(dir, "a.png"), 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, r.RunOnce(ctx))
	assert.Equal(t, 0, recognizer.Calls())
}
