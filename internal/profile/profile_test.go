package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 8081, p.Port)
	assert.True(t, p.OCREnabled)
	assert.Equal(t, "tesseract", p.TesseractPath)
	assert.Equal(t, "kor+eng", p.OCRLanguages)
	assert.Equal(t, 6, p.OCRPageSegMode)
	assert.Equal(t, 10*time.Minute, p.CacheTTL)
	assert.Equal(t, int64(10<<20), p.MaxUploadBytes)
	assert.True(t, p.IsDev())
	require.NoError(t, p.Validate())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GAMENOTI_MODE", "prod")
	t.Setenv("GAMENOTI_PORT", "9090")
	t.Setenv("GAMENOTI_TIMEZONE", "UTC")
	t.Setenv("GAMENOTI_OCR_ENABLED", "false")
	t.Setenv("GAMENOTI_OCR_LANGUAGES", "kor")
	t.Setenv("GAMENOTI_CACHE_TTL", "30s")
	t.Setenv("GAMENOTI_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("GAMENOTI_RATE_LIMIT_RPS", "0.5")
	t.Setenv("GAMENOTI_INBOX_DIR", "/tmp/shots")
	t.Setenv("GAMENOTI_INBOX_INTERVAL", "1m")

	p := Default()
	p.FromEnv()

	assert.Equal(t, "prod", p.Mode)
	assert.False(t, p.IsDev())
	assert.Equal(t, 9090, p.Port)
	assert.Equal(t, "UTC", p.Timezone)
	assert.False(t, p.OCREnabled)
	assert.Equal(t, "kor", p.OCRLanguages)
	assert.Equal(t, 30*time.Second, p.CacheTTL)
	assert.Equal(t, int64(1024), p.MaxUploadBytes)
	assert.Equal(t, 0.5, p.RateLimitRPS)
	assert.Equal(t, "/tmp/shots", p.InboxDir)
	assert.Equal(t, time.Minute, p.InboxInterval)
}

func TestFromEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("GAMENOTI_PORT", "not-a-port")
	t.Setenv("GAMENOTI_CACHE_TTL", "forever")

	p := Default()
	p.FromEnv()

	assert.Equal(t, 8081, p.Port)
	assert.Equal(t, 10*time.Minute, p.CacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"defaults", func(*Profile) {}, false},
		{"unknown mode falls back to demo", func(p *Profile) { p.Mode = "staging" }, false},
		{"bad port", func(p *Profile) { p.Port = 70000 }, true},
		{"bad timezone", func(p *Profile) { p.Timezone = "Nowhere/City" }, true},
		{"ocr without binary", func(p *Profile) { p.TesseractPath = "" }, true},
		{"ocr disabled without binary", func(p *Profile) { p.OCREnabled = false; p.TesseractPath = "" }, false},
		{"zero upload size", func(p *Profile) { p.MaxUploadBytes = 0 }, true},
		{"zero rate", func(p *Profile) { p.RateLimitRPS = 0 }, true},
		{"inbox without interval", func(p *Profile) { p.InboxDir = "shots"; p.InboxInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_NormalizesMode(t *testing.T) {
	p := Default()
	p.Mode = "staging"
	p.BatchConcurrency = 0

	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, 1, p.BatchConcurrency)
}
