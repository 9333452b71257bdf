package profile

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/gamenoti/server/timezone"
)

// Profile is the configuration to start the server and the CLI.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone notification times are computed in; "" is local.
	Timezone string

	// OCR configuration
	OCREnabled     bool   // GAMENOTI_OCR_ENABLED (default: true)
	TesseractPath  string // GAMENOTI_OCR_TESSERACT_PATH (default: tesseract)
	TessdataPath   string // GAMENOTI_OCR_TESSDATA_PATH (default: "")
	OCRLanguages   string // GAMENOTI_OCR_LANGUAGES (default: kor+eng)
	OCRPageSegMode int    // GAMENOTI_OCR_PSM (default: 6)
	OCRPreprocess  bool   // GAMENOTI_OCR_PREPROCESS (default: true)

	// Extraction service
	CacheCapacity    int           // GAMENOTI_CACHE_CAPACITY (default: 256)
	CacheTTL         time.Duration // GAMENOTI_CACHE_TTL (default: 10m)
	MaxUploadBytes   int64         // GAMENOTI_MAX_UPLOAD_BYTES (default: 10 MiB)
	BatchConcurrency int           // GAMENOTI_BATCH_CONCURRENCY (default: 4)

	// HTTP rate limiting per client
	RateLimitRPS   float64 // GAMENOTI_RATE_LIMIT_RPS (default: 5)
	RateLimitBurst int     // GAMENOTI_RATE_LIMIT_BURST (default: 10)

	// Screenshot inbox; empty InboxDir disables the runner
	InboxDir      string        // GAMENOTI_INBOX_DIR (default: "")
	InboxInterval time.Duration // GAMENOTI_INBOX_INTERVAL (default: 30s)
}

// Default returns a profile populated with defaults.
func Default() *Profile {
	return &Profile{
		Mode:             "dev",
		Addr:             "",
		Port:             8081,
		Version:          "dev",
		OCREnabled:       true,
		TesseractPath:    "tesseract",
		OCRLanguages:     "kor+eng",
		OCRPageSegMode:   6,
		OCRPreprocess:    true,
		CacheCapacity:    256,
		CacheTTL:         10 * time.Minute,
		MaxUploadBytes:   10 << 20,
		BatchConcurrency: 4,
		RateLimitRPS:     5,
		RateLimitBurst:   10,
		InboxInterval:    30 * time.Second,
	}
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location returns the zone configured by Timezone.
func (p *Profile) Location() (*time.Location, error) {
	return timezone.ParseTimezone(p.Timezone)
}

// FromEnv overrides fields from GAMENOTI_* environment variables. Unset or
// unparsable variables leave the current value in place.
func (p *Profile) FromEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true"
		}
	}
	integer := func(key string, dst *int) {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			*dst = v
		}
	}

	str("GAMENOTI_MODE", &p.Mode)
	str("GAMENOTI_ADDR", &p.Addr)
	integer("GAMENOTI_PORT", &p.Port)
	str("GAMENOTI_TIMEZONE", &p.Timezone)

	boolean("GAMENOTI_OCR_ENABLED", &p.OCREnabled)
	str("GAMENOTI_OCR_TESSERACT_PATH", &p.TesseractPath)
	str("GAMENOTI_OCR_TESSDATA_PATH", &p.TessdataPath)
	str("GAMENOTI_OCR_LANGUAGES", &p.OCRLanguages)
	integer("GAMENOTI_OCR_PSM", &p.OCRPageSegMode)
	boolean("GAMENOTI_OCR_PREPROCESS", &p.OCRPreprocess)

	integer("GAMENOTI_CACHE_CAPACITY", &p.CacheCapacity)
	if d, err := time.ParseDuration(os.Getenv("GAMENOTI_CACHE_TTL")); err == nil {
		p.CacheTTL = d
	}
	if n, err := strconv.ParseInt(os.Getenv("GAMENOTI_MAX_UPLOAD_BYTES"), 10, 64); err == nil {
		p.MaxUploadBytes = n
	}
	integer("GAMENOTI_BATCH_CONCURRENCY", &p.BatchConcurrency)

	if f, err := strconv.ParseFloat(os.Getenv("GAMENOTI_RATE_LIMIT_RPS"), 64); err == nil {
		p.RateLimitRPS = f
	}
	integer("GAMENOTI_RATE_LIMIT_BURST", &p.RateLimitBurst)

	str("GAMENOTI_INBOX_DIR", &p.InboxDir)
	if d, err := time.ParseDuration(os.Getenv("GAMENOTI_INBOX_INTERVAL")); err == nil {
		p.InboxInterval = d
	}
}

// Validate normalizes the profile and rejects values the server cannot run with.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if _, err := p.Location(); err != nil {
		slog.Error("failed to load timezone", slog.String("timezone", p.Timezone), slog.String("error", err.Error()))
		return err
	}

	if p.OCREnabled && p.TesseractPath == "" {
		return errors.New("OCR is enabled but tesseract path is empty")
	}
	if p.MaxUploadBytes <= 0 {
		return errors.Errorf("invalid max upload size %d", p.MaxUploadBytes)
	}
	if p.BatchConcurrency <= 0 {
		p.BatchConcurrency = 1
	}
	if p.RateLimitRPS <= 0 {
		return errors.Errorf("invalid rate limit %v", p.RateLimitRPS)
	}
	if p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 1
	}
	if p.InboxDir != "" && p.InboxInterval <= 0 {
		return errors.Errorf("invalid inbox interval %v", p.InboxInterval)
	}

	return nil
}
