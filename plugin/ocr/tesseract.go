// Package ocr recognizes text in game screenshots using Tesseract.
package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Supported image MIME types for OCR
var SupportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/webp",
}

// Config holds the OCR configuration
type Config struct {
	// TesseractPath is the path to the tesseract executable
	TesseractPath string
	// DataPath is the path to the tessdata directory (optional)
	DataPath string
	// Languages are the languages to use for OCR (e.g., "kor+eng")
	Languages string
	// PageSegMode is passed as --psm; 0 leaves tesseract's default.
	PageSegMode int
	// Preprocess enables grayscale/upscale/sharpen before recognition.
	Preprocess bool
	// MinWidth is the width small screenshots are upscaled to.
	MinWidth int
}

// DefaultConfig returns the default OCR configuration
func DefaultConfig() *Config {
	return &Config{
		TesseractPath: "tesseract",
		DataPath:      "",
		Languages:     "kor+eng",
		PageSegMode:   6, // single uniform block; game HUDs are mostly short lines
		Preprocess:    true,
		MinWidth:      1280,
	}
}

// ConfigFromEnv creates OCR config from environment variables
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if path := os.Getenv("GAMENOTI_OCR_TESSERACT_PATH"); path != "" {
		config.TesseractPath = path
	}
	if path := os.Getenv("GAMENOTI_OCR_TESSDATA_PATH"); path != "" {
		config.DataPath = path
	}
	if langs := os.Getenv("GAMENOTI_OCR_LANGUAGES"); langs != "" {
		config.Languages = langs
	}
	if psm, err := strconv.Atoi(os.Getenv("GAMENOTI_OCR_PSM")); err == nil {
		config.PageSegMode = psm
	}
	if v := os.Getenv("GAMENOTI_OCR_PREPROCESS"); v != "" {
		config.Preprocess = v == "true"
	}

	return config
}

// Client provides OCR functionality
type Client struct {
	config *Config
}

// NewClient creates a new OCR client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{config: config}
}

// ExtractText recognizes the text in an image. An image without any
// recognizable text returns "" and no error.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if !c.isSupported(mimeType) {
		return "", errors.Errorf("unsupported MIME type: %s", mimeType)
	}
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	if c.config.Preprocess {
		processed, err := Preprocess(image, c.config.MinWidth)
		if err != nil {
			// webp and other formats imaging cannot decode go to tesseract as-is.
			slog.Debug("skipping OCR preprocessing", "mime_type", mimeType, "error", err)
		} else {
			image = processed
		}
	}

	tmpFile, err := os.CreateTemp("", "gamenoti_ocr_*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(image); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to write temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temp file")
	}

	// "stdout" as the output base makes tesseract print instead of writing a .txt file.
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, c.args(tmpPath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Warn("tesseract command failed", "error", err, "stderr", stderr.String())
		return "", errors.Wrap(err, "tesseract command failed")
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (c *Client) args(input string) []string {
	args := []string{input, "stdout"}
	if c.config.Languages != "" {
		args = append(args, "-l", c.config.Languages)
	}
	if c.config.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(c.config.PageSegMode))
	}
	if c.config.DataPath != "" {
		args = append(args, "--tessdata-dir", c.config.DataPath)
	}
	return args
}

// IsAvailable checks if Tesseract is available
func (c *Client) IsAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, "--version")
	return cmd.Run() == nil
}

// GetVersion returns the first line of `tesseract --version`.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, "--version")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "failed to get tesseract version")
	}
	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return line, nil
}

// GetAvailableLanguages returns the installed tesseract language packs.
func (c *Client) GetAvailableLanguages(ctx context.Context) ([]string, error) {
	args := []string{"--list-langs"}
	if c.config.DataPath != "" {
		args = append(args, "--tessdata-dir", c.config.DataPath)
	}

	cmd := exec.CommandContext(ctx, c.config.TesseractPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to list tesseract languages")
	}

	var langs []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		// The first line is a header: "List of available languages in ...".
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "Error:") {
			continue
		}
		langs = append(langs, line)
	}

	return langs, nil
}

// HasLanguages reports whether every language in the configured
// "a+b" list is installed.
func (c *Client) HasLanguages(ctx context.Context) (bool, error) {
	installed, err := c.GetAvailableLanguages(ctx)
	if err != nil {
		return false, err
	}
	set := make(map[string]bool, len(installed))
	for _, lang := range installed {
		set[lang] = true
	}
	for _, lang := range strings.Split(c.config.Languages, "+") {
		if lang != "" && !set[lang] {
			return false, nil
		}
	}
	return true, nil
}

// IsSupported checks if a MIME type is supported for OCR
func (c *Client) IsSupported(mimeType string) bool {
	return c.isSupported(mimeType)
}

func (c *Client) isSupported(mimeType string) bool {
	// Strip parameters such as "; charset=binary" from sniffed types.
	mimeType, _, _ = strings.Cut(mimeType, ";")
	mimeType = strings.TrimSpace(mimeType)
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(mimeType, supported) {
			return true
		}
	}
	return false
}
