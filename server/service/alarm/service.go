// Package alarm turns game screenshots and pasted text into notification
// time candidates.
//
// The service wraps the time extractor with the OCR collaborator: it
// recognizes the image, caches the recognized text by image digest, and
// converts every extracted time into an absolute notification instant.
//
// Nothing found is not an error: ExtractFromText and ExtractFromImage
// return a nil *Result so callers can fall back to manual entry. Only OCR
// failures and bad input surface as errors.
package alarm

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/gamenoti/plugin/cache"
	"github.com/hrygo/gamenoti/plugin/timeextract"
	"github.com/hrygo/gamenoti/plugin/timeout"
	apperrors "github.com/hrygo/gamenoti/server/internal/errors"
	"github.com/hrygo/gamenoti/server/internal/observability"
)

// Service extracts notification times from text and images.
type Service struct {
	extractor  *timeextract.Extractor
	recognizer TextRecognizer
	cache      cache.TextCache
	metrics    *observability.Metrics
	logger     *slog.Logger
	batchLimit int

	// ocrSlots bounds recognizer runs across every caller of the service.
	ocrSlots *semaphore.Weighted
}

// Option configures a Service.
type Option func(*Service)

// WithRecognizer sets the OCR collaborator. Without one, image extraction
// fails with OCR_UNAVAILABLE.
func WithRecognizer(r TextRecognizer) Option {
	return func(s *Service) { s.recognizer = r }
}

// WithCache caches recognized text by image digest.
func WithCache(c cache.TextCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBatchLimit bounds how many recognizer runs the service allows at once,
// shared by single images and every concurrent batch.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// NewService creates a new extraction service.
func NewService(extractor *timeextract.Extractor, opts ...Option) *Service {
	if extractor == nil {
		extractor = timeextract.NewExtractor(nil)
	}
	s := &Service{
		extractor:  extractor,
		metrics:    observability.NewMetrics(0),
		logger:     slog.Default(),
		batchLimit: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ocrSlots = semaphore.NewWeighted(int64(s.batchLimit))
	return s
}

// Metrics returns the service's metrics collector.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// OCREnabled reports whether a recognizer is configured.
func (s *Service) OCREnabled() bool {
	return s.recognizer != nil
}

func (s *Service) requestContext(ctx context.Context, op string) *observability.RequestContext {
	if rc, ok := observability.FromContext(ctx); ok {
		return rc
	}
	return observability.NewRequestContext(s.logger, op, "")
}

// ExtractFromText extracts notification times from already recognized text.
// It returns nil when text is blank or contains no time expression.
func (s *Service) ExtractFromText(ctx context.Context, text string) *Result {
	rc := s.requestContext(ctx, observability.OpExtractText)
	s.metrics.RecordRequest(observability.OpExtractText)
	defer func() { s.metrics.RecordDuration(observability.OpExtractText, rc.Duration()) }()

	result := s.extract(text)
	s.metrics.RecordTimes(result.Len())
	rc.Debug("extracted times from text",
		slog.Int(observability.LogFieldTextLen, len(text)),
		slog.Int(observability.LogFieldTimes, result.Len()),
	)
	return result
}

func (s *Service) extract(text string) *Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	candidates := s.extractor.Candidates(text)
	if len(candidates) == 0 {
		return nil
	}
	return newResult(text, candidates)
}

// ExtractFromImage recognizes the screenshot and extracts notification
// times from its text. It returns nil, nil when the image has no text or
// the text has no time expression. It never returns a partial result.
func (s *Service) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	rc := s.requestContext(ctx, observability.OpExtractImage)
	s.metrics.RecordRequest(observability.OpExtractImage)
	defer func() { s.metrics.RecordDuration(observability.OpExtractImage, rc.Duration()) }()

	text, err := s.recognize(ctx, image, mimeType)
	if err != nil {
		s.metrics.RecordFailure(observability.OpExtractImage)
		rc.Error("failed to recognize image", err,
			slog.String(observability.LogFieldErrorCode, string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))),
			slog.String("mime_type", mimeType),
		)
		return nil, err
	}

	rc.Debug("recognized text", slog.String("text", truncate(text)))

	result := s.extract(text)
	s.metrics.RecordTimes(result.Len())
	rc.Info("extracted times from image",
		slog.Int(observability.LogFieldTextLen, len(text)),
		slog.Int(observability.LogFieldTimes, result.Len()),
		rc.DurationAttr(),
	)
	return result, nil
}

func (s *Service) recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if s.recognizer == nil {
		return "", apperrors.OCRUnavailable("text recognition is disabled")
	}
	if len(image) == 0 {
		return "", apperrors.InvalidArgument("image is empty")
	}
	if !s.recognizer.IsSupported(mimeType) {
		return "", apperrors.UnsupportedMedia(mimeType)
	}

	key := cache.Digest(image)
	if s.cache != nil {
		if text, ok := s.cache.Get(ctx, key); ok {
			s.metrics.RecordCacheHit()
			return text, nil
		}
	}

	if err := s.ocrSlots.Acquire(ctx, 1); err != nil {
		return "", apperrors.ContextCanceled(err)
	}
	defer s.ocrSlots.Release(1)

	s.metrics.RecordOCR()
	ocrCtx, cancel := context.WithTimeout(ctx, timeout.OCRTimeout)
	defer cancel()
	text, err := s.recognizer.ExtractText(ocrCtx, image, mimeType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", apperrors.ContextCanceled(ctxErr)
		}
		return "", apperrors.OCRFailed(err).WithContext("mime_type", mimeType)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, text)
	}
	return text, nil
}

// ExtractFromImages runs ExtractFromImage over a batch with bounded
// concurrency. Items come back in input order; a failed image does not
// affect the others.
func (s *Service) ExtractFromImages(ctx context.Context, images []Image) []BatchItem {
	items := make([]BatchItem, len(images))

	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			result, err := s.ExtractFromImage(ctx, img.Data, img.MimeType)
			items[i] = BatchItem{Name: img.Name, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= timeout.MaxTruncateLength {
		return text
	}
	return string(runes[:timeout.MaxTruncateLength]) + "..."
}
