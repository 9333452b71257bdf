package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/gamenoti/internal/profile"
	"github.com/hrygo/gamenoti/plugin/cache"
	"github.com/hrygo/gamenoti/plugin/ocr"
	"github.com/hrygo/gamenoti/plugin/timeextract"
	"github.com/hrygo/gamenoti/plugin/timeout"
	apiv1 "github.com/hrygo/gamenoti/server/router/api/v1"
	"github.com/hrygo/gamenoti/server/runner/inbox"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

// Server wires the extraction service behind the Echo HTTP API.
type Server struct {
	Profile      *profile.Profile
	AlarmService *alarm.Service

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	textCache  *cache.Service
	runner     *inbox.Runner

	// Background jobs stop when runCtx is canceled.
	runCtx context.Context
	cancel context.CancelFunc
}

// NewServer builds the service graph from profile.
func NewServer(ctx context.Context, profile *profile.Profile) (*Server, error) {
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}

	alarmService, textCache, ocrClient, err := NewAlarmService(profile, slog.Default())
	if err != nil {
		return nil, err
	}

	s := &Server{
		Profile:      profile,
		AlarmService: alarmService,
		textCache:    textCache,
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	s.apiService = apiv1.NewAPIV1Service(profile, alarmService)
	if ocrClient != nil {
		s.apiService.OCRProbe = ocrClient
	}
	s.apiService.Register(echoServer)

	if profile.InboxDir != "" {
		s.runner = inbox.NewRunner(alarmService, profile)
	}

	slog.InfoContext(ctx, "server initialized",
		"mode", profile.Mode,
		"version", profile.Version,
		"ocr", alarmService.OCREnabled(),
		"inbox", profile.InboxDir,
	)
	return s, nil
}

// NewAlarmService builds the extraction service with OCR and text cache as
// configured. The CLI uses it directly without an HTTP server.
func NewAlarmService(profile *profile.Profile, logger *slog.Logger) (*alarm.Service, *cache.Service, *ocr.Client, error) {
	loc, err := profile.Location()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "load timezone")
	}

	textCache := cache.NewService(cache.ServiceConfig{
		Capacity:        profile.CacheCapacity,
		TTL:             profile.CacheTTL,
		CleanupInterval: timeout.CacheCleanupInterval,
	})
	opts := []alarm.Option{
		alarm.WithCache(textCache),
		alarm.WithLogger(logger),
		alarm.WithBatchLimit(profile.BatchConcurrency),
	}

	var ocrClient *ocr.Client
	if profile.OCREnabled {
		ocrClient = ocr.NewClient(&ocr.Config{
			TesseractPath: profile.TesseractPath,
			DataPath:      profile.TessdataPath,
			Languages:     profile.OCRLanguages,
			PageSegMode:   profile.OCRPageSegMode,
			Preprocess:    profile.OCRPreprocess,
			MinWidth:      ocr.DefaultConfig().MinWidth,
		})
		opts = append(opts, alarm.WithRecognizer(ocrClient))
	}

	return alarm.NewService(timeextract.NewExtractor(loc), opts...), textCache, ocrClient, nil
}

// Start serves HTTP until the listener fails or Shutdown is called. When the
// listener fails, background jobs are stopped before the error is returned.
func (s *Server) Start(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	if s.runner != nil {
		go s.runner.Run(s.runCtx)
	}
	go s.pruneRateLimiter(s.runCtx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("gamenoti server started", "address", address)
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.cancel()
		s.textCache.Close()
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	s.cancel()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.textCache.Close()
	slog.Info("gamenoti server stopped properly")
}

func (s *Server) pruneRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(timeout.RateLimiterPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.apiService.RateLimiter.Prune(); n > 0 {
				slog.Debug("pruned idle rate limiters", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
