package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/gamenoti/internal/profile"
	ratelimit "github.com/hrygo/gamenoti/server/middleware"
	"github.com/hrygo/gamenoti/server/internal/observability"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

// OCRProbe reports whether the OCR engine can be executed.
type OCRProbe interface {
	IsAvailable(ctx context.Context) bool
}

type APIV1Service struct {
	Profile      *profile.Profile
	AlarmService *alarm.Service
	RateLimiter  *ratelimit.RateLimiter
	OCRProbe     OCRProbe
	Logger       *slog.Logger
}

func NewAPIV1Service(profile *profile.Profile, alarmService *alarm.Service) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		AlarmService: alarmService,
		RateLimiter:  ratelimit.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst),
		Logger:       slog.Default(),
	}
}

// Register mounts the API routes on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	api := echoServer.Group("/api/v1")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	api.GET("/healthz", s.Healthz)
	api.GET("/system/metrics", s.GetMetricsOverview)

	extract := api.Group("/extract", s.RateLimiter.Middleware(), s.requestContext)
	extract.POST("/text", s.ExtractText)
	extract.POST("/image", s.ExtractImage, middleware.BodyLimit(bodyLimit(s.Profile.MaxUploadBytes)))
	extract.POST("/images", s.ExtractImages, middleware.BodyLimit(bodyLimit(s.Profile.MaxUploadBytes*int64(maxBatchImages))))
}

// requestContext attaches an observability.RequestContext keyed by client IP.
func (s *APIV1Service) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := observability.NewRequestContext(s.Logger, c.Path(), c.RealIP())
		c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
		ctx := observability.WithRequestContext(c.Request().Context(), rc)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
