package v1

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/gamenoti/plugin/timeextract"
	apperrors "github.com/hrygo/gamenoti/server/internal/errors"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

const maxBatchImages = 8

// ExtractTextRequest is the body of POST /api/v1/extract/text.
type ExtractTextRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists the notification candidates found in one input.
// Candidates is empty, never null, when nothing matched.
type ExtractResponse struct {
	Name       string                  `json:"name,omitempty"`
	Text       string                  `json:"text"`
	Candidates []timeextract.Candidate `json:"candidates"`
}

// BatchResponse is the body returned by POST /api/v1/extract/images.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// BatchResult is the outcome for one image of a batch.
type BatchResult struct {
	ExtractResponse
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newExtractResponse(name string, result *alarm.Result) ExtractResponse {
	resp := ExtractResponse{Name: name, Candidates: []timeextract.Candidate{}}
	if result != nil {
		resp.Text = result.Text
		resp.Candidates = result.Candidates
	}
	return resp
}

// ExtractText extracts notification times from pasted text.
// POST /api/v1/extract/text
func (s *APIV1Service) ExtractText(c echo.Context) error {
	var req ExtractTextRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid request body"))
	}

	result := s.AlarmService.ExtractFromText(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, newExtractResponse("", result))
}

// ExtractImage runs OCR on one uploaded screenshot and extracts notification times.
// POST /api/v1/extract/image (multipart field "image")
func (s *APIV1Service) ExtractImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return writeError(c, apperrors.InvalidArgument("missing multipart field \"image\""))
	}
	image, err := s.readUpload(fh)
	if err != nil {
		return writeError(c, err)
	}

	result, err := s.AlarmService.ExtractFromImage(c.Request().Context(), image.Data, image.MimeType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newExtractResponse(image.Name, result))
}

// ExtractImages extracts notification times from several screenshots at once.
// POST /api/v1/extract/images (multipart field "images", repeated)
func (s *APIV1Service) ExtractImages(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid multipart form"))
	}
	files := form.File["images"]
	if len(files) == 0 {
		return writeError(c, apperrors.InvalidArgument("missing multipart field \"images\""))
	}
	if len(files) > maxBatchImages {
		return writeError(c, apperrors.InvalidArgument(fmt.Sprintf("at most %d images per request", maxBatchImages)))
	}

	images := make([]alarm.Image, 0, len(files))
	for _, fh := range files {
		image, err := s.readUpload(fh)
		if err != nil {
			return writeError(c, err)
		}
		images = append(images, image)
	}

	items := s.AlarmService.ExtractFromImages(c.Request().Context(), images)
	resp := BatchResponse{Results: make([]BatchResult, len(items))}
	for i, item := range items {
		resp.Results[i] = BatchResult{ExtractResponse: newExtractResponse(item.Name, item.Result)}
		if item.Err != nil {
			resp.Results[i].Error = errorResponse(item.Err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) readUpload(fh *multipart.FileHeader) (alarm.Image, error) {
	if fh.Size > s.Profile.MaxUploadBytes {
		return alarm.Image{}, apperrors.InvalidArgument(
			fmt.Sprintf("%s exceeds %d bytes", fh.Filename, s.Profile.MaxUploadBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return alarm.Image{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "failed to open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.Profile.MaxUploadBytes+1))
	if err != nil {
		return alarm.Image{}, apperrors.Wrap(errors.Wrap(err, "read upload"), apperrors.ErrCodeInvalidArgument, "failed to read upload")
	}
	if int64(len(data)) > s.Profile.MaxUploadBytes {
		return alarm.Image{}, apperrors.InvalidArgument(
			fmt.Sprintf("%s exceeds %d bytes", fh.Filename, s.Profile.MaxUploadBytes))
	}

	return alarm.Image{
		Name:     fh.Filename,
		MimeType: detectMimeType(fh, data),
		Data:     data,
	}, nil
}

// detectMimeType prefers sniffing the content over the client's header.
func detectMimeType(fh *multipart.FileHeader, data []byte) string {
	if len(data) > 0 {
		sniffed := http.DetectContentType(data)
		if !strings.HasPrefix(sniffed, "application/octet-stream") {
			return sniffed
		}
	}
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func errorResponse(err error) *ErrorResponse {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &ErrorResponse{Code: string(appErr.Code), Message: appErr.Message}
	}
	return &ErrorResponse{Code: string(apperrors.ErrCodeInternal), Message: "internal error"}
}

func writeError(c echo.Context, err error) error {
	status := apperrors.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("extract request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, errorResponse(err))
}

func bodyLimit(n int64) string {
	return fmt.Sprintf("%dB", n)
}
