package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gamenoti/internal/profile"
	"github.com/hrygo/gamenoti/plugin/timeextract"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

var kst = time.FixedZone("KST", 9*60*60)

type fakeProbe bool

func (p fakeProbe) IsAvailable(context.Context) bool { return bool(p) }

func newTestServer(t *testing.T, recognizer alarm.TextRecognizer, mutate ...func(*profile.Profile)) (*echo.Echo, *APIV1Service) {
	t.Helper()

	p := profile.Default()
	p.RateLimitRPS = 1000
	p.RateLimitBurst = 1000
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, p.Validate())

	now := time.Date(2026, 1, 27, 10, 0, 0, 0, kst)
	extractor := timeextract.NewExtractor(kst).WithClock(func() time.Time { return now })
	opts := []alarm.Option{}
	if recognizer != nil {
		opts = append(opts, alarm.WithRecognizer(recognizer))
	}
	svc := NewAPIV1Service(p, alarm.NewService(extractor, opts...))

	e := echo.New()
	svc.Register(e)
	return e, svc
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestExtractText(t *testing.T) {
	e, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text",
		strings.NewReader(`{"text":"건물 업그레이드 2시간 30분 남음"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	resp := decode[ExtractResponse](t, rec)
	require.Len(t, resp.Candidates, 1)
	c := resp.Candidates[0]
	assert.Equal(t, 2, c.ExtractedTime.Hours)
	assert.Equal(t, 30, c.ExtractedTime.Minutes)
	assert.Equal(t, 150.0, c.ExtractedTime.TotalMinutes)
	assert.Equal(t, "2시간 30분 후", c.DisplayText)
	assert.NotEmpty(t, c.ID)
}

func TestExtractText_NoMatch(t *testing.T) {
	e, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{"text":"완료"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candidates":[]`)
}

func TestExtractText_BadBody(t *testing.T) {
	e, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{"text":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[ErrorResponse](t, rec).Code)
}

func TestExtractImage(t *testing.T) {
	recognizer := alarm.NewMockRecognizer("남은 시간 05:30\n1시간 남음")
	e, _ := newTestServer(t, recognizer)

	body, contentType := multipartBody(t, "image", map[string][]byte{"shot.png": pngBytes(t)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/image", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ExtractResponse](t, rec)
	assert.Equal(t, "shot.png", resp.Name)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, 1, resp.Candidates[0].ExtractedTime.Hours)
	assert.Equal(t, 1, recognizer.Calls())
}

func TestExtractImage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		recognizer alarm.TextRecognizer
		field      string
		data       []byte
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing field",
			recognizer: alarm.NewMockRecognizer(""),
			field:      "file",
			data:       []byte("x"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ARGUMENT",
		},
		{
			name:       "ocr disabled",
			field:      "image",
			data:       []byte("x"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "OCR_UNAVAILABLE",
		},
		{
			name:       "not an image",
			recognizer: alarm.NewMockRecognizer(""),
			field:      "image",
			data:       []byte("plain text upload"),
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "UNSUPPORTED_MEDIA",
		},
		{
			name:       "ocr failure",
			recognizer: &alarm.MockRecognizer{Err: errors.New("tesseract crashed")},
			field:      "image",
			wantStatus: http.StatusBadGateway,
			wantCode:   "OCR_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestServer(t, tt.recognizer)
			data := tt.data
			if data == nil {
				data = pngBytes(t)
			}

			body, contentType := multipartBody(t, tt.field, map[string][]byte{"shot.png": data})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/image", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestExtractImage_TooLarge(t *testing.T) {
	e, _ := newTestServer(t, alarm.NewMockRecognizer("1시간"), func(p *profile.Profile) {
		p.MaxUploadBytes = 64
	})

	data := append(pngBytes(t), bytes.Repeat([]byte{0}, 128)...)
	body, contentType := multipartBody(t, "image", map[string][]byte{"big.png": data})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/image", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestExtractImages(t *testing.T) {
	img := pngBytes(t)
	recognizer := alarm.NewMockRecognizer("30분 남음")
	e, _ := newTestServer(t, recognizer)

	body, contentType := multipartBody(t, "images", map[string][]byte{
		"a.png": img,
		"b.txt": []byte("not an image"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/images", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BatchResponse](t, rec)
	require.Len(t, resp.Results, 2)

	byName := map[string]BatchResult{}
	for _, r := range resp.Results {
		byName[r.Name] = r
	}
	require.Nil(t, byName["a.png"].Error)
	require.Len(t, byName["a.png"].Candidates, 1)
	assert.Equal(t, 30, byName["a.png"].Candidates[0].ExtractedTime.Minutes)

	require.NotNil(t, byName["b.txt"].Error)
	assert.Equal(t, "UNSUPPORTED_MEDIA", byName["b.txt"].Error.Code)
	assert.Empty(t, byName["b.txt"].Candidates)
}

func TestExtract_RateLimited(t *testing.T) {
	e, _ := newTestServer(t, nil, func(p *profile.Profile) {
		p.RateLimitRPS = 0.001
		p.RateLimitBurst = 1
	})

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{"text":"1분"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXRealIP, "192.0.2.7")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestHealthz(t *testing.T) {
	e, svc := newTestServer(t, alarm.NewMockRecognizer(""))

	get := func() HealthResponse {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[HealthResponse](t, rec)
	}

	svc.OCRProbe = fakeProbe(true)
	health := get()
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.OCR)

	svc.OCRProbe = fakeProbe(false)
	health = get()
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.OCR)
}

func TestGetMetricsOverview(t *testing.T) {
	e, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{"text":"10초 남음"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/system/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[MetricsOverviewResponse](t, rec)
	assert.Equal(t, int64(1), resp.TotalRequests)
	assert.Equal(t, int64(1), resp.TimesFound)
	assert.Equal(t, 100.0, resp.SuccessRate)
}
