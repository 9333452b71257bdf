package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gamenoti/plugin/timeextract"
	apperrors "github.com/hrygo/gamenoti/server/internal/errors"
	"github.com/hrygo/gamenoti/server/service/alarm"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtractTextCmd_JSON(t *testing.T) {
	out, err := runCLI(t, "", "extract", "text", "--json", "--timezone", "UTC", "제작", "10분", "남음")
	require.NoError(t, err)

	var results []cliResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Result)
	require.Equal(t, 1, results[0].Result.Len())
	assert.Equal(t, 10, results[0].Result.ExtractedTimes[0].Minutes)
	assert.Equal(t, "10분 후", results[0].Result.DisplayTexts[0])
}

func TestExtractTextCmd_Stdin(t *testing.T) {
	out, err := runCLI(t, "보상까지 45초\n", "extract", "text", "--timezone", "UTC")
	require.NoError(t, err)
	assert.Contains(t, out, "45초 후")
}

func TestExtractTextCmd_NoMatch(t *testing.T) {
	out, err := runCLI(t, "", "extract", "text", "--timezone", "UTC", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "no time found")
}

func TestExtractImageCmd_RequiresFile(t *testing.T) {
	_, err := runCLI(t, "", "extract", "image")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestPrintResults(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	extractor := timeextract.NewExtractor(time.UTC).WithClock(func() time.Time { return now })
	svc := alarm.NewService(extractor)
	result := svc.ExtractFromText(t.Context(), "A 1시간 0분 5초 남음 B 0분")

	var out bytes.Buffer
	err := printResults(&out, false, time.UTC, []alarm.BatchItem{
		{Name: "a.png", Result: result},
		{Name: "b.png"},
		{Name: "c.png", Err: apperrors.OCRFailed(errors.New("boom"))},
	})
	require.NoError(t, err)

	want := "a.png:\n" +
		"  1. 1시간 5초 후 (2026-01-27 11:00:05)\n" +
		"  2. now (2026-01-27 10:00:00)\n" +
		"b.png:\n" +
		"  no time found\n" +
		"c.png:\n" +
		"  error: [OCR_FAILED] text recognition failed: boom\n"
	assert.Equal(t, want, out.String())
}
