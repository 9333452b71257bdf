package alarm

import (
	"context"
	"time"

	"github.com/hrygo/gamenoti/plugin/timeextract"
)

// TextRecognizer turns an image into text. *ocr.Client satisfies it.
type TextRecognizer interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
	IsSupported(mimeType string) bool
}

// Image is one uploaded screenshot.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

// Result is the set of notification times found in one text or image.
// The slices are parallel: entry i of each describes the same match.
type Result struct {
	Text              string                      `json:"text,omitempty"`
	ExtractedTimes    []timeextract.ExtractedTime `json:"extractedTimes"`
	NotificationTimes []time.Time                 `json:"notificationTimes"`
	DisplayTexts      []string                    `json:"displayTexts"`
	Candidates        []timeextract.Candidate     `json:"candidates"`
}

func newResult(text string, candidates []timeextract.Candidate) *Result {
	r := &Result{
		Text:              text,
		ExtractedTimes:    make([]timeextract.ExtractedTime, len(candidates)),
		NotificationTimes: make([]time.Time, len(candidates)),
		DisplayTexts:      make([]string, len(candidates)),
		Candidates:        candidates,
	}
	for i, c := range candidates {
		r.ExtractedTimes[i] = c.ExtractedTime
		r.NotificationTimes[i] = c.NotificationTime
		r.DisplayTexts[i] = c.DisplayText
	}
	return r
}

// Len returns the number of extracted times.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Candidates)
}

// BatchItem is the outcome for one image of a batch.
type BatchItem struct {
	Name   string
	Result *Result
	Err    error
}
