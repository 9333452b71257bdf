package timeextract

import (
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Candidate is one notification time offered to the user for editing.
type Candidate struct {
	ID               string        `json:"id"`
	ExtractedTime    ExtractedTime `json:"extractedTime"`
	NotificationTime time.Time     `json:"notificationTime"`
	DisplayText      string        `json:"displayText"`
}

// NotificationTime returns now plus the extracted duration.
func NotificationTime(t ExtractedTime, now time.Time) time.Time {
	return now.Add(t.Duration())
}

// FormatForDisplay renders t as "1시간 5초 후". Zero components are
// omitted; an all-zero time renders as "".
func FormatForDisplay(t ExtractedTime) string {
	parts := make([]string, 0, 3)
	if t.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%d시간", t.Hours))
	}
	if t.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d분", t.Minutes))
	}
	if t.Seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d초", t.Seconds))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " 후"
}

// Candidates extracts every time in text and converts each one against a
// single reading of the clock.
func (e *Extractor) Candidates(text string) []Candidate {
	now := e.Now()
	matches := e.scan(text, now)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = Candidate{
			ID:               shortuuid.New(),
			ExtractedTime:    m.time,
			NotificationTime: NotificationTime(m.time, now),
			DisplayText:      FormatForDisplay(m.time),
		}
	}
	return out
}
