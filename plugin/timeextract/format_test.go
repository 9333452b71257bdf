package timeextract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForDisplay(t *testing.T) {
	tests := []struct {
		name string
		in   ExtractedTime
		want string
	}{
		{"minutes omitted", ExtractedTime{Hours: 1, Seconds: 5, TotalMinutes: 60 + 5.0/60}, "1시간 5초 후"},
		{"all parts", ExtractedTime{Hours: 2, Minutes: 3, Seconds: 4}, "2시간 3분 4초 후"},
		{"minutes only", ExtractedTime{Minutes: 45, TotalMinutes: 45}, "45분 후"},
		{"seconds only", ExtractedTime{Seconds: 30, TotalMinutes: 0.5}, "30초 후"},
		{"zero", ExtractedTime{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForDisplay(tt.in))
			assert.Equal(t, tt.want, FormatTimeForDisplay(tt.in))
		})
	}
}

func TestNotificationTime(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, kst)

	et := frozen(now).ExtractTime("30초 남음")
	require.NotNil(t, et)
	assert.Equal(t, now.Add(30*time.Second), NotificationTime(*et, now))

	et = frozen(now).ExtractTime("1시간 15분 남음")
	require.NotNil(t, et)
	assert.Equal(t, now.Add(75*time.Minute), NotificationTime(*et, now))
}

func TestCalculateNotificationTime_WallClock(t *testing.T) {
	et := ExtractTimeFromText("30초 남음")
	require.NotNil(t, et)

	before := time.Now()
	got := CalculateNotificationTime(*et)
	assert.WithinDuration(t, before.Add(30*time.Second), got, time.Second)
}

func TestCandidates(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, kst)
	e := frozen(now)

	got := e.Candidates("광산 3시간 남음, 농장 20분 15초 남음")
	require.Len(t, got, 2)

	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	assert.Equal(t, 3, got[0].ExtractedTime.Hours)
	assert.Equal(t, now.Add(3*time.Hour), got[0].NotificationTime)
	assert.Equal(t, "3시간 후", got[0].DisplayText)

	assert.Equal(t, now.Add(20*time.Minute+15*time.Second), got[1].NotificationTime)
	assert.Equal(t, "20분 15초 후", got[1].DisplayText)

	assert.Nil(t, e.Candidates("아무것도 없음"))
}

func TestCandidates_ReadsClockOnce(t *testing.T) {
	start := time.Date(2026, 1, 27, 10, 0, 0, 0, kst)
	var reads int
	e := NewExtractor(kst).WithClock(func() time.Time {
		reads++
		return start.Add(time.Duration(reads) * time.Minute)
	})

	got := e.Candidates("오후 3시 00분 / 10분 남음")
	require.Len(t, got, 2)
	assert.Equal(t, 1, reads)

	// Both entries are anchored to the same reading: 10:01.
	assert.Equal(t, ExtractedTime{Hours: 4, Minutes: 59, TotalMinutes: 299}, got[0].ExtractedTime)
	assert.Equal(t, time.Date(2026, 1, 27, 15, 0, 0, 0, kst), got[0].NotificationTime)
	assert.Equal(t, time.Date(2026, 1, 27, 10, 11, 0, 0, kst), got[1].NotificationTime)

	reads = 0
	e.ExtractAll("오후 3시 00분 / 10분 남음")
	assert.Equal(t, 1, reads)
}

func TestExtractMultipleTimesFromText(t *testing.T) {
	got := ExtractMultipleTimesFromText("3시간 남음 그리고 15분 남음")
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Hours)
	assert.Equal(t, 15, got[1].Minutes)
}
