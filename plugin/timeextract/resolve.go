package timeextract

import (
	"math"
	"strings"
	"time"
)

// clockFields holds the captured parts of an absolute expression.
// Zero year, month or day means "same as now".
type clockFields struct {
	year   int
	month  int
	day    int
	period string
	hour   int
	minute int
}

// to24Hour applies a 12-hour period marker. 오전/AM keeps the hour except
// 12 becomes 0; 오후/PM adds 12 unless the hour is already 12.
func to24Hour(hour int, period string) int {
	switch strings.ToUpper(period) {
	case "오전", "AM":
		if hour == 12 {
			return 0
		}
	case "오후", "PM":
		if hour != 12 {
			return hour + 12
		}
	}
	return hour
}

// resolveAbsolute converts an absolute expression to the time remaining
// from now. A target that already passed is discarded; there is no
// rollover to the next day or year.
func resolveAbsolute(f clockFields, now time.Time) *ExtractedTime {
	year, month, day := now.Year(), int(now.Month()), now.Day()
	if f.year != 0 {
		year = f.year
	}
	if f.month != 0 {
		month = f.month
	}
	if f.day != 0 {
		day = f.day
	}
	hour := to24Hour(f.hour, f.period)

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	if hour < 0 || hour > 23 || f.minute < 0 || f.minute > 59 {
		return nil
	}

	target := time.Date(year, time.Month(month), day, hour, f.minute, 0, 0, now.Location())
	// time.Date normalizes 2월 30일 into March.
	if target.Day() != day || int(target.Month()) != month {
		return nil
	}

	diff := target.Sub(now)
	// Sub saturates at the largest Duration for targets centuries away.
	if diff < 0 || diff == time.Duration(math.MaxInt64) {
		return nil
	}

	total := int(diff / time.Minute)
	return &ExtractedTime{
		Hours:        total / 60,
		Minutes:      total % 60,
		Seconds:      0,
		TotalMinutes: float64(total),
	}
}
