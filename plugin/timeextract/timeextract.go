package timeextract

import "time"

var defaultExtractor = NewExtractor(time.Local)

// ExtractTimeFromText extracts the first time expression using the local
// zone and the wall clock.
func ExtractTimeFromText(text string) *ExtractedTime {
	return defaultExtractor.ExtractTime(text)
}

// ExtractMultipleTimesFromText extracts every non-overlapping time
// expression using the local zone and the wall clock.
func ExtractMultipleTimesFromText(text string) []ExtractedTime {
	return defaultExtractor.ExtractAll(text)
}

// CalculateNotificationTime returns the instant the notification should fire.
func CalculateNotificationTime(t ExtractedTime) time.Time {
	return NotificationTime(t, time.Now())
}

// FormatTimeForDisplay is FormatForDisplay under the name the form layer uses.
func FormatTimeForDisplay(t ExtractedTime) string {
	return FormatForDisplay(t)
}
