// Package timezone resolves the zone notification times are computed in.
//
// Extraction works in the caller's local zone. The server uses the zone
// configured in the profile; an empty value means the process's local zone.
package timezone

import (
	"fmt"
	"time"
)

// TimezoneLocal selects the process's local zone.
const TimezoneLocal = "Local"

// TimezoneAsiaSeoul is the Korea Standard Time timezone.
const TimezoneAsiaSeoul = "Asia/Seoul"

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Seoul").
// "" and "Local" return time.Local. If the timezone is invalid, returns
// time.Local and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", TimezoneLocal:
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// FormatNotificationTime formats an instant for display in tz, e.g.
// "2026-01-27 15:30:00". Seconds are kept since countdowns carry them.
func FormatNotificationTime(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = time.Local
	}
	return t.In(tz).Format("2006-01-02 15:04:05")
}
