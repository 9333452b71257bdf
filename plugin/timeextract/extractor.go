// Package timeextract finds countdown and alarm times in OCR text from game
// screenshots and turns them into notification instants.
//
// Supported expressions: relative durations such as "3시간 15분 2초 남음"
// and absolute clock/date expressions such as "오후 3시 30분", "12월 25일
// 오후 3시 30분" or "3:30 PM".
package timeextract

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// ExtractedTime is one matched expression expressed as time from now.
type ExtractedTime struct {
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Seconds      int     `json:"seconds"`
	TotalMinutes float64 `json:"totalMinutes"`
}

// Duration returns the extracted time as a time.Duration. It is built from
// the components so fractional minutes do not lose a nanosecond to rounding.
func (t ExtractedTime) Duration() time.Duration {
	return time.Duration(t.Hours)*time.Hour +
		time.Duration(t.Minutes)*time.Minute +
		time.Duration(t.Seconds)*time.Second
}

// IsZero reports whether every component is zero.
func (t ExtractedTime) IsZero() bool {
	return t.Hours == 0 && t.Minutes == 0 && t.Seconds == 0
}

// maxRelativeSeconds is the longest duration a relative match may describe:
// anything longer does not fit in a time.Duration (about 292 years).
const maxRelativeSeconds = math.MaxInt64 / int64(time.Second)

// newRelative builds a relative time, or returns nil when a component is
// negative or the total exceeds maxRelativeSeconds.
func newRelative(hours, minutes, seconds int) *ExtractedTime {
	if hours < 0 || minutes < 0 || seconds < 0 {
		return nil
	}
	left := maxRelativeSeconds
	if int64(hours) > left/3600 {
		return nil
	}
	left -= int64(hours) * 3600
	if int64(minutes) > left/60 {
		return nil
	}
	left -= int64(minutes) * 60
	if int64(seconds) > left {
		return nil
	}
	return &ExtractedTime{
		Hours:        hours,
		Minutes:      minutes,
		Seconds:      seconds,
		TotalMinutes: float64(hours*60+minutes) + float64(seconds)/60,
	}
}

// span is a half-open byte range [start, end) over the source text.
type span struct {
	start int
	end   int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// Extractor extracts times relative to a clock in a fixed location.
// An Extractor holds no mutable state and is safe for concurrent use.
type Extractor struct {
	location *time.Location
	now      func() time.Time
}

// NewExtractor creates an extractor for the given location.
// A nil location means time.Local.
func NewExtractor(location *time.Location) *Extractor {
	if location == nil {
		location = time.Local
	}
	return &Extractor{
		location: location,
		now:      time.Now,
	}
}

// WithClock returns a copy of the extractor that reads "now" from clock.
func (e *Extractor) WithClock(clock func() time.Time) *Extractor {
	return &Extractor{
		location: e.location,
		now:      clock,
	}
}

// Location returns the extractor's time zone.
func (e *Extractor) Location() *time.Location {
	return e.location
}

// Now returns the current instant in the extractor's location.
func (e *Extractor) Now() time.Time {
	return e.now().In(e.location)
}

// ExtractTime returns the first expression found by single-match priority,
// or nil when nothing matches.
func (e *Extractor) ExtractTime(text string) *ExtractedTime {
	if text == "" {
		return nil
	}
	now := e.Now()

	for _, p := range singleOrder {
		loc := p.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		// The first matching pattern decides; an absolute time that
		// already passed yields nil rather than falling through.
		return interpret(p.Kind, submatches(text, loc), now)
	}
	return nil
}

// match is an accepted occurrence during a scan.
type match struct {
	span    span
	pattern *Pattern
	time    ExtractedTime
}

// ExtractAll returns every non-overlapping expression in text, ordered by
// position, or nil when none is found.
//
// Patterns are scanned in ScanRank order and each claims its spans before
// lower ranked patterns run. A later pattern never displaces an earlier
// accepted span, so "2024년 12월 25일 오후 3시 30분" yields a single result.
func (e *Extractor) ExtractAll(text string) []ExtractedTime {
	matches := e.scan(text, e.Now())
	if len(matches) == 0 {
		return nil
	}
	out := make([]ExtractedTime, len(matches))
	for i, m := range matches {
		out[i] = m.time
	}
	return out
}

// scan resolves absolute matches against now.
func (e *Extractor) scan(text string, now time.Time) []match {
	if text == "" {
		return nil
	}

	var accepted []match
	for _, p := range scanOrder {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			s := span{start: loc[0], end: loc[1]}
			if claimed(accepted, s) {
				continue
			}
			et := interpret(p.Kind, submatches(text, loc), now)
			if et == nil {
				// Discarded matches do not reserve their span.
				continue
			}
			accepted = append(accepted, match{span: s, pattern: p, time: *et})
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].span.start < accepted[j].span.start
	})
	return accepted
}

func claimed(accepted []match, s span) bool {
	for _, m := range accepted {
		if m.span.overlaps(s) {
			return true
		}
	}
	return false
}

// submatches returns capture groups 1..n; unmatched groups are empty.
func submatches(text string, loc []int) []string {
	n := len(loc)/2 - 1
	groups := make([]string, n)
	for i := 0; i < n; i++ {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start >= 0 && end >= 0 {
			groups[i] = text[start:end]
		}
	}
	return groups
}

// num parses a captured number. Missing captures are 0; a number too large
// for int is -1 so callers reject it.
func num(groups []string, i int) int {
	if i >= len(groups) || groups[i] == "" {
		return 0
	}
	n, err := strconv.Atoi(groups[i])
	if err != nil {
		return -1
	}
	return n
}

func str(groups []string, i int) string {
	if i >= len(groups) {
		return ""
	}
	return groups[i]
}

// interpret maps capture groups to an ExtractedTime according to kind.
func interpret(kind Kind, g []string, now time.Time) *ExtractedTime {
	switch kind {
	case KindHMS:
		return newRelative(num(g, 0), num(g, 1), num(g, 2))
	case KindHM:
		return newRelative(num(g, 0), num(g, 1), 0)
	case KindMS:
		return newRelative(0, num(g, 0), num(g, 1))
	case KindH:
		return newRelative(num(g, 0), 0, 0)
	case KindM:
		return newRelative(0, num(g, 0), 0)
	case KindS:
		return newRelative(0, 0, num(g, 0))
	case KindYMDClock:
		return resolveAbsolute(clockFields{
			year: num(g, 0), month: num(g, 1), day: num(g, 2),
			period: str(g, 3), hour: num(g, 4), minute: num(g, 5),
		}, now)
	case KindMDClock:
		return resolveAbsolute(clockFields{
			month: num(g, 0), day: num(g, 1),
			period: str(g, 2), hour: num(g, 3), minute: num(g, 4),
		}, now)
	case KindDClock:
		return resolveAbsolute(clockFields{
			day:    num(g, 0),
			period: str(g, 1), hour: num(g, 2), minute: num(g, 3),
		}, now)
	case KindClock:
		return resolveAbsolute(clockFields{
			period: str(g, 0), hour: num(g, 1), minute: num(g, 2),
		}, now)
	case KindColonMeridiem:
		return resolveAbsolute(clockFields{
			hour: num(g, 0), minute: num(g, 1), period: str(g, 2),
		}, now)
	case KindColon:
		return resolveAbsolute(clockFields{
			hour: num(g, 0), minute: num(g, 1),
		}, now)
	}
	return nil
}
