package timeextract

import (
	"regexp"
	"sort"
	"strings"
)

// Kind tags how a pattern's capture groups are interpreted.
type Kind int

const (
	// Relative durations.
	KindHMS Kind = iota // H시간 M분 S초
	KindHM              // H시간 M분
	KindMS              // M분 S초
	KindH               // H시간
	KindM               // M분
	KindS               // S초

	// Absolute clock/date expressions.
	KindYMDClock      // YYYY년 MM월 DD일 [오전|오후] H시 M분
	KindMDClock       // MM월 DD일 [오전|오후] H시 M분
	KindDClock        // DD일 [오전|오후] H시 M분
	KindClock         // [오전|오후] H시 M분
	KindColonMeridiem // H:MM AM/PM
	KindColon         // H:MM
)

var kindNames = map[Kind]string{
	KindHMS:           "hms",
	KindHM:            "hm",
	KindMS:            "ms",
	KindH:             "h",
	KindM:             "m",
	KindS:             "s",
	KindYMDClock:      "ymd_clock",
	KindMDClock:       "md_clock",
	KindDClock:        "d_clock",
	KindClock:         "clock",
	KindColonMeridiem: "colon_meridiem",
	KindColon:         "colon",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsRelative reports whether the kind describes a duration from now.
func (k Kind) IsRelative() bool {
	return k <= KindS
}

// Suffix is the trailing word a relative pattern requires.
type Suffix int

const (
	SuffixNone      Suffix = iota
	SuffixRemaining        // 남음
	SuffixUntil            // 까지
)

// Pattern is one entry of the ranked pattern table.
//
// SingleRank orders patterns for ExtractTime, ScanRank orders them for
// ExtractAll. Lower ranks are tried first.
type Pattern struct {
	Name       string
	Kind       Kind
	Suffix     Suffix
	SingleRank int
	ScanRank   int
	re         *regexp.Regexp
}

// Regexp returns the compiled expression for the pattern.
func (p *Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// Go's \s only covers ASCII whitespace. OCR output often carries U+00A0 or
// U+3000 between tokens, so every \s below compiles as [\s\p{Zs}].
const anySpace = `[\s\p{Zs}]`

func compile(expr string) *regexp.Regexp {
	return regexp.MustCompile(strings.ReplaceAll(expr, `\s`, anySpace))
}

const meridiem = `(?:(오전|오후)\s*)?`

// Relative bodies, most qualified first.
var relativeBodies = []struct {
	kind Kind
	expr string
}{
	{KindHMS, `(\d+)\s*시간\s*(\d+)\s*분\s*(\d+)\s*초`},
	{KindHM, `(\d+)\s*시간\s*(\d+)\s*분`},
	{KindMS, `(\d+)\s*분\s*(\d+)\s*초`},
	{KindH, `(\d+)\s*시간`},
	{KindM, `(\d+)\s*분`},
	{KindS, `(\d+)\s*초`},
}

// Absolute bodies, most qualified first.
var absoluteBodies = []struct {
	kind Kind
	expr string
}{
	{KindYMDClock, `(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일\s*` + meridiem + `(\d{1,2})\s*시\s*(\d{1,2})\s*분`},
	{KindMDClock, `(\d{1,2})\s*월\s*(\d{1,2})\s*일\s*` + meridiem + `(\d{1,2})\s*시\s*(\d{1,2})\s*분`},
	{KindDClock, `(\d{1,2})\s*일\s*` + meridiem + `(\d{1,2})\s*시\s*(\d{1,2})\s*분`},
	{KindClock, meridiem + `(\d{1,2})\s*시\s*(\d{1,2})\s*분`},
	{KindColonMeridiem, `(\d{1,2}):(\d{2})\s*([AaPp][Mm])`},
	{KindColon, `(\d{1,2}):(\d{2})`},
}

var suffixExprs = map[Suffix]string{
	SuffixNone:      "",
	SuffixRemaining: `\s*남음`,
	SuffixUntil:     `\s*까지`,
}

var suffixNames = map[Suffix]string{
	SuffixNone:      "",
	SuffixRemaining: "_remaining",
	SuffixUntil:     "_until",
}

// Suffix order for ExtractTime.
var singleSuffixOrder = []Suffix{SuffixRemaining, SuffixNone, SuffixUntil}

// Suffix order for ExtractAll. Suffixed forms claim their whole span
// before the bare form can claim the shorter one.
var scanSuffixOrder = []Suffix{SuffixRemaining, SuffixUntil, SuffixNone}

// patterns is the full table; built once, read-only afterwards.
var patterns = buildPatterns()

func buildPatterns() []*Pattern {
	table := make([]*Pattern, 0, len(relativeBodies)*3+len(absoluteBodies))
	byKey := make(map[string]*Pattern)

	for _, suffix := range singleSuffixOrder {
		for _, body := range relativeBodies {
			p := &Pattern{
				Name:   body.kind.String() + suffixNames[suffix],
				Kind:   body.kind,
				Suffix: suffix,
				re:     compile(body.expr + suffixExprs[suffix]),
			}
			table = append(table, p)
			byKey[p.Name] = p
		}
	}
	for _, body := range absoluteBodies {
		p := &Pattern{
			Name: body.kind.String(),
			Kind: body.kind,
			re:   compile(body.expr),
		}
		table = append(table, p)
		byKey[p.Name] = p
	}

	// Single ranks follow table order: relative (남음, bare, 까지), then absolute.
	for i, p := range table {
		p.SingleRank = i
	}

	// Scan ranks: absolute first, then relative by scanSuffixOrder.
	rank := 0
	for _, body := range absoluteBodies {
		byKey[body.kind.String()].ScanRank = rank
		rank++
	}
	for _, suffix := range scanSuffixOrder {
		for _, body := range relativeBodies {
			byKey[body.kind.String()+suffixNames[suffix]].ScanRank = rank
			rank++
		}
	}

	return table
}

// SinglePriority returns the patterns in ExtractTime order.
func SinglePriority() []*Pattern {
	return ranked(func(p *Pattern) int { return p.SingleRank })
}

// ScanPriority returns the patterns in ExtractAll order.
func ScanPriority() []*Pattern {
	return ranked(func(p *Pattern) int { return p.ScanRank })
}

func ranked(rank func(*Pattern) int) []*Pattern {
	out := make([]*Pattern, len(patterns))
	copy(out, patterns)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

// Precomputed orders.
var (
	singleOrder = SinglePriority()
	scanOrder   = ScanPriority()
)
