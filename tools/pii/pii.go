// Package pii scrubs personally identifiable information from text.
// Deterministic detectors cover structured identifiers, and an optional
// model pass finds names, addresses and organizations. Replacements are
// reversible placeholders so a downstream response can be restored.
package pii

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// EntityType classifies a detected span.
type EntityType string

const (
	TypeEmail      EntityType = "EMAIL"
	TypePhone      EntityType = "PHONE"
	TypeSSN        EntityType = "SSN"
	TypeCreditCard EntityType = "CREDIT_CARD"
	TypeIPAddress  EntityType = "IP_ADDRESS"
	TypeAPIKey     EntityType = "API_KEY"
	TypePerson     EntityType = "PERSON"
	TypeAddress    EntityType = "ADDRESS"
	TypeOrg        EntityType = "ORGANIZATION"
)

// Entity is a single detected PII span.
type Entity struct {
	Type        EntityType `json:"type" yaml:"Type"`
	Value       string     `json:"value" yaml:"Value"`
	Placeholder string     `json:"placeholder" yaml:"Placeholder"`
}

// detector pairs an entity type with its pattern and an optional
// verification of the raw match.
type detector struct {
	typ    EntityType
	re     *regexp.Regexp
	verify func(string) bool
}

var detectors = []detector{
	{
		typ: TypeEmail,
		re:  regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
	},
	{
		typ: TypeSSN,
		re:  regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		typ:    TypeCreditCard,
		re:     regexp.MustCompile(`\b(?:\d[ \-]?){13,19}\b`),
		verify: isCreditCard,
	},
	{
		typ: TypePhone,
		re:  regexp.MustCompile(`(?:\+?1[ \-.]?)?\(?\d{3}\)?[ \-.]\d{3}[ \-.]\d{4}\b`),
	},
	{
		typ: TypeIPAddress,
		re:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		verify: func(s string) bool {
			for _, part := range strings.Split(s, ".") {
				if len(part) > 1 && part[0] == '0' {
					return false
				}
				n := 0
				for _, r := range part {
					n = n*10 + int(r-'0')
				}
				if n > 255 {
					return false
				}
			}
			return true
		},
	},
	{
		// common key shapes: sk-..., AKIA..., ghp_..., xoxb-..., bearer-like blobs
		typ: TypeAPIKey,
		re:  regexp.MustCompile(`\b(?:sk-[a-zA-Z0-9\-_]{16,}|AKIA[0-9A-Z]{16}|ghp_[a-zA-Z0-9]{36}|xox[bap]-[a-zA-Z0-9\-]{10,})\b`),
	},
}

// isCreditCard verifies a candidate number with the Luhn checksum.
func isCreditCard(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// span is a matched region of the input.
type span struct {
	start int
	end   int
	typ   EntityType
}

// detect runs the deterministic detectors and returns non-overlapping
// spans in input order. Earlier detectors win on overlap.
func detect(text string) []span {
	var spans []span
	for _, d := range detectors {
		for _, loc := range d.re.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if d.verify != nil && !d.verify(value) {
				continue
			}
			if overlaps(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, span{start: loc[0], end: loc[1], typ: d.typ})
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
	return spans
}

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

// placeholderFor renders the reversible token, e.g. [EMAIL_1].
func placeholderFor(typ EntityType, n int) string {
	return fmt.Sprintf("[%s_%d]", typ, n)
}
