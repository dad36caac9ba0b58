package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for fuzzy comparison: accents stripped, lower-cased,
// every run of characters outside [a-z0-9] collapsed to one space, trimmed.
// "  José   Pérez-Gómez " becomes "jose perez gomez".
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Digits keeps only the ASCII decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PhoneMatches compares two phone numbers on their last n digits. When either
// side has fewer than n digits the full digit strings must be equal. An empty
// side never matches.
func PhoneMatches(a, b string, n int) bool {
	a, b = Digits(a), Digits(b)
	if a == "" || b == "" {
		return false
	}
	if n > 0 && len(a) >= n && len(b) >= n {
		return a[len(a)-n:] == b[len(b)-n:]
	}
	return a == b
}

// PhoneFilter describes the narrowing a store can apply before scoring:
// either a required digit suffix or an exact digit string. ok is false when
// no phone was supplied.
type PhoneFilter struct {
	Suffix string
	Exact  string
}

// NewPhoneFilter builds the pre-filter matching PhoneMatches for input phone.
func NewPhoneFilter(phone string, n int) (PhoneFilter, bool) {
	d := Digits(phone)
	if d == "" {
		return PhoneFilter{}, false
	}
	if n > 0 && len(d) >= n {
		return PhoneFilter{Suffix: d[len(d)-n:]}, true
	}
	return PhoneFilter{Exact: d}, true
}
