// Package match implements the fragment matcher shared by unit inference,
// danger classification and the risk scanner.
package match

import (
	"strings"
	"unicode"
)

// Mode selects how a fragment is compared against an identifier.
type Mode int

const (
	// Exact matches when the normalized identifier equals the fragment.
	Exact Mode = iota
	// Prefix matches when the normalized identifier starts with the fragment.
	Prefix
	// Suffix matches when the normalized identifier ends with the fragment.
	Suffix
	// Contains matches any case-insensitive substring occurrence.
	Contains
	// Word matches only on camelCase / snake_case word boundaries.
	Word
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	case Contains:
		return "contains"
	case Word:
		return "word"
	default:
		return "unknown"
	}
}

// Normalize lowercases s and strips underscores and whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Words splits an identifier into lowercase words on underscores, spaces and
// camelCase boundaries. Acronym runs stay together: "amountETHMax" yields
// ["amount", "eth", "max"].
func Words(ident string) []string {
	runes := []rune(ident)
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Matcher tests identifiers against a fixed fragment list.
type Matcher struct {
	mode      Mode
	fragments []string
	split     [][]string
}

// New returns a Matcher for fragments under mode.
func New(mode Mode, fragments ...string) *Matcher {
	m := &Matcher{mode: mode, fragments: fragments}
	if mode == Word {
		m.split = make([][]string, len(fragments))
		for i, f := range fragments {
			m.split[i] = Words(f)
		}
	} else {
		m.split = make([][]string, len(fragments))
		for i, f := range fragments {
			m.split[i] = []string{Normalize(f)}
		}
	}
	return m
}

// Mode reports the boundary mode of m.
func (m *Matcher) Mode() Mode { return m.mode }

// Fragments returns the fragment list m was built with.
func (m *Matcher) Fragments() []string { return m.fragments }

// Match reports whether ident matches any fragment.
func (m *Matcher) Match(ident string) bool {
	_, ok := m.Find(ident)
	return ok
}

// Find returns the first fragment that ident matches.
func (m *Matcher) Find(ident string) (string, bool) {
	if ident == "" {
		return "", false
	}
	if m.mode == Word {
		words := Words(ident)
		for i, fw := range m.split {
			if containsRun(words, fw) {
				return m.fragments[i], true
			}
		}
		return "", false
	}

	norm := Normalize(ident)
	for i, f := range m.split {
		frag := f[0]
		if frag == "" {
			continue
		}
		var ok bool
		switch m.mode {
		case Exact:
			ok = norm == frag
		case Prefix:
			ok = strings.HasPrefix(norm, frag)
		case Suffix:
			ok = strings.HasSuffix(norm, frag)
		case Contains:
			ok = strings.Contains(norm, frag)
		}
		if ok {
			return m.fragments[i], true
		}
	}
	return "", false
}

// Any is a convenience wrapper for one-off checks.
func Any(ident string, mode Mode, fragments ...string) bool {
	return New(mode, fragments...).Match(ident)
}

func containsRun(words, run []string) bool {
	if len(run) == 0 || len(run) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(run) <= len(words); i++ {
		for j := range run {
			if words[i+j] != run[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
