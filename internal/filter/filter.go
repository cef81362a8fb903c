// Package filter masks sensitive terms in user-submitted story content.
//
// Terms match case-insensitively on ASCII word boundaries. Every match is
// replaced with the mask character repeated to the match's byte length, so
// cleaning never changes the length of the text and cleaning cleaned text is
// a no-op.
package filter

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

// DefaultTerms is the term list used when no terms are configured.
var DefaultTerms = []string{"abused", "killed", "murdered", "suicide", "die", "death"}

// Mask replaces each byte of a matched term.
const Mask = "*"

// Filter holds a compiled term set. It is safe for concurrent use and its
// terms can be swapped at runtime with SetTerms.
type Filter struct {
	current atomic.Pointer[termSet]
}

type termSet struct {
	terms   []string
	pattern *regexp.Regexp // nil when there are no terms
}

// New creates a filter for the given terms.
func New(terms []string) *Filter {
	f := &Filter{}
	f.SetTerms(terms)
	return f
}

// SetTerms replaces the active term list. Blank entries are ignored.
func (f *Filter) SetTerms(terms []string) {
	f.current.Store(compile(terms))
}

// Terms returns the active terms, lower-cased and de-duplicated.
func (f *Filter) Terms() []string {
	set := f.current.Load()
	out := make([]string, len(set.terms))
	copy(out, set.terms)
	return out
}

// Clean returns text with every sensitive term masked.
func (f *Filter) Clean(text string) string {
	set := f.current.Load()
	if set.pattern == nil {
		return text
	}
	return set.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Repeat(Mask, len(match))
	})
}

// Contains reports whether text holds at least one sensitive term.
func (f *Filter) Contains(text string) bool {
	set := f.current.Load()
	return set.pattern != nil && set.pattern.MatchString(text)
}

func compile(terms []string) *termSet {
	seen := make(map[string]struct{}, len(terms))
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		cleaned = append(cleaned, term)
	}
	if len(cleaned) == 0 {
		return &termSet{}
	}

	// Longest first so a term never shadows a longer one sharing its prefix.
	alternatives := make([]string, len(cleaned))
	copy(alternatives, cleaned)
	sort.SliceStable(alternatives, func(i, j int) bool {
		return len(alternatives[i]) > len(alternatives[j])
	})
	for i, term := range alternatives {
		alternatives[i] = asciiFold(term)
	}

	return &termSet{
		terms:   cleaned,
		pattern: regexp.MustCompile(`\b(?:` + strings.Join(alternatives, "|") + `)\b`),
	}
}

// asciiFold quotes term and lets its ASCII letters match either case. (?i)
// is not used because it folds some non-ASCII runes onto ASCII letters
// (U+017F onto s, U+212A onto k), which changes the masked length.
func asciiFold(term string) string {
	var b strings.Builder
	for _, r := range term {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteRune(r - 'a' + 'A')
			b.WriteByte(']')
		case r >= 'A' && r <= 'Z':
			b.WriteByte('[')
			b.WriteRune(r + 'a' - 'A')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
