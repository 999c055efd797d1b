// Package resolve links free-text author names from bulk files to known
// legislators. Matching runs a fixed cascade from cheapest to fuzziest
// strategy and reports which strategy produced the hit, so callers can
// gate on confidence.
package resolve

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Confidence identifies the strategy that produced a match.
type Confidence string

const (
	ConfidenceExact       Confidence = "exact"
	ConfidencePartial     Confidence = "partial"
	ConfidenceTokenPrefix Confidence = "token_prefix"
	ConfidenceFuzzy       Confidence = "fuzzy"
	ConfidenceFirstName   Confidence = "first_name"
)

// Match is a successful resolution.
type Match struct {
	EntityID    int64
	DisplayName string
	Confidence  Confidence
	// Score is populated for fuzzy matches only.
	Score float64
}

// Entry is one known legislator in the matcher's index.
type Entry struct {
	ID   int64
	Name string
	// Code is the upstream natural key, zero when unknown.
	Code int64
}

// Options tune the fuzzier strategies.
type Options struct {
	// SimilarityThreshold is the minimum normalized Levenshtein
	// similarity for a fuzzy hit. Zero means 0.70.
	SimilarityThreshold float64
	// TokenWindow is the maximum number of consecutive name tokens
	// combined in the token-prefix strategy. Zero means 2.
	TokenWindow int
}

// Matcher resolves author names against a fixed, read-only index of known
// legislators. It is safe for concurrent use once built.
type Matcher struct {
	entries []indexed
	byName  map[string]int // normalized full name -> entries index
	byCode  map[int64]int  // upstream natural code -> entries index
	opts    Options
}

type indexed struct {
	entry      Entry
	normalized string
	tokens     []string
}

// NewMatcher builds the index. Entries with empty names are skipped.
func NewMatcher(entries []Entry, opts Options) *Matcher {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.70
	}
	if opts.TokenWindow <= 0 {
		opts.TokenWindow = 2
	}

	m := &Matcher{
		byName: make(map[string]int, len(entries)),
		byCode: make(map[int64]int, len(entries)),
		opts:   opts,
	}
	for _, e := range entries {
		n := Normalize(e.Name)
		if n == "" {
			continue
		}
		m.entries = append(m.entries, indexed{
			entry:      e,
			normalized: n,
			tokens:     strings.Fields(n),
		})
		if _, taken := m.byName[n]; !taken {
			m.byName[n] = len(m.entries) - 1
		}
		if e.Code != 0 {
			if _, taken := m.byCode[e.Code]; !taken {
				m.byCode[e.Code] = len(m.entries) - 1
			}
		}
	}
	return m
}

// ResolveCode resolves by the upstream natural code first, falling back
// to the name cascade. The code path is the only full-precision strategy;
// a code hit wins even when the name alone would only match fuzzily.
func (m *Matcher) ResolveCode(code int64, name string) (Match, bool) {
	if code != 0 {
		if idx, ok := m.byCode[code]; ok {
			return m.found(idx, ConfidenceExact, 1), true
		}
	}
	return m.Resolve(name)
}

// Resolve runs the cascade for one author name. Collective authors
// (caucus amendments like "BANCADA DO RS") never resolve to an
// individual and return no match immediately.
func (m *Matcher) Resolve(name string) (Match, bool) {
	query := Normalize(name)
	if query == "" {
		return Match{}, false
	}
	if IsCollective(query) {
		return Match{}, false
	}

	// 1. Exact full-name match.
	if idx, ok := m.byName[query]; ok {
		return m.found(idx, ConfidenceExact, 1), true
	}

	// 2. Containment either way. Bulk files carry honorifics and
	// the API carries civil names, so both directions occur.
	for i, e := range m.entries {
		if strings.Contains(e.normalized, query) || strings.Contains(query, e.normalized) {
			return m.found(i, ConfidencePartial, 0), true
		}
	}

	// 3. Consecutive token windows of the query against the index.
	queryTokens := strings.Fields(query)
	for width := m.opts.TokenWindow; width >= 1; width-- {
		for start := 0; start+width <= len(queryTokens); start++ {
			part := strings.Join(queryTokens[start:start+width], " ")
			if len(part) < 3 {
				continue
			}
			for i, e := range m.entries {
				if strings.Contains(e.normalized, part) {
					return m.found(i, ConfidenceTokenPrefix, 0), true
				}
			}
		}
	}

	// 4. Fuzzy similarity over the whole index; best score wins.
	best, bestScore := -1, 0.0
	for i, e := range m.entries {
		score := levenshtein.Similarity(query, e.normalized, nil)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= m.opts.SimilarityThreshold {
		return m.found(best, ConfidenceFuzzy, bestScore), true
	}

	// 5. Last resort: unique first-name prefix.
	if len(queryTokens) > 0 && len(queryTokens[0]) >= 4 {
		hit := -1
		for i, e := range m.entries {
			if len(e.tokens) > 0 && e.tokens[0] == queryTokens[0] {
				if hit >= 0 {
					hit = -1
					break
				}
				hit = i
			}
		}
		if hit >= 0 {
			return m.found(hit, ConfidenceFirstName, 0), true
		}
	}

	zap.L().Debug("resolve: no match", zap.String("author", name))
	return Match{}, false
}

func (m *Matcher) found(idx int, c Confidence, score float64) Match {
	e := m.entries[idx].entry
	return Match{EntityID: e.ID, DisplayName: e.Name, Confidence: c, Score: score}
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize upper-cases, strips diacritics and punctuation, and
// collapses whitespace so spelling variants of the same name compare
// equal. Bulk files carry honorific abbreviations and hyphenated names
// that would otherwise depress similarity scores.
func Normalize(name string) string {
	if folded, _, err := transform.String(foldMarks, name); err == nil {
		name = folded
	}
	name = strings.ToUpper(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// IsCollective reports whether a normalized author name denotes a caucus
// or committee rather than an individual legislator. Normalize turns
// "RELATOR-GERAL" into the space-separated form.
func IsCollective(normalized string) bool {
	return strings.Contains(normalized, "BANCADA") ||
		strings.Contains(normalized, "COMISSAO") ||
		strings.Contains(normalized, "RELATOR GERAL")
}
