// Package location canonicalizes free-text player locations into token sets
// that can be compared with Jaccard similarity.
package location

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRun  = regexp.MustCompile(`[,\-_/\\|;:]+`)
	whitespaceRun = regexp.MustCompile(`[\t\n\v\f\r\x1c-\x1f ]+`)
	nonASCII      = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })
)

// TokenSet is a set of lowercase ASCII location tokens.
type TokenSet map[string]struct{}

// Len returns the number of distinct tokens.
func (t TokenSet) Len() int { return len(t) }

// Has reports whether tok is in the set.
func (t TokenSet) Has(tok string) bool {
	_, ok := t[tok]
	return ok
}

// Sorted returns the tokens in lexical order.
func (t TokenSet) Sorted() []string {
	out := make([]string, 0, len(t))
	for tok := range t {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

type rewriteRule struct {
	pattern *regexp.Regexp
	to      string
}

// Normalizer turns location strings into token sets. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	aliases   []rewriteRule
	compounds []rewriteRule
	drop      map[string]struct{}
}

// NewNormalizer compiles t into a Normalizer.
func NewNormalizer(t Tables) *Normalizer {
	n := &Normalizer{
		aliases:   compileRewrites(t.Aliases),
		compounds: compileRewrites(t.Compounds),
		drop:      make(map[string]struct{}, len(t.Stop)+len(t.States)),
	}
	for _, w := range t.Stop {
		n.drop[w] = struct{}{}
	}
	for _, w := range t.States {
		n.drop[w] = struct{}{}
	}
	return n
}

func compileRewrites(rs []Rewrite) []rewriteRule {
	out := make([]rewriteRule, 0, len(rs))
	for _, r := range rs {
		out = append(out, rewriteRule{
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(r.From) + `\b`),
			to:      r.To,
		})
	}
	return out
}

// Normalize returns the token set for raw. Empty input yields an empty set.
func (n *Normalizer) Normalize(raw string) TokenSet {
	out := TokenSet{}
	if raw == "" {
		return out
	}

	s := strings.ToLower(fold(raw))
	s = strings.ReplaceAll(s, ".", " ")
	s = separatorRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))

	for _, r := range n.aliases {
		s = r.pattern.ReplaceAllLiteralString(s, r.to)
	}
	for _, r := range n.compounds {
		s = r.pattern.ReplaceAllLiteralString(s, r.to)
	}

	for _, tok := range strings.Split(s, " ") {
		if tok == "" {
			continue
		}
		if _, noise := n.drop[tok]; noise {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// Similarity returns the Jaccard similarity of the normalized forms of a and b.
func (n *Normalizer) Similarity(a, b string) float64 {
	return Jaccard(n.Normalize(a), n.Normalize(b))
}

// fold decomposes s, strips combining marks and drops what is left outside ASCII.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(nonASCII))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, s)
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if large.Has(tok) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

var defaultNormalizer = NewNormalizer(DefaultTables())

// Default returns the shared normalizer built from DefaultTables.
func Default() *Normalizer { return defaultNormalizer }

// Normalize normalizes raw with the default tables.
func Normalize(raw string) TokenSet { return defaultNormalizer.Normalize(raw) }

// Similarity compares two raw locations with the default tables.
func Similarity(a, b string) float64 { return defaultNormalizer.Similarity(a, b) }
