// Package substitute replaces domain-specific vocabulary with placeholder
// tokens in a single ordered scan.
package substitute

import (
	"strings"
	"unicode/utf8"

	"github.com/coolbeans/archetype/pkg/rules"
)

// Match records one substitution.
type Match struct {
	Placeholder string `json:"placeholder"`
	Original    string `json:"original"`
	Offset      int    `json:"offset"`
}

// Result is the outcome of applying an Engine to a text.
type Result struct {
	Text string `json:"text"`

	// Fired lists placeholders that replaced text, de-duplicated in
	// first-occurrence order.
	Fired []string `json:"fired"`

	Matches []Match `json:"matches,omitempty"`
}

// Count returns the number of substitutions made.
func (r Result) Count() int {
	return len(r.Matches)
}

type candidate struct {
	placeholder string
	alt         *rules.Alternative
}

// Engine applies a rule set to text. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	set        *rules.Set
	candidates []candidate
}

// New builds an engine for a compiled rule set.
//
// Candidates are tried multi-word alternatives first, then single-word ones;
// within each tier rules keep their configured priority and each rule's
// alternatives are longest first.
func New(set *rules.Set) *Engine {
	e := &Engine{set: set}
	var multi, single []candidate
	for _, rule := range set.Rules() {
		for _, alt := range rule.Alternatives() {
			c := candidate{placeholder: rule.Placeholder(), alt: alt}
			if alt.MultiWord() {
				multi = append(multi, c)
			} else {
				single = append(single, c)
			}
		}
	}
	e.candidates = append(multi, single...)
	return e
}

// Rules returns the rule set the engine was built from.
func (e *Engine) Rules() *rules.Set {
	return e.set
}

// Apply scans text left to right. At each word start the first candidate that
// matches a whole word sequence wins; its span is replaced by the placeholder
// token and never rescanned. Existing tokens are copied through untouched.
func (e *Engine) Apply(text string) Result {
	var (
		out     strings.Builder
		fired   []string
		seen    = make(map[string]bool)
		matches []Match
	)
	out.Grow(len(text))

	prev := rune(-1)
	for i := 0; i < len(text); {
		if text[i] == '{' {
			if n := rules.TokenPrefixLen(text[i:]); n > 0 {
				out.WriteString(text[i : i+n])
				i += n
				prev = '}'
				continue
			}
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		if rules.IsWordRune(r) && !rules.IsWordRune(prev) {
			if placeholder, n := e.matchAt(text[i:]); n > 0 {
				out.WriteString(rules.Token(placeholder))
				matches = append(matches, Match{Placeholder: placeholder, Original: text[i : i+n], Offset: i})
				if !seen[placeholder] {
					seen[placeholder] = true
					fired = append(fired, placeholder)
				}
				last, _ := utf8.DecodeLastRuneInString(text[i : i+n])
				prev = last
				i += n
				continue
			}
		}

		out.WriteString(text[i : i+size])
		prev = r
		i += size
	}

	return Result{Text: out.String(), Fired: fired, Matches: matches}
}

// matchAt returns the placeholder and length of the first candidate matching
// at the start of s and ending on a word boundary.
func (e *Engine) matchAt(s string) (string, int) {
	for _, c := range e.candidates {
		n := c.alt.MatchPrefix(s)
		if n <= 0 {
			continue
		}
		last, _ := utf8.DecodeLastRuneInString(s[:n])
		next, _ := utf8.DecodeRuneInString(s[n:])
		if n < len(s) && rules.IsWordRune(last) && rules.IsWordRune(next) {
			continue
		}
		return c.placeholder, n
	}
	return "", 0
}

// Tokens returns the placeholders occurring in text that the engine's rule
// set defines, in first-occurrence order.
func (e *Engine) Tokens(text string) []string {
	var known []string
	for _, name := range rules.Tokens(text) {
		if _, ok := e.set.Lookup(name); ok {
			known = append(known, name)
		}
	}
	return known
}
