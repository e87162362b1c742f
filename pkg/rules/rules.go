// Package rules provides the substitution rule set and domain mapping table
// shared by every document in a corpus run.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/coolbeans/archetype/pkg/domain"
)

// File is the on-disk YAML form of a rule set.
type File struct {
	Name        string     `yaml:"name" json:"name"`
	Version     string     `yaml:"version,omitempty" json:"version,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec describes one placeholder: the surface forms that produce it and
// the example terms it stands for in each domain.
type RuleSpec struct {
	Placeholder string `yaml:"placeholder" json:"placeholder"`

	// Terms are literal surface forms. Multi-word terms match any run of
	// whitespace between their words.
	Terms []string `yaml:"terms,omitempty" json:"terms,omitempty"`

	// Patterns are raw regular expression alternatives, matched
	// case-insensitively at word starts.
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// Domains maps a domain name to its ordered example terms.
	Domains map[string][]string `yaml:"domains,omitempty" json:"domains,omitempty"`
}

// Alternative is one compiled surface form of a rule.
type Alternative struct {
	Source  string
	Literal bool
	Words   int

	re *regexp.Regexp
}

// MultiWord reports whether the alternative spans more than one word.
func (a *Alternative) MultiWord() bool {
	return a.Words > 1
}

// MatchPrefix returns the byte length of the alternative matched at the start
// of s, or -1. Word boundaries are the caller's concern.
func (a *Alternative) MatchPrefix(s string) int {
	loc := a.re.FindStringIndex(s)
	if loc == nil || loc[1] == 0 {
		return -1
	}
	return loc[1]
}

// Rule is a compiled, read-only substitution rule.
type Rule struct {
	placeholder  string
	terms        []string
	patterns     []string
	domains      map[domain.Domain][]string
	alternatives []*Alternative
}

// Placeholder returns the placeholder name, without delimiters.
func (r *Rule) Placeholder() string {
	return r.placeholder
}

// Token returns the placeholder wrapped in token delimiters.
func (r *Rule) Token() string {
	return Token(r.placeholder)
}

// Terms returns the literal surface forms in configured order.
func (r *Rule) Terms() []string {
	return append([]string(nil), r.terms...)
}

// Patterns returns the raw pattern alternatives in configured order.
func (r *Rule) Patterns() []string {
	return append([]string(nil), r.patterns...)
}

// Examples returns the example terms for a domain.
func (r *Rule) Examples(d domain.Domain) []string {
	return append([]string(nil), r.domains[d]...)
}

// Example returns the first example term for a domain, or "".
func (r *Rule) Example(d domain.Domain) string {
	if examples := r.domains[d]; len(examples) > 0 {
		return examples[0]
	}
	return ""
}

// Alternatives returns the compiled alternatives, longest first.
func (r *Rule) Alternatives() []*Alternative {
	return append([]*Alternative(nil), r.alternatives...)
}

// Set is a validated, compiled rule set. It is immutable and safe for
// concurrent use.
type Set struct {
	name        string
	version     string
	description string
	rules       []*Rule
	byName      map[string]*Rule
}

// Name returns the rule set name.
func (s *Set) Name() string { return s.name }

// Version returns the rule set version, which may be empty.
func (s *Set) Version() string { return s.version }

// Description returns the rule set description.
func (s *Set) Description() string { return s.description }

// Rules returns the rules in priority order.
func (s *Set) Rules() []*Rule {
	return append([]*Rule(nil), s.rules...)
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Lookup returns the rule for a placeholder name.
func (s *Set) Lookup(placeholder string) (*Rule, bool) {
	r, ok := s.byName[placeholder]
	return r, ok
}

// Placeholders returns all placeholder names in priority order.
func (s *Set) Placeholders() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.placeholder
	}
	return names
}

// Shadow describes a literal term that can never fire because an earlier rule
// claims the same surface form.
type Shadow struct {
	Term        string
	Placeholder string
	ShadowedBy  string
}

// Shadowed lists literal terms hidden by an identical term in an earlier rule.
func (s *Set) Shadowed() []Shadow {
	owner := make(map[string]string)
	var shadows []Shadow
	for _, r := range s.rules {
		for _, term := range r.terms {
			key := normalizeTerm(term)
			if first, ok := owner[key]; ok {
				if first != r.placeholder {
					shadows = append(shadows, Shadow{Term: term, Placeholder: r.placeholder, ShadowedBy: first})
				}
				continue
			}
			owner[key] = r.placeholder
		}
	}
	return shadows
}

// Compile validates a rule file and compiles it into a Set. Every problem is
// reported at once in a *ConfigError.
func Compile(file *File, source string) (*Set, error) {
	if file == nil {
		return nil, &ConfigError{Source: source, Errors: ValidationErrors{{Field: "rules", Message: "rule set is empty"}}}
	}

	errs := ValidateSchema(file)
	if len(errs) > 0 {
		return nil, &ConfigError{Source: source, Errors: errs}
	}

	set := &Set{
		name:        file.Name,
		version:     file.Version,
		description: strings.TrimSpace(file.Description),
		byName:      make(map[string]*Rule, len(file.Rules)),
	}

	for i, spec := range file.Rules {
		rule, err := compileRule(spec)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: err.Error(),
				Value:   spec.Placeholder,
			})
			continue
		}
		set.rules = append(set.rules, rule)
		set.byName[rule.placeholder] = rule
	}

	if len(errs) > 0 {
		return nil, &ConfigError{Source: source, Errors: errs}
	}
	return set, nil
}

func compileRule(spec RuleSpec) (*Rule, error) {
	rule := &Rule{
		placeholder: spec.Placeholder,
		terms:       append([]string(nil), spec.Terms...),
		patterns:    append([]string(nil), spec.Patterns...),
		domains:     make(map[domain.Domain][]string, len(spec.Domains)),
	}

	for name, examples := range spec.Domains {
		d, err := domain.Parse(name)
		if err != nil {
			return nil, err
		}
		rule.domains[d] = append([]string(nil), examples...)
	}

	for _, term := range spec.Terms {
		alt, err := compileTerm(term)
		if err != nil {
			return nil, err
		}
		rule.alternatives = append(rule.alternatives, alt)
	}
	for _, pattern := range spec.Patterns {
		alt, err := compilePattern(pattern)
		if err != nil {
			return nil, err
		}
		rule.alternatives = append(rule.alternatives, alt)
	}

	sortAlternatives(rule.alternatives)
	return rule, nil
}

func compileTerm(term string) (*Alternative, error) {
	words := strings.Fields(term)
	if len(words) == 0 {
		return nil, fmt.Errorf("empty term")
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)^(?:` + strings.Join(quoted, `\s+`) + `)`)
	if err != nil {
		return nil, fmt.Errorf("compiling term %q: %w", term, err)
	}
	return &Alternative{Source: term, Literal: true, Words: len(words), re: re}, nil
}

func compilePattern(pattern string) (*Alternative, error) {
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	// Leftmost-longest, so an alternation like town|towns can reach the
	// word boundary.
	re.Longest()
	words := 1
	if strings.ContainsAny(pattern, " \t") || strings.Contains(pattern, `\s`) {
		words = 2
	}
	return &Alternative{Source: pattern, Words: words, re: re}, nil
}

// sortAlternatives orders alternatives by word count then length, both
// descending, keeping configured order among equals.
func sortAlternatives(alts []*Alternative) {
	for i := 1; i < len(alts); i++ {
		for j := i; j > 0 && longer(alts[j], alts[j-1]); j-- {
			alts[j], alts[j-1] = alts[j-1], alts[j]
		}
	}
}

func longer(a, b *Alternative) bool {
	if a.Words != b.Words {
		return a.Words > b.Words
	}
	return len(a.Source) > len(b.Source)
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

// IsWordRune reports whether r counts as part of a word for boundary checks.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
