package rules

import "regexp"

const (
	TokenOpen  = "{{"
	TokenClose = "}}"
)

var (
	placeholderNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	// tokenPrefix matches any delimited span at the start of a string. Spans
	// that are not well-formed placeholder names are still left untouched.
	tokenPrefix = regexp.MustCompile(`^\{\{[^{}\n]*\}\}`)

	tokenName = regexp.MustCompile(`\{\{([a-z][a-z0-9-]*)\}\}`)
)

// Token wraps a placeholder name in token delimiters.
func Token(name string) string {
	return TokenOpen + name + TokenClose
}

// ValidPlaceholderName reports whether name may be used as a placeholder.
func ValidPlaceholderName(name string) bool {
	return placeholderNamePattern.MatchString(name)
}

// TokenPrefixLen returns the length of a delimited token at the start of s,
// or 0 if s does not begin with one.
func TokenPrefixLen(s string) int {
	loc := tokenPrefix.FindStringIndex(s)
	if loc == nil {
		return 0
	}
	return loc[1]
}

// Tokens returns the placeholder names occurring in text, de-duplicated in
// first-occurrence order.
func Tokens(text string) []string {
	matches := tokenName.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
