// Package domain defines the closed set of interpretive domains a pattern is
// expressed in.
package domain

import (
	"fmt"
	"strings"
)

// Domain is one of the fixed interpretive contexts in which a generic pattern
// is given concrete vocabulary.
type Domain string

const (
	Physical   Domain = "physical"
	Social     Domain = "social"
	Conceptual Domain = "conceptual"
	Psychic    Domain = "psychic"
)

// All returns every domain in canonical presentation order.
func All() []Domain {
	return []Domain{Physical, Social, Conceptual, Psychic}
}

// Parse converts a domain name into a Domain. Matching ignores case and
// surrounding whitespace.
func Parse(name string) (Domain, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, d := range All() {
		if string(d) == normalized {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q (known: %s)", name, strings.Join(names(), ", "))
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, known := range All() {
		if d == known {
			return true
		}
	}
	return false
}

// Title returns the display form used in section headings, e.g. "Physical".
func (d Domain) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

func names() []string {
	all := All()
	out := make([]string, len(all))
	for i, d := range all {
		out[i] = string(d)
	}
	return out
}
