package extract

import (
	"fmt"
	"strings"

	"github.com/coolbeans/archetype/pkg/domain"
)

// SectionName is one of the recognized section headings of a pattern document.
type SectionName string

const (
	SectionTemplate   SectionName = "Template"
	SectionPhysical   SectionName = "Physical"
	SectionSocial     SectionName = "Social"
	SectionConceptual SectionName = "Conceptual"
	SectionPsychic    SectionName = "Psychic"
)

// SectionNames returns the closed set of section names in canonical order.
func SectionNames() []SectionName {
	return []SectionName{SectionTemplate, SectionPhysical, SectionSocial, SectionConceptual, SectionPsychic}
}

// ParseSectionName converts heading text into a SectionName, ignoring case.
func ParseSectionName(name string) (SectionName, error) {
	trimmed := strings.TrimSpace(name)
	for _, known := range SectionNames() {
		if strings.EqualFold(string(known), trimmed) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// SectionFor returns the section holding the variant for the given domain.
func SectionFor(d domain.Domain) (SectionName, bool) {
	name, err := ParseSectionName(d.Title())
	if err != nil || name == SectionTemplate {
		return "", false
	}
	return name, true
}

// Domain returns the domain a section describes. The Template section has none.
func (n SectionName) Domain() (domain.Domain, bool) {
	if n == SectionTemplate {
		return "", false
	}
	d, err := domain.Parse(string(n))
	if err != nil {
		return "", false
	}
	return d, true
}

// Title is the two-part identifier of a pattern document.
type Title struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsZero reports whether no title was found.
func (t Title) IsZero() bool {
	return t.ID == "" && t.Name == ""
}

func (t Title) String() string {
	switch {
	case t.ID == "":
		return t.Name
	case t.Name == "":
		return t.ID
	default:
		return t.ID + " - " + t.Name
	}
}

// Document is a parsed pattern document.
type Document struct {
	Title    Title                  `json:"title"`
	Sections map[SectionName]string `json:"sections"`
	Raw      string                 `json:"-"`

	order     []SectionName
	titleLine int
	heading   string
}

// Section returns the body of a section and whether the heading was present.
// A present heading with no body yields ("", true).
func (d *Document) Section(name SectionName) (string, bool) {
	body, ok := d.Sections[name]
	return body, ok
}

// Has reports whether the document contains the named section heading.
func (d *Document) Has(name SectionName) bool {
	_, ok := d.Sections[name]
	return ok
}

// SectionNames returns the recognized sections in document order.
func (d *Document) SectionNames() []SectionName {
	out := make([]SectionName, len(d.order))
	copy(out, d.order)
	return out
}

// Body returns the raw content without the title line, trimmed.
func (d *Document) Body() string {
	if d.titleLine < 0 {
		return strings.TrimSpace(d.Raw)
	}
	lines := strings.Split(d.Raw, "\n")
	if d.titleLine >= len(lines) {
		return strings.TrimSpace(d.Raw)
	}
	lines = append(lines[:d.titleLine:d.titleLine], lines[d.titleLine+1:]...)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FallbackTitle derives a title from a file identifier for documents without
// a title line. The first level-1 heading, if any, supplies the name.
func (d *Document) FallbackTitle(fileID string) Title {
	name := d.heading
	if name == "" {
		name = fileID
	}
	return Title{ID: fileID, Name: name}
}

// ParseError reports a document that could not be fully parsed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Reason
}
