// Package extract provides title and section extraction for pattern documents.
package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// maxLineSize bounds a single line read by the scanner.
const maxLineSize = 1024 * 1024

// Parser parses pattern documents into a title and named sections.
type Parser struct {
	titlePattern   *regexp.Regexp
	headingPattern *regexp.Regexp
	fencePattern   *regexp.Regexp

	// sectionLevel is the number of '#' characters that introduce a section.
	sectionLevel int
}

// Option configures a Parser.
type Option func(*Parser)

// WithSectionLevel sets the heading level sections are found at. Values
// outside 1..6 are ignored.
func WithSectionLevel(level int) Option {
	return func(p *Parser) {
		if level >= 1 && level <= 6 {
			p.sectionLevel = level
		}
	}
}

// NewParser creates a Parser for "# <id> - <name>" titled documents with
// "## <Section>" headings.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		titlePattern:   regexp.MustCompile(`^#[ \t]+([0-9A-Za-z][0-9A-Za-z._-]*)[ \t]+-[ \t]+(.+?)[ \t]*$`),
		headingPattern: regexp.MustCompile(`^(#{1,6})(?:[ \t]+(.*?))?[ \t]*#*[ \t]*$`),
		fencePattern:   regexp.MustCompile("^[ \t]{0,3}(```|~~~)"),
		sectionLevel:   2,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SectionLevel returns the heading level sections are found at.
func (p *Parser) SectionLevel() int {
	return p.sectionLevel
}

// Parse reads a document and extracts its title and recognized sections.
//
// The returned Document is non-nil whenever the input could be read. A
// document without a title line is still returned, together with a
// *ParseError; callers decide whether to fall back or skip.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return p.parseLines(lines)
}

// ParseString parses a document held in memory.
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content))
}

func (p *Parser) parseLines(lines []string) (*Document, error) {
	doc := &Document{
		Sections:  make(map[SectionName]string),
		Raw:       strings.Join(lines, "\n"),
		titleLine: -1,
	}

	var (
		current SectionName
		inside  bool
		buffer  []string
		fence   string
	)

	flush := func() {
		if inside {
			if _, seen := doc.Sections[current]; !seen {
				doc.Sections[current] = strings.TrimSpace(strings.Join(buffer, "\n"))
				doc.order = append(doc.order, current)
			}
		}
		inside = false
		buffer = buffer[:0]
	}

	for i, line := range lines {
		if marker := p.fenceMarker(line); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case fence == marker:
				fence = ""
			}
			if inside {
				buffer = append(buffer, line)
			}
			continue
		}
		if fence != "" {
			if inside {
				buffer = append(buffer, line)
			}
			continue
		}

		level, text, isHeading := p.heading(line)
		if !isHeading {
			if inside {
				buffer = append(buffer, line)
			}
			continue
		}

		if level == 1 && doc.titleLine < 0 {
			if m := p.titlePattern.FindStringSubmatch(line); m != nil {
				doc.Title = Title{ID: m[1], Name: strings.TrimSpace(m[2])}
				doc.titleLine = i
			} else if doc.heading == "" {
				doc.heading = text
			}
		}

		if level > p.sectionLevel {
			if inside {
				buffer = append(buffer, line)
			}
			continue
		}

		flush()
		if level == p.sectionLevel {
			if name, err := ParseSectionName(text); err == nil {
				current = name
				inside = true
			}
		}
	}
	flush()

	if doc.titleLine < 0 {
		return doc, &ParseError{Reason: "no title found"}
	}
	return doc, nil
}

// heading reports whether line is an ATX heading and returns its level and text.
func (p *Parser) heading(line string) (int, string, bool) {
	m := p.headingPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

func (p *Parser) fenceMarker(line string) string {
	m := p.fencePattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}
