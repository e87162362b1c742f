// Package corpus runs the archetypal transformation over a directory of
// pattern documents and records what happened to each one.
package corpus

import (
	"errors"
	"time"

	"github.com/coolbeans/archetype/pkg/extract"
)

// Config holds configuration for a corpus run.
type Config struct {
	// InputDir is the directory scanned for pattern documents.
	InputDir string

	// OutputDir receives the archetypal documents and the summary.
	OutputDir string

	// Include lists doublestar globs, relative to InputDir, selecting the
	// documents to transform.
	Include []string

	// Section is the section transformed in each document.
	Section extract.SectionName

	// WholeDocument transforms the full body instead of one section.
	WholeDocument bool

	// RequireTitle skips documents without a title line instead of deriving
	// one from the file name.
	RequireTitle bool

	// OutputPrefix is prepended to each output file name.
	OutputPrefix string

	// SummaryName is the corpus summary file name; empty disables it.
	SummaryName string

	// Concurrency bounds the number of documents processed at once.
	Concurrency int

	// DryRun reports what would be generated without writing anything.
	DryRun bool
}

// DefaultConfig returns a Config with the conventional corpus layout.
func DefaultConfig() Config {
	return Config{
		Include:      []string{"**/*.md"},
		Section:      extract.SectionTemplate,
		OutputPrefix: "arc_",
		SummaryName:  "README.md",
		Concurrency:  4,
	}
}

// Status is the outcome of processing one document.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
)

// Report summarizes a corpus run.
type Report struct {
	RunID      string    `json:"run_id"`
	RuleSet    string    `json:"rule_set"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run,omitempty"`

	Scanned        int `json:"scanned"`
	Generated      int `json:"generated"`
	Skipped        int `json:"skipped"`
	MissingSection int `json:"missing_section"`
	Substitutions  int `json:"substitutions"`

	Summary string  `json:"summary,omitempty"`
	Entries []Entry `json:"entries"`
}

// Entry records the outcome of one document.
type Entry struct {
	Source        string        `json:"source"`
	ID            string        `json:"id,omitempty"`
	Name          string        `json:"name,omitempty"`
	Status        Status        `json:"status"`
	Kind          SkipKind      `json:"kind,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Output        string        `json:"output,omitempty"`
	Placeholders  []string      `json:"placeholders,omitempty"`
	Substitutions int           `json:"substitutions,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
}

// SkipKind classifies why a document produced no output.
type SkipKind string

const (
	SkipMissingSection SkipKind = "missing-section"
	SkipMissingTitle   SkipKind = "missing-title"
	SkipEmpty          SkipKind = "empty"
	SkipIO             SkipKind = "io"
)

var (
	// ErrMissingSection is wrapped by skips for documents lacking the
	// transformed section.
	ErrMissingSection = errors.New("missing section")

	// ErrMissingTitle is wrapped by skips for untitled documents when a title
	// is required.
	ErrMissingTitle = errors.New("missing title")
)

// SkipError is a per-document failure. It never aborts a run.
type SkipError struct {
	Kind   SkipKind
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	return e.Reason
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

func missingSection(name extract.SectionName) *SkipError {
	return &SkipError{Kind: SkipMissingSection, Reason: "missing section: " + string(name), Err: ErrMissingSection}
}

func ioSkip(err error) *SkipError {
	return &SkipError{Kind: SkipIO, Reason: "io: " + err.Error(), Err: err}
}
