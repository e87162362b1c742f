package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/archetype/pkg/archetype"
	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/rules"
	"github.com/coolbeans/archetype/pkg/substitute"
)

// Runner transforms pattern documents into archetypal documents.
type Runner struct {
	config Config
	set    *rules.Set
	engine *substitute.Engine
	parser *extract.Parser
	logger *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for run progress.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParser replaces the default section parser.
func WithParser(parser *extract.Parser) Option {
	return func(r *Runner) {
		if parser != nil {
			r.parser = parser
		}
	}
}

// NewRunner creates a Runner for a compiled rule set.
func NewRunner(config Config, set *rules.Set, opts ...Option) *Runner {
	defaults := DefaultConfig()
	if len(config.Include) == 0 {
		config.Include = defaults.Include
	}
	if config.Section == "" {
		config.Section = defaults.Section
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}

	runner := &Runner{
		config: config,
		set:    set,
		engine: substitute.New(set),
		parser: extract.NewParser(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.config
}

// task is one document to transform. Title and output are preset only for
// manifest entries.
type task struct {
	source string
	path   string
	title  extract.Title
	output string
}

type outcome struct {
	entry    Entry
	rendered string
}

// Run discovers the documents under the input directory and transforms each
// one. Per-document failures are recorded as skipped entries; only an
// unreadable input directory or an output directory that cannot be created
// fails the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.config.InputDir == "" {
		return nil, errors.New("input directory is required")
	}

	sources, err := Discover(r.config.InputDir, r.config.Include, r.config.OutputDir)
	if err != nil {
		return nil, err
	}

	tasks := make([]task, len(sources))
	for i, source := range sources {
		tasks[i] = task{
			source: source,
			path:   filepath.Join(r.config.InputDir, filepath.FromSlash(source)),
		}
	}

	return r.execute(ctx, tasks, r.config.WholeDocument)
}

func (r *Runner) execute(ctx context.Context, tasks []task, wholeDocument bool) (*Report, error) {
	if r.config.OutputDir == "" && !r.config.DryRun {
		return nil, errors.New("output directory is required")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		RuleSet:   ruleSetLabel(r.set),
		StartedAt: time.Now(),
		DryRun:    r.config.DryRun,
		Scanned:   len(tasks),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("starting corpus run",
		zap.String("input", r.config.InputDir),
		zap.String("output", r.config.OutputDir),
		zap.Int("documents", len(tasks)),
		zap.Bool("whole_document", wholeDocument),
		zap.Bool("dry_run", r.config.DryRun))

	if !r.config.DryRun {
		if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	outcomes := make([]outcome, len(tasks))
	err := r.forEach(ctx, len(tasks), func(i int) {
		outcomes[i] = r.transform(tasks[i], wholeDocument)
	})
	if err != nil {
		return nil, err
	}

	r.assignOutputs(outcomes)

	if !r.config.DryRun {
		err := r.forEach(ctx, len(outcomes), func(i int) {
			r.write(&outcomes[i])
		})
		if err != nil {
			return nil, err
		}
	}

	report.Entries = make([]Entry, len(outcomes))
	for i, result := range outcomes {
		entry := result.entry
		report.Entries[i] = entry
		switch entry.Status {
		case StatusGenerated:
			report.Generated++
			report.Substitutions += entry.Substitutions
		case StatusSkipped:
			report.Skipped++
			if entry.Kind == SkipMissingSection {
				report.MissingSection++
			}
			logger.Info("skipped document",
				zap.String("source", entry.Source),
				zap.String("reason", entry.Reason))
		}
	}

	if r.config.SummaryName != "" && !r.config.DryRun {
		summaryPath := filepath.Join(r.config.OutputDir, r.config.SummaryName)
		content := archetype.RenderSummary(SummaryOf(report), r.set)
		if err := writeFileAtomic(summaryPath, content); err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("failed to write summary: %w", err)
		}
		report.Summary = summaryPath
	}

	report.FinishedAt = time.Now()
	logger.Info("corpus run complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// forEach calls fn for every index on a bounded worker pool. Cancelling ctx
// stops scheduling further work.
func (r *Runner) forEach(ctx context.Context, n int, fn func(int)) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)

	for i := 0; i < n; i++ {
		if groupCtx.Err() != nil {
			break
		}
		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) transform(t task, wholeDocument bool) outcome {
	start := time.Now()
	entry := Entry{Source: t.source, Status: StatusSkipped}

	title, text, skip := r.extractText(t, wholeDocument)
	if skip != nil {
		entry.ID = title.ID
		entry.Name = title.Name
		entry.Kind = skip.Kind
		entry.Reason = skip.Reason
		entry.Duration = time.Since(start)
		return outcome{entry: entry}
	}

	result := r.engine.Apply(text)
	placeholders := r.engine.Tokens(result.Text)

	section := r.config.Section
	if wholeDocument {
		section = ""
	}
	rendered := archetype.Render(archetype.Output{
		Title:        title,
		Section:      section,
		Archetypal:   result.Text,
		Placeholders: placeholders,
		Original:     text,
	}, r.set)

	entry.Status = StatusGenerated
	entry.ID = title.ID
	entry.Name = title.Name
	entry.Output = t.output
	entry.Placeholders = placeholders
	entry.Substitutions = result.Count()
	entry.Duration = time.Since(start)

	r.logger.Debug("transformed document",
		zap.String("source", t.source),
		zap.Int("substitutions", entry.Substitutions),
		zap.Strings("placeholders", placeholders))

	return outcome{entry: entry, rendered: rendered}
}

// extractText returns the title and the text to transform, or the reason the
// document must be skipped.
func (r *Runner) extractText(t task, wholeDocument bool) (extract.Title, string, *SkipError) {
	file, err := os.Open(t.path)
	if err != nil {
		return extract.Title{}, "", ioSkip(err)
	}
	defer file.Close()

	doc, err := r.parser.Parse(file)
	var parseErr *extract.ParseError
	if err != nil && !errors.As(err, &parseErr) {
		return extract.Title{}, "", ioSkip(err)
	}

	title := t.title
	if title.IsZero() {
		title = doc.Title
	}
	if title.IsZero() {
		if r.config.RequireTitle {
			return title, "", &SkipError{Kind: SkipMissingTitle, Reason: "missing title", Err: ErrMissingTitle}
		}
		title = doc.FallbackTitle(fileID(t.source))
	}

	if wholeDocument {
		body := doc.Body()
		if body == "" {
			return title, "", &SkipError{Kind: SkipEmpty, Reason: "empty document"}
		}
		return title, body, nil
	}

	body, ok := doc.Section(r.config.Section)
	if !ok {
		return title, "", missingSection(r.config.Section)
	}
	if body == "" {
		return title, "", &SkipError{
			Kind:   SkipMissingSection,
			Reason: "empty section: " + string(r.config.Section),
			Err:    ErrMissingSection,
		}
	}
	return title, body, nil
}

// assignOutputs gives every generated entry a unique file name in document
// order. Repeated names get -2, -3, ... suffixes.
func (r *Runner) assignOutputs(outcomes []outcome) {
	taken := make(map[string]bool)
	if r.config.SummaryName != "" {
		taken[r.config.SummaryName] = true
	}

	for i := range outcomes {
		entry := &outcomes[i].entry
		if entry.Status != StatusGenerated {
			continue
		}

		base := filepath.Base(entry.Output)
		if entry.Output == "" || base == "." || base == string(filepath.Separator) {
			base = r.config.OutputPrefix + sanitizeID(entry.ID) + ".md"
		}

		name := base
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		taken[name] = true
		entry.Output = name
	}
}

func (r *Runner) write(result *outcome) {
	if result.entry.Status != StatusGenerated {
		return
	}
	dest := filepath.Join(r.config.OutputDir, result.entry.Output)
	if err := writeFileAtomic(dest, result.rendered); err != nil {
		skip := ioSkip(err)
		result.entry.Status = StatusSkipped
		result.entry.Kind = skip.Kind
		result.entry.Reason = skip.Reason
		result.entry.Output = ""
		result.entry.Placeholders = nil
		result.entry.Substitutions = 0
		return
	}
	r.logger.Debug("wrote document", zap.String("output", dest))
}

// fileID derives an identifier from a document path: the base name without
// its extension.
func fileID(source string) string {
	base := path.Base(filepath.ToSlash(source))
	return strings.TrimSuffix(base, path.Ext(base))
}

// sanitizeID keeps an identifier usable as a file name.
func sanitizeID(id string) string {
	var builder strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	cleaned := strings.Trim(builder.String(), ".")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

func ruleSetLabel(set *rules.Set) string {
	if set.Version() == "" {
		return set.Name()
	}
	return set.Name() + " " + set.Version()
}
