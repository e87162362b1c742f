package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	walkableTowns = `# 101 - Walkable Towns

## Template

People walk between the buildings of the town.

## Physical

Streets connect the houses.
`

	noTemplate = `# 102 - Quiet Rooms

## Physical

Rooms need quiet.
`

	communityCentres = `# 103 - Community Centres

## Template

The {{settlements}} gives every neighborhood a place for activities.
`
)

func writeDocs(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	for name, content := range docs {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func aplRules(t *testing.T) *rules.Set {
	t.Helper()
	set, err := rules.Preset("apl")
	if err != nil {
		t.Fatalf("rules.Preset() error = %v", err)
	}
	return set
}

func newTestRunner(t *testing.T, config Config) *Runner {
	t.Helper()
	return NewRunner(config, aplRules(t), WithLogger(zaptest.NewLogger(t)))
}

func testConfig(input, output string) Config {
	config := DefaultConfig()
	config.InputDir = input
	config.OutputDir = output
	return config
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

func TestRunSkipsMissingSection(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "archetypal")
	writeDocs(t, input, map[string]string{
		"101.md": walkableTowns,
		"102.md": noTemplate,
		"103.md": communityCentres,
	})

	report, err := newTestRunner(t, testConfig(input, output)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Scanned != 3 || report.Generated != 2 || report.Skipped != 1 || report.MissingSection != 1 {
		t.Errorf("report totals = scanned %d, generated %d, skipped %d, missing %d",
			report.Scanned, report.Generated, report.Skipped, report.MissingSection)
	}

	var sources []string
	for _, entry := range report.Entries {
		sources = append(sources, entry.Source)
	}
	if diff := cmp.Diff([]string{"101.md", "102.md", "103.md"}, sources); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}

	skipped := report.Entries[1]
	if skipped.Status != StatusSkipped || skipped.Reason != "missing section: Template" || skipped.Kind != SkipMissingSection {
		t.Errorf("skipped entry = %+v", skipped)
	}

	for _, name := range []string{"arc_101.md", "arc_103.md", "README.md"} {
		if _, err := os.Stat(filepath.Join(output, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(output, "arc_102.md")); !os.IsNotExist(err) {
		t.Error("skipped document should produce no output")
	}

	readme := readFile(t, filepath.Join(output, "README.md"))
	for _, want := range []string{
		"| **Documents scanned** | 3 |",
		"| **Skipped (missing section)** | 1 |",
		"| 102.md | missing section: Template |",
		"- [arc_101.md](arc_101.md) 101 - Walkable Towns",
	} {
		if !strings.Contains(readme, want) {
			t.Errorf("README missing %q", want)
		}
	}
	if report.Summary != filepath.Join(output, "README.md") {
		t.Errorf("Summary = %q", report.Summary)
	}
}

func TestRunOutputIsArchetypal(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeDocs(t, input, map[string]string{"101.md": walkableTowns})

	if _, err := newTestRunner(t, testConfig(input, output)).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	content := readFile(t, filepath.Join(output, "arc_101.md"))
	for _, want := range []string{
		"# 101 - Walkable Towns (Archetypal)",
		"{{agents}} walk between the {{structures}} of the {{settlements}}.",
		"## Original Template\n\nPeople walk between the buildings of the town.",
		"*Generated from pattern 101*",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q\n%s", want, content)
		}
	}
	if strings.Contains(content, "Streets connect") {
		t.Error("only the Template section should be transformed")
	}
}

// Every placeholder in the archetypal text has a mapping row and every row
// names a placeholder in the text.
func TestRunMappingMatchesArchetypalText(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeDocs(t, input, map[string]string{
		"101.md": walkableTowns,
		"103.md": communityCentres,
	})

	report, err := newTestRunner(t, testConfig(input, output)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, entry := range report.Entries {
		content := readFile(t, filepath.Join(output, entry.Output))

		start := strings.Index(content, "## Archetypal Pattern\n\n")
		end := strings.Index(content, "## Domain Placeholders")
		if start < 0 || end < start {
			t.Fatalf("%s: archetypal section not found", entry.Output)
		}
		inText := rules.Tokens(content[start:end])

		var rows []string
		for _, line := range strings.Split(content, "\n") {
			if !strings.HasPrefix(line, "| `{{") {
				continue
			}
			name := line[len("| `{{"):]
			rows = append(rows, name[:strings.Index(name, "}}")])
		}

		if diff := cmp.Diff(inText, rows); diff != "" {
			t.Errorf("%s: mapping rows differ from text tokens (-text +rows):\n%s", entry.Output, diff)
		}
		if diff := cmp.Diff(inText, entry.Placeholders); diff != "" {
			t.Errorf("%s: entry placeholders mismatch (-text +entry):\n%s", entry.Output, diff)
		}
	}

	// The pre-existing token counts as present.
	if diff := cmp.Diff([]string{"settlements", "localities", "processes"}, report.Entries[1].Placeholders); diff != "" {
		t.Errorf("placeholders mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDuplicateIDs(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeDocs(t, input, map[string]string{
		"a.md": walkableTowns,
		"b.md": strings.Replace(walkableTowns, "Walkable Towns", "Walkable Cities", 1),
		"c.md": walkableTowns,
	})

	report, err := newTestRunner(t, testConfig(input, output)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var outputs []string
	for _, entry := range report.Entries {
		outputs = append(outputs, entry.Output)
	}
	if diff := cmp.Diff([]string{"arc_101.md", "arc_101-2.md", "arc_101-3.md"}, outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(readFile(t, filepath.Join(output, "arc_101-2.md")), "Walkable Cities") {
		t.Error("second duplicate should hold the second document")
	}
}

func TestRunTitles(t *testing.T) {
	untitled := "## Template\n\nThe town square.\n"

	t.Run("fallback from file name", func(t *testing.T) {
		input := t.TempDir()
		output := t.TempDir()
		writeDocs(t, input, map[string]string{"square.md": untitled})

		report, err := newTestRunner(t, testConfig(input, output)).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		entry := report.Entries[0]
		if entry.Status != StatusGenerated || entry.Output != "arc_square.md" {
			t.Errorf("entry = %+v", entry)
		}
	})

	t.Run("required", func(t *testing.T) {
		input := t.TempDir()
		output := t.TempDir()
		writeDocs(t, input, map[string]string{"square.md": untitled})

		config := testConfig(input, output)
		config.RequireTitle = true
		report, err := newTestRunner(t, config).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		entry := report.Entries[0]
		if entry.Status != StatusSkipped || entry.Kind != SkipMissingTitle || entry.Reason != "missing title" {
			t.Errorf("entry = %+v", entry)
		}
	})
}

func TestRunEmptySection(t *testing.T) {
	input := t.TempDir()
	writeDocs(t, input, map[string]string{"1.md": "# 1 - Empty\n\n## Template\n\n## Physical\n\nRoads.\n"})

	report, err := newTestRunner(t, testConfig(input, t.TempDir())).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	entry := report.Entries[0]
	if entry.Reason != "empty section: Template" || report.MissingSection != 1 {
		t.Errorf("entry = %+v, missing = %d", entry, report.MissingSection)
	}
}

func TestRunWholeDocument(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeDocs(t, input, map[string]string{"101.md": walkableTowns})

	config := testConfig(input, output)
	config.WholeDocument = true
	if _, err := newTestRunner(t, config).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	content := readFile(t, filepath.Join(output, "arc_101.md"))
	for _, want := range []string{
		"# 101 - Walkable Towns (Archetypal Variant)",
		"{{pathways}} connect the {{structures}}.",
		"## Original Content",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q\n%s", want, content)
		}
	}
}

func TestRunDryRun(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")
	writeDocs(t, input, map[string]string{"101.md": walkableTowns})

	config := testConfig(input, output)
	config.DryRun = true
	report, err := newTestRunner(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Generated != 1 || report.Entries[0].Output != "arc_101.md" || report.Summary != "" {
		t.Errorf("report = %+v", report)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("dry run should not create the output directory")
	}
}

func TestRunOutputDirectoryFailure(t *testing.T) {
	input := t.TempDir()
	writeDocs(t, input, map[string]string{"101.md": walkableTowns})

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := newTestRunner(t, testConfig(input, filepath.Join(blocker, "out"))).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the output directory cannot be created")
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
}

func TestRunMissingInput(t *testing.T) {
	_, err := newTestRunner(t, testConfig(filepath.Join(t.TempDir(), "missing"), t.TempDir())).Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

func TestRunCanceled(t *testing.T) {
	input := t.TempDir()
	writeDocs(t, input, map[string]string{"101.md": walkableTowns})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, testConfig(input, t.TempDir())).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	input := t.TempDir()
	docs := map[string]string{}
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		docs["p"+id+".md"] = strings.Replace(walkableTowns, "101", id, 1)
	}
	docs["p9.md"] = noTemplate
	writeDocs(t, input, docs)

	run := func(concurrency int) *Report {
		config := testConfig(input, t.TempDir())
		config.Concurrency = concurrency
		report, err := newTestRunner(t, config).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return report
	}

	ignore := func(entries []Entry) []Entry {
		out := make([]Entry, len(entries))
		for i, entry := range entries {
			entry.Duration = 0
			out[i] = entry
		}
		return out
	}

	sequential := run(1)
	concurrent := run(8)
	if diff := cmp.Diff(ignore(sequential.Entries), ignore(concurrent.Entries)); diff != "" {
		t.Errorf("concurrent run differs (-sequential +concurrent):\n%s", diff)
	}
}

func TestRunManifest(t *testing.T) {
	dir := t.TempDir()
	output := t.TempDir()
	writeDocs(t, dir, map[string]string{
		"pattern/timeless.md": "# The Timeless Way\n\nThe towns that are alive.\n",
		"manifest.yaml": `documents:
  - source: pattern/timeless.md
    output: apl_arc_timeless.md
    title: The Timeless Way of Building
  - source: pattern/missing.md
    output: apl_arc_missing.md
`,
	})

	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	config := DefaultConfig()
	config.OutputDir = output
	config.SummaryName = ""
	report, err := newTestRunner(t, config).RunManifest(context.Background(), manifest)
	if err != nil {
		t.Fatalf("RunManifest() error = %v", err)
	}

	if report.Generated != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}
	if missing := report.Entries[1]; missing.Kind != SkipIO || !strings.HasPrefix(missing.Reason, "io: ") {
		t.Errorf("missing entry = %+v", missing)
	}

	content := readFile(t, filepath.Join(output, "apl_arc_timeless.md"))
	for _, want := range []string{
		"# The Timeless Way of Building (Archetypal Variant)",
		"The {{settlements}} that are alive.",
		"*Generated archetypal variant*",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("variant missing %q\n%s", want, content)
		}
	}
	if _, err := os.Stat(filepath.Join(output, "README.md")); !os.IsNotExist(err) {
		t.Error("summary disabled for manifest run")
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "documents: []\n"},
		{"missing source", "documents:\n  - output: x.md\n"},
		{"malformed", "documents: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, map[string]string{
		"b.md":              "",
		"a.md":              "",
		"nested/c.md":       "",
		"notes.txt":         "",
		"archetypal/arc.md": "",
	})

	got, err := Discover(dir, []string{"**/*.md", "*.md"}, filepath.Join(dir, "archetypal"))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a.md", "b.md", "nested/c.md"}, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}

	if _, err := Discover(dir, []string{"[a-"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestSkipErrorUnwraps(t *testing.T) {
	err := error(missingSection(extract.SectionTemplate))
	if !errors.Is(err, ErrMissingSection) {
		t.Error("missing section skip should wrap ErrMissingSection")
	}
	if err.Error() != "missing section: Template" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFormatReport(t *testing.T) {
	report := &Report{
		RunID:          "run-1",
		RuleSet:        "apl 1.0.0",
		Scanned:        2,
		Generated:      1,
		Skipped:        1,
		MissingSection: 1,
		Entries: []Entry{
			{Source: "101.md", Status: StatusGenerated, Output: "arc_101.md", Substitutions: 3, Placeholders: []string{"agents", "structures"}},
			{Source: "102.md", Status: StatusSkipped, Reason: "missing section: Template"},
		},
	}

	text := FormatReport(report)
	for _, want := range []string{
		"Scanned: 2 | Generated: 1 | Skipped: 1 (missing section: 1)",
		"[OK]",
		"-> arc_101.md (3 substitutions, 2 placeholders)",
		"[SKIP] 102.md",
		"missing section: Template",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("FormatReport() missing %q\n%s", want, text)
		}
	}

	if !strings.Contains(FormatReportJSON(report), `"reason": "missing section: Template"`) {
		t.Error("FormatReportJSON() missing reason")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.md")

	for _, content := range []string{"first", "second"} {
		if err := writeFileAtomic(dest, content); err != nil {
			t.Fatalf("writeFileAtomic() error = %v", err)
		}
		if got := readFile(t, dest); got != content {
			t.Errorf("content = %q, want %q", got, content)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the destination file, found %d entries", len(entries))
	}
}
