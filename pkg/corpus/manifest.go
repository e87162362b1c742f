package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/archetype/pkg/extract"
)

// Manifest lists whole documents to transform into archetypal variants.
type Manifest struct {
	Documents []ManifestEntry `yaml:"documents" json:"documents"`

	// dir resolves relative sources; set by LoadManifest.
	dir string
}

// ManifestEntry names one source document, its output file and the title to
// show for it. Output and title are optional.
type ManifestEntry struct {
	Source string `yaml:"source" json:"source"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
}

// LoadManifest reads a manifest from disk. Relative sources resolve against
// the manifest's directory.
func LoadManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	manifest.dir = filepath.Dir(manifestPath)
	return manifest, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	manifest := &Manifest{}
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(manifest.Documents) == 0 {
		return nil, errors.New("manifest lists no documents")
	}
	for i, entry := range manifest.Documents {
		if strings.TrimSpace(entry.Source) == "" {
			return nil, fmt.Errorf("manifest documents[%d]: source is required", i)
		}
	}

	return manifest, nil
}

// RunManifest transforms each manifest document as a whole-document variant.
// Sources resolve against the configured input directory when set, otherwise
// against the manifest's directory.
func (r *Runner) RunManifest(ctx context.Context, manifest *Manifest) (*Report, error) {
	baseDir := r.config.InputDir
	if baseDir == "" {
		baseDir = manifest.dir
	}

	tasks := make([]task, len(manifest.Documents))
	for i, entry := range manifest.Documents {
		source := filepath.FromSlash(entry.Source)
		if !filepath.IsAbs(source) {
			source = filepath.Join(baseDir, source)
		}
		tasks[i] = task{
			source: entry.Source,
			path:   source,
			title:  extract.Title{Name: strings.TrimSpace(entry.Title)},
			output: entry.Output,
		}
	}

	return r.execute(ctx, tasks, true)
}
