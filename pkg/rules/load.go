package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// DefaultPreset is the rule set used when none is configured.
const DefaultPreset = "uia"

// Parse decodes and compiles a YAML rule set. Unknown fields are rejected.
func Parse(data []byte, source string) (*Set, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigError{
				Source: source,
				Errors: ValidationErrors{{Field: "rules", Message: "rule set is empty"}},
			}
		}
		return nil, &ConfigError{
			Source: source,
			Errors: ValidationErrors{{Field: "yaml", Message: err.Error()}},
		}
	}
	return Compile(&file, source)
}

// Load reads and compiles a rule set file.
func Load(filename string) (*Set, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading rule set: %w", err)
	}
	return Parse(data, filename)
}

// Preset compiles one of the embedded rule sets.
func Preset(name string) (*Set, error) {
	data, err := presetFS.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return Parse(data, "preset:"+name)
}

// PresetNames lists the embedded rule sets.
func PresetNames() []string {
	entries, err := fs.ReadDir(presetFS, "presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve loads the rule file when filename is set, otherwise the named preset.
func Resolve(filename, preset string) (*Set, error) {
	if filename != "" {
		return Load(filename)
	}
	if preset == "" {
		preset = DefaultPreset
	}
	return Preset(preset)
}

// Marshal renders a rule file as YAML.
func Marshal(file *File) ([]byte, error) {
	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encoding rule set: %w", err)
	}
	return data, nil
}

// Spec reconstructs the YAML form of a compiled set.
func (s *Set) Spec() *File {
	file := &File{Name: s.name, Version: s.version, Description: s.description}
	for _, r := range s.rules {
		spec := RuleSpec{
			Placeholder: r.placeholder,
			Terms:       r.Terms(),
			Patterns:    r.Patterns(),
		}
		if len(r.domains) > 0 {
			spec.Domains = make(map[string][]string, len(r.domains))
			for d, examples := range r.domains {
				spec.Domains[string(d)] = append([]string(nil), examples...)
			}
		}
		file.Rules = append(file.Rules, spec)
	}
	return file
}
