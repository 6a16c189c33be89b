// Package toolbox loads the tool manifest and dispatches tool invocations by ID.
package toolbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolFile is the per-tool descriptor inside each script folder.
const ToolFile = "tool.yaml"

// Parameter types.
const (
	TypeString = "string"
	TypePath   = "path"
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeList   = "list"
)

// Manifest groups the toolbox's tools.
type Manifest struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
	Tools []Tool `yaml:"tools"`

	dir string
}

// Tool is one manifest entry. Script is relative to the manifest's directory.
type Tool struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	Script string `yaml:"script"`

	Descriptor *Descriptor `yaml:"-"`
}

// Descriptor is a tool.yaml document.
type Descriptor struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter describes one tool argument.
type Parameter struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// LoadManifest parses the manifest at path and every tool descriptor it can read.
// Unreadable descriptors are left nil for Validate to report.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	for i := range m.Tools {
		t := &m.Tools[i]
		t.ID = strings.TrimSpace(t.ID)
		if d, err := loadDescriptor(m.ScriptDir(*t)); err == nil {
			t.Descriptor = d
		}
	}
	return &m, nil
}

func loadDescriptor(dir string) (*Descriptor, error) {
	b, err := os.ReadFile(filepath.Join(dir, ToolFile))
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(dir, ToolFile), err)
	}
	d.ID = strings.TrimSpace(d.ID)
	return &d, nil
}

// ScriptDir resolves a tool's script folder.
func (m *Manifest) ScriptDir(t Tool) string {
	return filepath.Join(m.dir, filepath.FromSlash(t.Script))
}

// Tool finds a tool by ID, ignoring case.
func (m *Manifest) Tool(id string) (Tool, bool) {
	for _, t := range m.Tools {
		if strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return Tool{}, false
}

// Validate checks the manifest against the script folders on disk and returns every
// problem found.
func (m *Manifest) Validate() error {
	var errs []error
	if len(m.Tools) == 0 {
		errs = append(errs, errors.New("manifest has no tools"))
	}
	seen := make(map[string]bool)
	for _, t := range m.Tools {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("tool %q has no id", t.Label))
			continue
		}
		key := strings.ToLower(t.ID)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate tool id %s", t.ID))
		}
		seen[key] = true

		dir := m.ScriptDir(t)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("tool %s: script folder %s not found", t.ID, t.Script))
			continue
		}
		d, err := loadDescriptor(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %s: %w", t.ID, err))
			continue
		}
		if !strings.EqualFold(d.ID, t.ID) {
			errs = append(errs, fmt.Errorf("tool %s: %s declares id %q", t.ID, ToolFile, d.ID))
		}
		for _, p := range d.Parameters {
			if !validType(p.Type) {
				errs = append(errs, fmt.Errorf("tool %s: parameter %s has unknown type %q", t.ID, p.Name, p.Type))
			}
		}
	}
	return errors.Join(errs...)
}

func validType(t string) bool {
	switch t {
	case "", TypeString, TypePath, TypeBool, TypeInt, TypeList:
		return true
	}
	return false
}
