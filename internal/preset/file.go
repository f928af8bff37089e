package preset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// File is the YAML document written by Export.
type File struct {
	Provider string   `yaml:"provider"`
	Presets  []Preset `yaml:"presets"`
}

// Export fetches every preset from store and writes them to w as YAML.
func Export(ctx context.Context, store Store, provider string, w io.Writer) (int, error) {
	list, err := store.List(ctx)
	if err != nil {
		return 0, err
	}

	doc := File{Provider: provider}
	for _, s := range list {
		p, err := store.Get(ctx, s.Name)
		if err != nil {
			return 0, fmt.Errorf("preset %q: %w", s.Name, err)
		}
		doc.Presets = append(doc.Presets, p)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("preset: encode yaml: %w", err)
	}
	return len(doc.Presets), enc.Close()
}

// Import reads a YAML document from r and saves each preset to store.
// Presets without a name are skipped.
func Import(ctx context.Context, store Store, r io.Reader) (int, error) {
	var doc File
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("preset: decode yaml: %w", err)
	}

	saved := 0
	for _, p := range doc.Presets {
		if p.Name == "" {
			continue
		}
		if err := store.Save(ctx, p); err != nil {
			return saved, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		saved++
	}
	return saved, nil
}

// ExportFile is Export to a file path; "~" is expanded.
func ExportFile(ctx context.Context, store Store, provider, path string) (int, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return 0, fmt.Errorf("preset: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("preset: %w", err)
	}
	n, err := Export(ctx, store, provider, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ImportFile is Import from a file path; "~" is expanded.
func ImportFile(ctx context.Context, store Store, path string) (int, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return 0, fmt.Errorf("preset: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("preset: %w", err)
	}
	defer f.Close()
	return Import(ctx, store, f)
}
