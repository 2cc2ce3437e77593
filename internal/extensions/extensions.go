// Package extensions persists the registry of manually managed dependencies.
//
// Each record names an include path, a library path and optional linker
// flags. Records load at session start and enter resolution as pre-resolved
// dependencies, equivalent in priority to explicit directives.
package extensions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmpile/cmpile/internal/resolver"
)

// registryFile is the persisted registry file name inside the extensions dir.
const registryFile = "custom_extensions.json"

// Record is one persisted extension entry.
type Record struct {
	Name        string   `json:"name"`
	IncludePath string   `json:"include_path"`
	LibPath     string   `json:"lib_path"`
	Flags       []string `json:"flags"`
}

// Registry is the loaded extension set for one session.
type Registry struct {
	dir     string
	records []Record
}

// Load reads the registry from dir. A missing file yields an empty registry;
// a corrupt one is an error so it is not silently overwritten.
func Load(dir string) (*Registry, error) {
	reg := &Registry{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, registryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}

		return nil, fmt.Errorf("failed to read extension registry: %w", err)
	}

	if err := json.Unmarshal(data, &reg.records); err != nil {
		return nil, fmt.Errorf("failed to parse extension registry: %w", err)
	}

	return reg, nil
}

// Save writes the registry back to disk.
func (r *Registry) Save() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create extensions directory: %w", err)
	}

	data, err := json.MarshalIndent(r.records, "", "    ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(r.dir, registryFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write extension registry: %w", err)
	}

	return nil
}

// Add inserts or replaces a record by name.
func (r *Registry) Add(rec Record) {
	for i, existing := range r.records {
		if existing.Name == rec.Name {
			r.records[i] = rec
			return
		}
	}

	r.records = append(r.records, rec)
}

// Remove deletes a record by name.
func (r *Registry) Remove(name string) {
	for i, rec := range r.records {
		if rec.Name == name {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return
		}
	}
}

// Records returns the loaded records.
func (r *Registry) Records() []Record {
	return r.records
}

// Dependencies converts the records into pre-resolved dependencies.
func (r *Registry) Dependencies() []resolver.Dependency {
	deps := make([]resolver.Dependency, 0, len(r.records))

	for _, rec := range r.records {
		deps = append(deps, resolver.Dependency{
			Name:         rec.Name,
			IncludePaths: []string{rec.IncludePath},
			LibPaths:     []string{rec.LibPath},
			LinkFlags:    append([]string{}, rec.Flags...),
		})
	}

	return deps
}
