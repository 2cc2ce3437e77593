// Package depgraph builds the transitive header closure of a source unit.
//
// Local includes are resolved on disk against a search-path list and expanded
// recursively; library includes are opaque leaves recorded for the package
// resolver. Each reachable header contributes its content fingerprint to the
// unit's header set exactly once, so repeated or cyclic inclusion is
// idempotent.
package depgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cmpile/cmpile/internal/diag"
	"github.com/cmpile/cmpile/internal/scanner"
)

// Unit is one compilable source file and everything learned about it during
// scanning. Units are recreated on every invocation.
type Unit struct {
	// Path is the absolute path to the source file.
	Path string

	// Hash is the sha256 fingerprint of the file bytes.
	Hash string

	// Includes are the direct include targets, in source order.
	Includes []scanner.Include

	// Headers maps each local header in the transitive closure to its
	// content fingerprint.
	Headers map[string]string

	// External are library-kind include targets left for the resolver,
	// including local includes that no search path could satisfy.
	External []string

	// Fetches and Locals are the unit's inline directives.
	Fetches []scanner.Fetch
	Locals  []scanner.Local

	// Diags collects scan warnings attached to this unit.
	Diags []diag.Diagnostic
}

// Walker resolves local includes against an ordered search-path list: the
// including file's own directory first, then the configured paths.
type Walker struct {
	SearchPaths []string
}

// Load reads and scans a source file, then walks its include closure.
func (w *Walker) Load(path string) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	res := scanner.Scan(abs, data)

	unit := &Unit{
		Path:     abs,
		Hash:     hashBytes(data),
		Includes: res.Includes,
		Headers:  make(map[string]string),
		Fetches:  res.Fetches,
		Locals:   res.Locals,
		Diags:    res.Diags,
	}

	seen := map[string]bool{}
	external := map[string]bool{}

	w.walk(abs, res.Includes, unit, seen, external)

	for target := range external {
		unit.External = append(unit.External, target)
	}

	return unit, nil
}

// walk expands the includes of one file into the unit's header set.
func (w *Walker) walk(from string, includes []scanner.Include, unit *Unit, seen, external map[string]bool) {
	for _, inc := range includes {
		if inc.Kind == scanner.LibraryInclude {
			external[inc.Target] = true
			continue
		}

		resolved := w.resolve(from, inc.Target)
		if resolved == "" {
			// Not found locally: forward as a library-kind target for the
			// resolver to attempt. Soft warning, not a build abort.
			external[inc.Target] = true
			continue
		}

		if seen[resolved] {
			continue
		}
		seen[resolved] = true

		data, err := os.ReadFile(resolved)
		if err != nil {
			external[inc.Target] = true
			continue
		}

		unit.Headers[resolved] = hashBytes(data)

		sub := scanner.Scan(resolved, data)
		unit.Fetches = append(unit.Fetches, sub.Fetches...)
		unit.Locals = append(unit.Locals, sub.Locals...)
		unit.Diags = append(unit.Diags, sub.Diags...)

		w.walk(resolved, sub.Includes, unit, seen, external)
	}
}

// resolve finds a local include target on disk, trying the including file's
// directory before the configured search paths.
func (w *Walker) resolve(from, target string) string {
	dirs := append([]string{filepath.Dir(from)}, w.SearchPaths...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, target)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err == nil {
				return abs
			}
		}
	}

	return ""
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the sha256 fingerprint of a file's content.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return hashBytes(data), nil
}
