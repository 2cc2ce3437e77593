package depgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalker_Load_TransitiveClosure(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "a.h"
#include <fmt/core.h>
int main() { return 0; }
`)
	writeFile(t, filepath.Join(dir, "a.h"), `#include "b.h"
`)
	writeFile(t, filepath.Join(dir, "b.h"), `int b();
`)

	w := &Walker{}
	unit, err := w.Load(filepath.Join(dir, "main.cpp"))
	require.NoError(t, err)

	assert.NotEmpty(t, unit.Hash)
	assert.Len(t, unit.Headers, 2, "a.h and b.h should both be in the closure")
	assert.Contains(t, unit.Headers, filepath.Join(dir, "a.h"))
	assert.Contains(t, unit.Headers, filepath.Join(dir, "b.h"))
	assert.Equal(t, []string{"fmt/core.h"}, unit.External)
}

func TestWalker_Load_CyclicIncludesVisitedOnce(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "x.h"
`)
	writeFile(t, filepath.Join(dir, "x.h"), `#include "y.h"
`)
	writeFile(t, filepath.Join(dir, "y.h"), `#include "x.h"
`)

	w := &Walker{}
	unit, err := w.Load(filepath.Join(dir, "main.cpp"))
	require.NoError(t, err)

	// Each header contributes exactly one fingerprint despite the cycle
	assert.Len(t, unit.Headers, 2)
}

func TestWalker_Load_MissingLocalForwardedAsExternal(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "missing.h"
`)

	w := &Walker{}
	unit, err := w.Load(filepath.Join(dir, "main.cpp"))
	require.NoError(t, err)

	assert.Empty(t, unit.Headers)
	assert.Equal(t, []string{"missing.h"}, unit.External)
}

func TestWalker_Load_SearchPathOrder(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	incDir := filepath.Join(dir, "include")

	// Same header name in both; the including file's directory wins
	writeFile(t, filepath.Join(srcDir, "main.cpp"), `#include "conf.h"
`)
	writeFile(t, filepath.Join(srcDir, "conf.h"), "#define LOCAL 1\n")
	writeFile(t, filepath.Join(incDir, "conf.h"), "#define SHARED 1\n")

	w := &Walker{SearchPaths: []string{incDir}}
	unit, err := w.Load(filepath.Join(srcDir, "main.cpp"))
	require.NoError(t, err)

	require.Len(t, unit.Headers, 1)
	assert.Contains(t, unit.Headers, filepath.Join(srcDir, "conf.h"))
}

func TestWalker_Load_ConfiguredSearchPath(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	incDir := filepath.Join(dir, "include")

	writeFile(t, filepath.Join(srcDir, "main.cpp"), `#include "shared.h"
`)
	writeFile(t, filepath.Join(incDir, "shared.h"), "int shared();\n")

	w := &Walker{SearchPaths: []string{incDir}}
	unit, err := w.Load(filepath.Join(srcDir, "main.cpp"))
	require.NoError(t, err)

	require.Len(t, unit.Headers, 1)
	assert.Contains(t, unit.Headers, filepath.Join(incDir, "shared.h"))
	assert.Empty(t, unit.External)
}

func TestWalker_Load_DirectivesCollectedFromHeaders(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "dep.h"
`)
	writeFile(t, filepath.Join(dir, "dep.h"), `// @fetch https://github.com/fmtlib/fmt
`)

	w := &Walker{}
	unit, err := w.Load(filepath.Join(dir, "main.cpp"))
	require.NoError(t, err)

	require.Len(t, unit.Fetches, 1)
	assert.Equal(t, "https://github.com/fmtlib/fmt", unit.Fetches[0].Repo)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.h")

	writeFile(t, path, "content")
	hash1, err := HashFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, hash1)

	hash2, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2, "hash should be stable for unchanged content")

	writeFile(t, path, "changed")
	hash3, err := HashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3, "different content should produce a different hash")
}
