package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmpile/cmpile/internal/diag"
)

func TestScan_Includes(t *testing.T) {
	src := `#include <fmt/core.h>
#include "util.h"
  #include <vector>
#include   "sub/helper.hpp"
int main() { return 0; }
// #include <not/parsed.h>
`

	res := Scan("main.cpp", []byte(src))

	require.Len(t, res.Includes, 4)

	assert.Equal(t, Include{Target: "fmt/core.h", Kind: LibraryInclude, Line: 1}, res.Includes[0])
	assert.Equal(t, Include{Target: "util.h", Kind: LocalInclude, Line: 2}, res.Includes[1])
	assert.Equal(t, Include{Target: "vector", Kind: LibraryInclude, Line: 3}, res.Includes[2])
	assert.Equal(t, Include{Target: "sub/helper.hpp", Kind: LocalInclude, Line: 4}, res.Includes[3])
	assert.Empty(t, res.Diags)
}

func TestScan_FetchDirectives(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantRepo string
		wantRef  string
	}{
		{
			name:     "no ref defaults to main",
			line:     "// @fetch https://github.com/raysan5/raylib",
			wantRepo: "https://github.com/raysan5/raylib",
			wantRef:  "main",
		},
		{
			name:     "trailing ref",
			line:     "// @fetch https://github.com/fmtlib/fmt 10.1.1",
			wantRepo: "https://github.com/fmtlib/fmt",
			wantRef:  "10.1.1",
		},
		{
			name:     "at-separated ref",
			line:     "// @fetch https://github.com/gabime/spdlog @ v1.12.0",
			wantRepo: "https://github.com/gabime/spdlog",
			wantRef:  "v1.12.0",
		},
		{
			name:     "leading whitespace",
			line:     "   //@fetch https://github.com/nothings/stb",
			wantRepo: "https://github.com/nothings/stb",
			wantRef:  "main",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := Scan("main.cpp", []byte(test.line+"\n"))

			require.Len(t, res.Fetches, 1)
			assert.Equal(t, test.wantRepo, res.Fetches[0].Repo)
			assert.Equal(t, test.wantRef, res.Fetches[0].Ref)
			assert.Empty(t, res.Diags)
		})
	}
}

func TestScan_FetchKey(t *testing.T) {
	f := Fetch{Repo: "https://github.com/fmtlib/fmt", Ref: "main"}
	assert.Equal(t, "https://github.com/fmtlib/fmt@main", f.Key())
}

func TestScan_LocalDirective(t *testing.T) {
	res := Scan("main.cpp", []byte("// @local /opt/raylib raylib -lraylib -lwinmm\n"))

	require.Len(t, res.Locals, 1)
	assert.Equal(t, "/opt/raylib", res.Locals[0].Path)
	assert.Equal(t, "raylib", res.Locals[0].Name)
	assert.Equal(t, []string{"-lraylib", "-lwinmm"}, res.Locals[0].Flags)
}

func TestScan_LocalDirective_NoFlags(t *testing.T) {
	res := Scan("main.cpp", []byte("// @local ./vendor/mathlib mathlib\n"))

	require.Len(t, res.Locals, 1)
	assert.Equal(t, "./vendor/mathlib", res.Locals[0].Path)
	assert.Equal(t, "mathlib", res.Locals[0].Name)
	assert.Empty(t, res.Locals[0].Flags)
}

func TestScan_MalformedDirectives(t *testing.T) {
	src := `// @fetch ftp://example.com/not-github
// @local /only/a/path
#include "still_scanned.h"
`

	res := Scan("broken.cpp", []byte(src))

	require.Len(t, res.Diags, 2)
	assert.Equal(t, diag.ScanDiagnostic, res.Diags[0].Kind)
	assert.Equal(t, 1, res.Diags[0].Line)
	assert.Equal(t, diag.ScanDiagnostic, res.Diags[1].Kind)
	assert.Equal(t, 2, res.Diags[1].Line)

	// Malformed directives never stop include scanning
	require.Len(t, res.Includes, 1)
	assert.Equal(t, "still_scanned.h", res.Includes[0].Target)
	assert.Empty(t, res.Fetches)
	assert.Empty(t, res.Locals)
}

func TestScan_EmptyFile(t *testing.T) {
	res := Scan("empty.cpp", nil)

	assert.Empty(t, res.Includes)
	assert.Empty(t, res.Fetches)
	assert.Empty(t, res.Locals)
	assert.Empty(t, res.Diags)
}
