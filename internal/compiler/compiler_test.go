package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookupOnly returns a lookPath that only finds the given names.
func lookupOnly(names ...string) func(string) (string, error) {
	available := map[string]bool{}
	for _, n := range names {
		available[n] = true
	}

	return func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}

		return "", errors.New("executable file not found in $PATH")
	}
}

func TestToolchain_CompilerFor(t *testing.T) {
	tests := []struct {
		name      string
		cc, cxx   string
		available []string
		file      string
		want      string
	}{
		{
			name:      "configured CC wins for C files",
			cc:        "/opt/cc/bin/gcc",
			available: []string{"clang", "clang++"},
			file:      "main.c",
			want:      "/opt/cc/bin/gcc",
		},
		{
			name:      "configured CXX wins for C++ files",
			cxx:       "/opt/cc/bin/g++",
			available: []string{"clang", "clang++"},
			file:      "main.cpp",
			want:      "/opt/cc/bin/g++",
		},
		{
			name:      "clang preferred over gcc",
			available: []string{"clang", "gcc", "cc"},
			file:      "main.c",
			want:      "clang",
		},
		{
			name:      "gcc when clang is absent",
			available: []string{"gcc", "g++"},
			file:      "main.c",
			want:      "gcc",
		},
		{
			name:      "clang++ preferred for C++",
			available: []string{"clang++", "g++"},
			file:      "main.cpp",
			want:      "clang++",
		},
		{
			name:      "last candidate when nothing is found",
			available: nil,
			file:      "main.cpp",
			want:      "c++",
		},
		{
			name:      "uppercase .C treated as C++",
			available: []string{"clang", "clang++"},
			file:      "main.C",
			want:      "clang++",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tc := &Toolchain{CC: test.cc, CXX: test.cxx, lookPath: lookupOnly(test.available...)}

			assert.Equal(t, test.want, tc.CompilerFor(test.file))
		})
	}
}

func TestToolchain_Linker(t *testing.T) {
	tc := &Toolchain{lookPath: lookupOnly("clang", "clang++")}

	t.Run("any C++ unit selects the C++ driver", func(t *testing.T) {
		assert.Equal(t, "clang++", tc.Linker([]string{"a.c", "b.cpp"}))
	})

	t.Run("pure C selects the C driver", func(t *testing.T) {
		assert.Equal(t, "clang", tc.Linker([]string{"a.c", "b.c"}))
	})

	t.Run("empty falls back to C++", func(t *testing.T) {
		assert.Equal(t, "clang++", tc.Linker(nil))
	})
}

func TestToolchain_CompileCommand(t *testing.T) {
	tc := &Toolchain{CXX: "g++", lookPath: lookupOnly()}

	cmd := tc.CompileCommand(
		"/src/main.cpp", "/src/out/main.o",
		[]string{"/inc/a", "/inc/b"},
		[]string{"-Wall"},
		[]string{"-O3", "-std=c++20"},
	)

	assert.Equal(t, "g++", cmd.Path)
	assert.Equal(t, []string{
		"-c", "/src/main.cpp", "-o", "/src/out/main.o",
		"-I", "/inc/a", "-I", "/inc/b",
		"-Wall",
		"-O3", "-std=c++20",
	}, cmd.Args, "user flags come last so they override defaults")
}

type fakeCommander struct {
	output []byte
	err    error
}

func (f *fakeCommander) CombinedOutput() ([]byte, error) {
	return f.output, f.err
}

func TestRunner_Run(t *testing.T) {
	t.Run("success returns output", func(t *testing.T) {
		r := &Runner{execCommand: func(_ context.Context, _ string, _ ...string) Commander {
			return &fakeCommander{output: []byte("note: all good\n")}
		}}

		out, err := r.Run(context.Background(), ShellCommand{Path: "g++"})
		require.NoError(t, err)
		assert.Equal(t, "note: all good\n", out)
	})

	t.Run("failure keeps output for diagnostics", func(t *testing.T) {
		r := &Runner{execCommand: func(_ context.Context, _ string, _ ...string) Commander {
			return &fakeCommander{output: []byte("error: expected ';'\n"), err: errors.New("exit status 1")}
		}}

		out, err := r.Run(context.Background(), ShellCommand{Path: "g++"})
		require.Error(t, err)
		assert.Equal(t, "error: expected ';'\n", out)
	})

	t.Run("arguments forwarded", func(t *testing.T) {
		var gotName string
		var gotArgs []string

		r := &Runner{execCommand: func(_ context.Context, name string, args ...string) Commander {
			gotName = name
			gotArgs = args
			return &fakeCommander{}
		}}

		_, err := r.Run(context.Background(), ShellCommand{Path: "clang++", Args: []string{"-c", "x.cpp"}})
		require.NoError(t, err)
		assert.Equal(t, "clang++", gotName)
		assert.Equal(t, []string{"-c", "x.cpp"}, gotArgs)
	})
}
