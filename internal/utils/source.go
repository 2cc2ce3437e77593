package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// sourceExts is the set of compilable C/C++ file extensions.
var sourceExts = map[string]bool{
	".c": true, ".cpp": true, ".cc": true, ".cxx": true, ".c++": true,
}

// headerExts is the set of header file extensions.
var headerExts = map[string]bool{
	".h": true, ".hpp": true, ".hxx": true, ".hh": true, ".h++": true, ".inl": true,
}

// IsSourceFile reports whether path names a compilable C/C++ source file.
func IsSourceFile(path string) bool {
	ext := filepath.Ext(path)
	return sourceExts[strings.ToLower(ext)]
}

// IsCFile reports whether path names a plain C source file.
// Uppercase .C is treated as C++.
func IsCFile(path string) bool {
	return filepath.Ext(path) == ".c"
}

// IsHeaderFile reports whether path names a C/C++ header file.
func IsHeaderFile(path string) bool {
	ext := filepath.Ext(path)
	return headerExts[strings.ToLower(ext)]
}

// ExpandSources expands a mix of file and directory arguments into a flat list
// of absolute source file paths. Directories are walked recursively.
func ExpandSources(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}

			files = append(files, abs)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}

			if d.IsDir() || !IsSourceFile(p) {
				return nil
			}

			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}

			files = append(files, abs)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// ClampJobs normalises a worker count, falling back to the host parallelism.
func ClampJobs(jobs int) int {
	if jobs <= 0 {
		return runtime.NumCPU()
	}

	return jobs
}
