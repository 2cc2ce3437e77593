package linker

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// runtimeExts are the shared-library extensions copied next to the binary.
var runtimeExts = []string{".dll", ".so", ".dylib"}

// CopyRuntime copies every dependency's runtime artifacts into the output
// directory so the produced binary is self-contained. Missing source
// directories are skipped; individual copy errors do not fail the build.
func CopyRuntime(runtimeDirs []string, outDir string) error {
	for _, dir := range runtimeDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !isRuntimeArtifact(entry.Name()) {
				continue
			}

			src := filepath.Join(dir, entry.Name())
			dst := filepath.Join(outDir, entry.Name())

			_ = copyFile(src, dst)
		}
	}

	return nil
}

func isRuntimeArtifact(name string) bool {
	for _, ext := range runtimeExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return false
}

// copyFile copies a file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}
