// Package fetch turns @fetch directives into installed dependencies by
// cloning the named repository and building it when it ships a CMake project.
// The git and cmake invocations are glue behind the resolver's Fetcher
// boundary; path auto-detection is what the rest of the build consumes.
package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/resolver"
)

// Commander interface for testing
type Commander interface {
	CombinedOutput() ([]byte, error)
}

// GitFetcher clones fetch targets into Dir and builds them.
type GitFetcher struct {
	// Dir is the root all fetched repositories land under.
	Dir string

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// New creates a fetcher rooted at dir.
func New(dir string) *GitFetcher {
	return &GitFetcher{
		Dir: dir,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// Fetch clones repo at ref (unless already present), builds it when a
// CMakeLists.txt is found, and returns the detected include/lib paths.
func (f *GitFetcher) Fetch(ctx context.Context, repo, ref string) (*resolver.Dependency, error) {
	logger := ctxlog.FromContext(ctx)

	name := repoName(repo)
	dest := filepath.Join(f.Dir, name+"-"+ref)

	if _, err := os.Stat(dest); os.IsNotExist(err) {
		logger.Info("cloning", "repo", repo, "ref", ref)

		args := []string{"clone", "--depth", "1"}
		if ref != "main" {
			args = append(args, "--branch", ref)
		}
		args = append(args, repo, dest)

		cmd := f.execCommand(ctx, "git", args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("git clone %s failed: %w\n%s", repo, err, out)
		}
	}

	if err := f.buildCMake(ctx, dest); err != nil {
		return nil, err
	}

	dep := f.detectPaths(name, dest)
	if dep == nil {
		return nil, fmt.Errorf("fetched %s but found no usable include directory under %s", repo, dest)
	}

	return dep, nil
}

// builtMarker records a completed cmake build inside the checkout, so a clone
// whose build failed or was interrupted is retried instead of trusted.
const builtMarker = ".cmpile-built"

// buildCMake configures and builds a fetched CMake project in-tree.
func (f *GitFetcher) buildCMake(ctx context.Context, dest string) error {
	if _, err := os.Stat(filepath.Join(dest, "CMakeLists.txt")); err != nil {
		return nil // header-only or custom layout, nothing to build
	}

	marker := filepath.Join(dest, builtMarker)
	if _, err := os.Stat(marker); err == nil {
		return nil
	}

	buildDir := filepath.Join(dest, "build")

	cmd := f.execCommand(ctx, "cmake", "-S", dest, "-B", buildDir, "-DBUILD_SHARED_LIBS=OFF")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cmake configure failed: %w\n%s", err, out)
	}

	cmd = f.execCommand(ctx, "cmake", "--build", buildDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cmake build failed: %w\n%s", err, out)
	}

	return os.WriteFile(marker, nil, 0o644)
}

// detectPaths finds include and library directories in a fetched tree.
func (f *GitFetcher) detectPaths(name, dest string) *resolver.Dependency {
	dep := &resolver.Dependency{Name: name}

	for _, cand := range []string{"include", "src", "."} {
		dir := filepath.Join(dest, cand)
		if hasHeaders(dir) {
			dep.IncludePaths = []string{dir}
			break
		}
	}

	if len(dep.IncludePaths) == 0 {
		return nil
	}

	for _, cand := range []string{"build", filepath.Join("build", "src"), "lib", "src"} {
		dir := filepath.Join(dest, cand)

		libs := staticLibs(dir)
		if len(libs) == 0 {
			continue
		}

		dep.LibPaths = []string{dir}
		for _, lib := range libs {
			dep.LinkFlags = append(dep.LinkFlags, "-l"+lib)
		}

		break
	}

	return dep
}

func repoName(repo string) string {
	name := strings.TrimSuffix(repo, ".git")
	return name[strings.LastIndex(name, "/")+1:]
}

func hasHeaders(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		switch filepath.Ext(e.Name()) {
		case ".h", ".hpp", ".hxx", ".hh":
			return true
		}
	}

	return false
}

// staticLibs returns the -l names of static libraries in dir.
func staticLibs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var libs []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, "lib") && strings.HasSuffix(n, ".a") {
			libs = append(libs, n[3:len(n)-2])
		}
	}

	return libs
}
