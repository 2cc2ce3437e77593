// Package vcpkg implements the package manager collaborator over the vcpkg
// binary. The core only sees install success/failure and the installed
// include/lib/bin roots; vcpkg's own metadata stays behind this boundary.
package vcpkg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Commander interface for testing
type Commander interface {
	CombinedOutput() ([]byte, error)
}

// Manager drives a vcpkg installation rooted at Root.
type Manager struct {
	Root    string
	Triplet string

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// New creates a manager for the vcpkg tree at root. An empty triplet selects
// the platform default.
func New(root, triplet string) *Manager {
	if triplet == "" {
		triplet = defaultTriplet()
	}

	return &Manager{
		Root:    root,
		Triplet: triplet,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

func defaultTriplet() string {
	switch runtime.GOOS {
	case "windows":
		return "x64-windows"
	case "darwin":
		return "x64-osx"
	default:
		return "x64-linux"
	}
}

func (m *Manager) exe() string {
	name := "vcpkg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return filepath.Join(m.Root, name)
}

func (m *Manager) installedRoot() string {
	return filepath.Join(m.Root, "installed", m.Triplet)
}

// IsInstalled reports whether a package's metadata directory exists in the
// installed tree.
func (m *Manager) IsInstalled(name string) bool {
	info, err := os.Stat(filepath.Join(m.installedRoot(), "share", name))
	return err == nil && info.IsDir()
}

// Install installs one package for the manager's triplet.
func (m *Manager) Install(ctx context.Context, name string) error {
	cmd := m.execCommand(ctx, m.exe(), "install", name+":"+m.Triplet)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("vcpkg install %s failed: %w\n%s", name, err, out)
	}

	return nil
}

// IncludePath returns the shared include root of the installed tree.
func (m *Manager) IncludePath() string {
	return filepath.Join(m.installedRoot(), "include")
}

// LibPath returns the shared library root of the installed tree.
func (m *Manager) LibPath() string {
	return filepath.Join(m.installedRoot(), "lib")
}

// BinPath returns the runtime artifact directory of the installed tree.
func (m *Manager) BinPath() string {
	return filepath.Join(m.installedRoot(), "bin")
}
