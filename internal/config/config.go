package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/cmpile/cmpile/internal/utils"
)

// Default configuration values
const (
	DefaultJobs      = 0 // 0 = host parallelism
	DefaultClean     = false
	DefaultDLL       = false
	DefaultNoCache   = false
	DefaultVerbose   = false
	DefaultVcpkgRoot = ""
)

// Holds the configuration options for cmpile
type Config struct {
	// C and C++ compiler overrides; empty means auto-detect (clang, then gcc)
	CompilerPath string
	CXXPath      string

	// Extra compiler flags, appended last so they override defaults
	Flags string

	// Additional include directories
	IncludeDirs []string

	// Additional library directories
	LibDirs []string

	// Output base name; empty derives it from the first source file
	OutputName string

	// Parallel compile jobs; 0 uses the host parallelism
	Jobs int

	// Build a shared library instead of an executable
	DLL bool

	// Discard the output directory and rebuild everything
	Clean bool

	// Bypass the build cache entirely
	NoCache bool

	// vcpkg installation root
	VcpkgRoot string

	// Directory holding fetched repositories and the extension registry
	ExtensionsDir string

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		CompilerPath:  viper.GetString("compiler_path"),
		CXXPath:       viper.GetString("cxx_path"),
		Flags:         viper.GetString("compiler_flags"),
		IncludeDirs:   viper.GetStringSlice("include"),
		LibDirs:       viper.GetStringSlice("libpath"),
		OutputName:    viper.GetString("out"),
		Jobs:          viper.GetInt("jobs"),
		DLL:           viper.GetBool("dll"),
		Clean:         viper.GetBool("clean"),
		NoCache:       viper.GetBool("no-cache"),
		VcpkgRoot:     viper.GetString("vcpkg_root"),
		ExtensionsDir: viper.GetString("extensions_dir"),
		Verbose:       viper.GetBool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	c.Jobs = utils.ClampJobs(c.Jobs)

	for i, dir := range c.IncludeDirs {
		if dir == "" {
			continue
		}

		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid include directory: %v", err)
		}

		c.IncludeDirs[i] = abs
	}

	for i, dir := range c.LibDirs {
		if dir == "" {
			continue
		}

		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid library directory: %v", err)
		}

		c.LibDirs[i] = abs
	}

	if c.VcpkgRoot != "" {
		abs, err := filepath.Abs(c.VcpkgRoot)
		if err != nil {
			return fmt.Errorf("invalid vcpkg root: %v", err)
		}

		c.VcpkgRoot = abs
	}

	return nil
}
