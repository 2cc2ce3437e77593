package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// HeaderPackages maps known header spellings to vcpkg package identifiers.
// Loaded once per session, never mutated. Non-exhaustive by nature.
var HeaderPackages = map[string]string{
	"nlohmann/json.hpp":       "nlohmann-json",
	"fmt/core.h":              "fmt",
	"fmt/format.h":            "fmt",
	"spdlog/spdlog.h":         "spdlog",
	"sqlite3.h":               "sqlite3",
	"curl/curl.h":             "curl",
	"gtest/gtest.h":           "gtest",
	"GL/glew.h":               "glew",
	"GLFW/glfw3.h":            "glfw3",
	"glm/glm.hpp":             "glm",
	"zlib.h":                  "zlib",
	"openssl/ssl.h":           "openssl",
	"boost/asio.hpp":          "boost-asio",
	"raylib.h":                "raylib",
	"imgui.h":                 "imgui",
	"assimp/scene.h":          "assimp",
	"eigen3/Eigen/Dense":      "eigen3",
	"yaml-cpp/yaml.h":         "yaml-cpp",
	"miniaudio/miniaudio.h":   "miniaudio",
	"absent/absent.h":         "absent",
	"vulkan/vulkan.h":         "vulkan",
	"anyrpc/anyrpc.h":         "anyrpc",
	"adios2/adios2.h":         "adios2",
	"aom/aom.h":               "aom",
	"aom/aom_codec.h":         "aom",
	"openfbx/fbx.h":           "openfbx",
	"ffmpeg/avformat.h":       "ffmpeg",
	"ffmpeg/avcodec.h":        "ffmpeg",
	"ffmpeg/avutil.h":         "ffmpeg",
	"audiofile/audiofile.h":   "audiofile",
	"utf8.h":                  "utf8",
	"SDL2/SDL.h":              "sdl2",
	"QApplication":            "qtbase",
	"QDebug":                  "qtbase",
	"QString":                 "qtbase",
}

// PackageLibs maps package identifiers to explicit link library names, for
// packages whose library names do not match the package name.
var PackageLibs = map[string][]string{
	"qtbase": {"Qt6Widgets", "Qt6Gui", "Qt6Core", "Qt6Network"},
	"sdl2":   {"SDL2main", "SDL2"},
}

// headerOnly lists packages that contribute no link library.
var headerOnly = map[string]bool{
	"nlohmann-json": true,
}

// HeuristicCandidates derives candidate package identifiers from a header's
// path segments. Only slashed includes are considered, which keeps standard
// library headers (vector, stdio.h) out of the candidate set.
func HeuristicCandidates(header string) []string {
	if !strings.Contains(header, "/") {
		return nil
	}

	root := strings.SplitN(header, "/", 2)[0]

	// QtWidgets, QtCore etc. all live in qtbase
	if strings.HasPrefix(root, "Qt") && isAlnum(root[2:]) {
		return []string{"qtbase"}
	}

	if isAlnum(root) {
		return []string{strings.ToLower(root)}
	}

	return nil
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

// LinkLibsFor returns the -l library names for a package, consulting the
// explicit mapping first and then searching the installed lib directory.
// Candidate order: lib<pkg>dll.a (import lib), lib<pkg>.a, <pkg>.lib, then a
// prefix scan over lib<pkg>*.a.
func LinkLibsFor(pkg, libDir string) []string {
	if headerOnly[pkg] {
		return nil
	}

	if libs, ok := PackageLibs[pkg]; ok {
		return libs
	}

	name := pkg

	if libDir != "" {
		candidates := []string{"lib" + pkg + "dll.a", "lib" + pkg + ".a", pkg + ".lib"}

		found := false
		for _, cand := range candidates {
			if _, err := os.Stat(filepath.Join(libDir, cand)); err != nil {
				continue
			}

			switch {
			case strings.HasPrefix(cand, "lib") && strings.HasSuffix(cand, ".a"):
				name = cand[3 : len(cand)-2]
			case strings.HasSuffix(cand, ".lib"):
				name = cand[:len(cand)-4]
			}

			found = true
			break
		}

		if !found {
			if entries, err := os.ReadDir(libDir); err == nil {
				for _, e := range entries {
					n := e.Name()
					if strings.HasPrefix(n, "lib"+pkg) && strings.HasSuffix(n, ".a") {
						name = n[3 : len(n)-2]
						break
					}
				}
			}
		}
	}

	return []string{name}
}
