package index

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/73ai/parsec/internal/logging"
)

// ManifestName is the project manifest read at the workspace root.
const ManifestName = "Project.toml"

// DepotPathEnv names the colon-separated list of depot directories.
const DepotPathEnv = "JULIA_DEPOT_PATH"

// RootKind tells how a root's files are filtered.
type RootKind int

const (
	// RootWorkspace is the editor workspace
	RootWorkspace RootKind = iota
	// RootPackages is an installed package under <depot>/packages/<name>
	RootPackages
	// RootDev is a development checkout under <depot>/dev/<name>
	RootDev
)

func (k RootKind) String() string {
	switch k {
	case RootWorkspace:
		return "workspace"
	case RootPackages:
		return "packages"
	case RootDev:
		return "dev"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k RootKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Root is one directory tree to index.
type Root struct {
	Path    string   `json:"path"`
	Kind    RootKind `json:"kind"`
	Package string   `json:"package,omitempty"`
}

// Environment supplies the depot locations.
type Environment struct {
	// DepotPath is the raw JULIA_DEPOT_PATH value; empty means the default
	DepotPath string
	// Home is the user's home directory, for ~ expansion and the default depot
	Home string
}

// OSEnvironment reads the environment of the current process.
func OSEnvironment() Environment {
	home, _ := os.UserHomeDir()
	return Environment{DepotPath: os.Getenv(DepotPathEnv), Home: home}
}

// Depots returns the depot directories in search order. Empty entries are
// skipped; with no usable entry the default ~/.julia is used.
func (e Environment) Depots() []string {
	var out []string
	for _, p := range strings.Split(e.DepotPath, ":") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, e.expand(p))
	}
	if len(out) == 0 && e.Home != "" {
		out = append(out, filepath.Join(e.Home, ".julia"))
	}
	return out
}

func (e Environment) expand(p string) string {
	if e.Home == "" {
		return p
	}
	if p == "~" {
		return e.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(e.Home, p[2:])
	}
	return p
}

// manifest is the part of Project.toml that names dependencies.
type manifest struct {
	Name string         `toml:"name"`
	Deps map[string]any `toml:"deps"`
}

// ReadManifest returns the sorted dependency names declared in the manifest
// at path. A missing file is KindManifestAbsent and an undecodable one
// KindMalformedManifest; both come with no names.
func ReadManifest(path string) ([]string, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newIndexError(KindManifestAbsent, path, "read manifest", err)
		}
		// Type mismatches, e.g. deps declared as an array, are malformed too.
		return nil, newIndexError(KindMalformedManifest, path, "decode manifest", err)
	}

	names := make([]string, 0, len(m.Deps))
	for name := range m.Deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DiscoverRoots returns the workspace root followed by every existing
// dependency root of the packages in its manifest. Manifest problems are
// logged and yield no dependency roots.
func DiscoverRoots(workspace string, env Environment, logger *slog.Logger) []Root {
	if logger == nil {
		logger = logging.Nop()
	}

	roots := []Root{{Path: workspace, Kind: RootWorkspace}}

	deps, err := ReadManifest(filepath.Join(workspace, ManifestName))
	if err != nil {
		if IsKind(err, KindMalformedManifest) {
			logger.Warn("ignoring malformed manifest", "error", err)
		} else {
			logger.Debug("no manifest", "error", err)
		}
		return roots
	}

	seen := map[string]bool{filepath.Clean(workspace): true}
	for _, depot := range env.Depots() {
		for _, name := range deps {
			for _, cand := range []Root{
				{Path: filepath.Join(depot, "packages", name), Kind: RootPackages, Package: name},
				{Path: filepath.Join(depot, "dev", name), Kind: RootDev, Package: name},
			} {
				if seen[cand.Path] || !isDir(cand.Path) {
					continue
				}
				seen[cand.Path] = true
				roots = append(roots, cand)
			}
		}
	}

	logger.Debug("discovered roots", "workspace", workspace, "deps", len(deps), "roots", len(roots))
	return roots
}

// accepts applies the per-kind path filter. Installed packages are only
// browsable through their source directory.
func (r Root) accepts(relPath string) bool {
	if r.Kind != RootPackages {
		return true
	}
	dir := filepath.ToSlash(filepath.Dir(relPath))
	for _, part := range strings.Split(dir, "/") {
		if part == "src" {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
