package walker

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreOptions selects the ignore sources honored during a walk
type IgnoreOptions struct {
	// Files are the per-directory ignore file names, lowest precedence first
	Files []string

	// Global loads the user's global git excludes file
	Global bool

	// GlobalFile overrides the global excludes location
	GlobalFile string

	// GitExclude loads .git/info/exclude of every repository found
	GitExclude bool

	// Parents loads ignore files from directories above the walk root, up
	// to the enclosing repository root
	Parents bool
}

func DefaultIgnoreOptions() IgnoreOptions {
	return IgnoreOptions{
		Files:      []string{".gitignore", ".ignore", ".rgignore"},
		Global:     true,
		GitExclude: true,
		Parents:    true,
	}
}

// IgnoreFile is one compiled ignore file scoped to a directory
type IgnoreFile struct {
	Source string // Path of the ignore file
	Dir    string // Slash-separated directory it applies to, relative to the walk root
	Prefix string // For files above the walk root: the root's path relative to their directory

	rules []rule
}

// rule is one pattern line. Lines are compiled one by one so that a negation
// in one file can re-include a path ignored by another.
type rule struct {
	line    string
	negate  bool
	matcher *ignore.GitIgnore
}

// match reports whether the file decides relPath, and if so whether the
// decision is to ignore it. The last matching line wins.
func (f *IgnoreFile) match(relPath string, isDir bool) (decided, ignored bool) {
	p := relPath
	switch {
	case f.Prefix != "":
		p = path.Join(f.Prefix, relPath)
	case f.Dir != "":
		if !strings.HasPrefix(relPath, f.Dir+"/") {
			return false, false
		}
		p = relPath[len(f.Dir)+1:]
	}
	if isDir {
		p += "/"
	}

	for i := len(f.rules) - 1; i >= 0; i-- {
		if f.rules[i].matcher.MatchesPath(p) {
			return true, !f.rules[i].negate
		}
	}
	return false, false
}

// IgnoreManager evaluates gitignore-style rules for one walk. Later sources
// override earlier ones: global excludes, repository excludes, parent
// directories from the outermost in, then the walk root and its
// subdirectories from the top down.
type IgnoreManager struct {
	root string
	opts IgnoreOptions

	mu    sync.RWMutex
	base  []*IgnoreFile            // Sources that apply to the whole walk
	byDir map[string][]*IgnoreFile // Files loaded from each walked directory
}

// NewIgnoreManager creates an empty manager for the walk rooted at root
func NewIgnoreManager(root string, opts IgnoreOptions) *IgnoreManager {
	return &IgnoreManager{
		root:  root,
		opts:  opts,
		byDir: make(map[string][]*IgnoreFile),
	}
}

// LoadParents loads the global and repository excludes and the ignore files
// of the directories above the root.
func (im *IgnoreManager) LoadParents() error {
	var files []*IgnoreFile

	if im.opts.Global {
		global := im.opts.GlobalFile
		if global == "" {
			global = globalExcludesFile()
		}
		if f, err := compile(global, "", ""); err == nil && f != nil {
			files = append(files, f)
		}
	}

	// Ancestors from the root upward, stopping at the repository root.
	type ancestor struct {
		dir    string
		prefix string
	}
	var chain []ancestor
	repo := ""
	for dir, prefix := im.root, ""; ; {
		if dir != im.root {
			chain = append(chain, ancestor{dir: dir, prefix: prefix})
		}
		if isDir(filepath.Join(dir, ".git")) {
			repo = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || !im.opts.Parents {
			break
		}
		prefix = path.Join(filepath.Base(dir), prefix)
		dir = parent
	}

	// Parent ignore files only count inside a repository.
	if repo == "" {
		chain = nil
	}

	if im.opts.GitExclude && repo != "" {
		prefix := ""
		if repo != im.root {
			rel, err := filepath.Rel(repo, im.root)
			if err == nil {
				prefix = filepath.ToSlash(rel)
			}
		}
		if f, err := compile(filepath.Join(repo, ".git", "info", "exclude"), "", prefix); err == nil && f != nil {
			files = append(files, f)
		}
	}

	if im.opts.Parents {
		for i := len(chain) - 1; i >= 0; i-- {
			for _, name := range im.opts.Files {
				f, err := compile(filepath.Join(chain[i].dir, name), "", chain[i].prefix)
				if err != nil {
					return err
				}
				if f != nil {
					files = append(files, f)
				}
			}
		}
	}

	im.mu.Lock()
	im.base = files
	im.mu.Unlock()
	return nil
}

// LoadDir loads the ignore files of a walked directory. relDir is relative to
// the root; "" or "." is the root itself.
func (im *IgnoreManager) LoadDir(relDir string) error {
	relDir = filepath.ToSlash(relDir)
	if relDir == "." {
		relDir = ""
	}
	abs := filepath.Join(im.root, filepath.FromSlash(relDir))

	var files []*IgnoreFile
	var errs []error
	for _, name := range im.opts.Files {
		f, err := compile(filepath.Join(abs, name), relDir, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			files = append(files, f)
		}
	}

	// A nested repository brings its own excludes.
	if im.opts.GitExclude && relDir != "" && isDir(filepath.Join(abs, ".git")) {
		if f, err := compile(filepath.Join(abs, ".git", "info", "exclude"), relDir, ""); err == nil && f != nil {
			files = append(files, f)
		}
	}

	// Loading again replaces the directory's rules, so edited or deleted
	// ignore files take effect.
	im.mu.Lock()
	if len(files) > 0 {
		im.byDir[relDir] = files
	} else {
		delete(im.byDir, relDir)
	}
	im.mu.Unlock()
	return errors.Join(errs...)
}

// ShouldIgnore determines if a path relative to the root is ignored
func (im *IgnoreManager) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "" || relPath == "." {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	ignored := false
	apply := func(files []*IgnoreFile) {
		for _, f := range files {
			if decided, ig := f.match(relPath, isDir); decided {
				ignored = ig
			}
		}
	}

	apply(im.base)
	apply(im.byDir[""])
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' {
			apply(im.byDir[relPath[:i]])
		}
	}
	return ignored
}

// compile reads an ignore file. A missing file yields nil without error.
func compile(file, dir, prefix string) (*IgnoreFile, error) {
	if file == "" {
		return nil, nil
	}
	content, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && isDir(file) {
			return nil, nil
		}
		return nil, err
	}

	f := &IgnoreFile{Source: file, Dir: dir, Prefix: prefix}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r := rule{line: line}
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		r.matcher = ignore.CompileIgnoreLines(line)
		f.rules = append(f.rules, r)
	}
	if len(f.rules) == 0 {
		return nil, nil
	}
	return f, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// globalExcludesFile returns git's default core.excludesFile location
func globalExcludesFile() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(home, ".config", "git", "ignore"),
		filepath.Join(home, ".gitignore_global"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return ""
}
