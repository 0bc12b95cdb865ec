package analyzer

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/zheng/repograph/internal/extract"
)

// excludedDirs are directory names never descended into, on top of the
// hidden-directory rule.
var excludedDirs = map[string]struct{}{
	"node_modules": {},
	"__pycache__":  {},
	"vendor":       {},
	"build":        {},
	"dist":         {},
	"target":       {},
	"bin":          {},
	"obj":          {},
	".git":         {},
}

// SourceFile is one accepted file from the repository walk.
type SourceFile struct {
	RelPath string
	AbsPath string
	Size    int64
}

// walker enumerates analyzable source files under a repository root.
type walker struct {
	root     string
	maxSize  int64
	excludes []glob.Glob
	ignore   *gitignore.GitIgnore
}

func newWalker(root string, maxSize int64, excludeGlobs []string) (*walker, error) {
	w := &walker{root: root, maxSize: maxSize}

	for _, pat := range excludeGlobs {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, err
		}
		w.excludes = append(w.excludes, g)
	}

	// Honor the repository's own ignore rules when present.
	if ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.ignore = ign
	}
	return w, nil
}

// walk returns all accepted files sorted by walk order. Oversized files,
// unsupported extensions, hidden and excluded directories are skipped
// silently.
func (w *walker) walk() ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees degrade to "not scanned".
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, skip := excludedDirs[name]; skip {
				return filepath.SkipDir
			}
			if w.ignore != nil && w.ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.accept(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if w.maxSize > 0 && info.Size() > w.maxSize {
			return nil
		}
		files = append(files, SourceFile{RelPath: rel, AbsPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (w *walker) accept(rel string) bool {
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return false
	}
	if !extract.Supported(rel) {
		return false
	}
	if w.ignore != nil && w.ignore.MatchesPath(rel) {
		return false
	}
	for _, g := range w.excludes {
		if g.Match(rel) {
			return false
		}
	}
	return true
}

// statRoot distinguishes a missing root (legitimately empty result) from
// an unreadable one (infrastructure failure).
func statRoot(root string) (exists bool, err error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}
	return true, nil
}
