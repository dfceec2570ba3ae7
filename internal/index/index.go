// Package index discovers LookML source files in a project tree.
// It merges conventional locations (views/, models/) with a recursive
// catch-all search, so projects that scatter files outside the standard
// layout are still fully covered.
package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSet is an order-stable, de-duplicated listing of candidate files,
// split into model-like and view-like categories. Paths are relative to
// the project root.
type FileSet struct {
	Root       string
	ModelPaths []string
	ViewPaths  []string
}

// Discover walks the project tree rooted at root and classifies every
// .lkml file it can reach. Unreadable subtrees are skipped, not fatal.
//
// View-like: any *.view.lkml, at any depth.
// Model-like: models/*.lkml, plus root-level *.model.lkml and any
// root-level *model*.lkml that is not itself a view file.
func Discover(root string) (*FileSet, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "discover", Path: root, Err: fs.ErrInvalid}
	}

	fset := &FileSet{Root: root}
	seenModel := map[string]bool{}
	seenView := map[string]bool{}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		switch {
		case isViewFile(rel):
			if !seenView[rel] {
				seenView[rel] = true
				fset.ViewPaths = append(fset.ViewPaths, rel)
			}
		case isModelFile(rel):
			if !seenModel[rel] {
				seenModel[rel] = true
				fset.ModelPaths = append(fset.ModelPaths, rel)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return fset, nil
}

func isViewFile(rel string) bool {
	return strings.HasSuffix(rel, ".view.lkml")
}

func isModelFile(rel string) bool {
	if !strings.HasSuffix(rel, ".lkml") {
		return false
	}
	dir, base := filepath.Split(rel)
	dir = strings.Trim(dir, "/")

	// Conventional layout: anything directly under models/.
	if dir == "models" {
		return true
	}
	// Root-level model files by naming convention.
	if dir == "" {
		if strings.HasSuffix(base, ".model.lkml") {
			return true
		}
		if strings.Contains(base, "model") {
			return true
		}
	}
	return false
}

// Len returns the total number of discovered files.
func (f *FileSet) Len() int {
	return len(f.ModelPaths) + len(f.ViewPaths)
}
