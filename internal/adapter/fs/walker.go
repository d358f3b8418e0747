package fs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"supportbot/internal/port"
)

// Walker finds source files below a root directory by glob patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns every regular file under root matching an include pattern
// and no exclude pattern, sorted by path. Each file is reported once even
// when several patterns match it.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []port.FileInfo

	for _, pattern := range w.includes {
		err := doublestar.GlobWalk(fsys, pattern, func(rel string, d iofs.DirEntry) error {
			if d.IsDir() || seen[rel] || w.shouldExclude(rel) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			seen[rel] = true
			files = append(files, port.FileInfo{
				Path:    filepath.Join(root, filepath.FromSlash(rel)),
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
