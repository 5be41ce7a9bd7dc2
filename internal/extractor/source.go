package extractor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Source lists and reads the files of a tree to be indexed.
// Paths are slash-separated and relative to Root.
type Source interface {
	// Root describes where the files come from (a directory or a repository).
	Root() string
	// Files returns every file matching the source extension, sorted.
	Files(ctx context.Context) ([]string, error)
	// ReadFile returns a file's content. A missing file yields an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// DirSource is a Source backed by a local directory.
type DirSource struct {
	root    string
	ext     string
	exclude []string
}

// NewDirSource creates a Source for root, matching files with extension ext
// and skipping paths that match any of the doublestar exclude patterns.
func NewDirSource(root, ext string, exclude []string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSource, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoSource, root)
	}

	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	return &DirSource{root: root, ext: ext, exclude: exclude}, nil
}

func (s *DirSource) Root() string {
	return s.root
}

func (s *DirSource) Files(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), s.ext) || s.excluded(rel) {
			return nil
		}
		if !d.Type().IsRegular() && !isFileLink(p, d) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	return files, nil
}

func (s *DirSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
}

// isFileLink reports whether d is a symlink resolving to a regular file.
// Directory links are not followed.
func isFileLink(p string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (s *DirSource) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

var _ Source = (*DirSource)(nil)
