package github

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/go-github/v81/github"

	"github.com/bull/codebase-embeddings/internal/extractor"
)

// RepoSpec identifies a directory of a repository at a given ref.
type RepoSpec struct {
	Owner    string
	Repo     string
	BasePath string
	Ref      string // empty means the default branch
}

func (s RepoSpec) String() string {
	out := s.Owner + "/" + s.Repo
	if s.BasePath != "" {
		out += "/" + s.BasePath
	}
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// ParseRepoSpec parses "owner/repo[/path][@ref]".
func ParseRepoSpec(spec string) (RepoSpec, error) {
	var rs RepoSpec

	spec = strings.TrimSpace(spec)
	if at := strings.LastIndex(spec, "@"); at >= 0 {
		rs.Ref = spec[at+1:]
		spec = spec[:at]
		if rs.Ref == "" {
			return RepoSpec{}, fmt.Errorf("invalid repository %q: empty ref", spec)
		}
	}

	parts := strings.SplitN(strings.Trim(spec, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoSpec{}, fmt.Errorf("invalid repository %q: want owner/repo[/path][@ref]", spec)
	}
	rs.Owner, rs.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		rs.BasePath = strings.Trim(parts[2], "/")
	}
	return rs, nil
}

// RepoSource is an extractor.Source backed by the GitHub Contents API.
// Paths are relative to the spec's BasePath.
type RepoSource struct {
	client  *Client
	spec    RepoSpec
	ext     string
	exclude []string
}

// NewRepoSource creates a Source listing files with extension ext under
// spec, skipping paths matched by any doublestar exclude pattern.
func NewRepoSource(client *Client, spec RepoSpec, ext string, exclude []string) (*RepoSource, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return &RepoSource{client: client, spec: spec, ext: ext, exclude: exclude}, nil
}

func (s *RepoSource) Root() string {
	return "github.com/" + s.spec.String()
}

func (s *RepoSource) Files(ctx context.Context) ([]string, error) {
	files, err := s.listRecursive(ctx, s.spec.BasePath, "")
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", extractor.ErrNoSource, s.Root())
		}
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// listRecursive recursively traverses directories to find matching files
func (s *RepoSource) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := s.client.Repositories.GetContents(ctx, s.spec.Owner, s.spec.Repo, fullPath, s.refOpts())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	var files []string
	for _, item := range dirContents {
		itemRelPath := path.Join(relativePath, item.GetName())

		switch item.GetType() {
		case "file":
			if strings.HasSuffix(item.GetName(), s.ext) && !s.excluded(itemRelPath) {
				files = append(files, itemRelPath)
			}
		case "dir":
			if s.excluded(itemRelPath) {
				continue
			}
			subFiles, err := s.listRecursive(ctx, path.Join(fullPath, item.GetName()), itemRelPath)
			if err != nil {
				return nil, err
			}
			files = append(files, subFiles...)
		}
	}

	return files, nil
}

// ReadFile fetches and decodes one file. A missing file yields an error
// wrapping fs.ErrNotExist.
func (s *RepoSource) ReadFile(ctx context.Context, relativePath string) ([]byte, error) {
	fullPath := path.Join(s.spec.BasePath, relativePath)

	fileContent, _, _, err := s.client.Repositories.GetContents(ctx, s.spec.Owner, s.spec.Repo, fullPath, s.refOpts())
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", fullPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s is a directory", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}
	return []byte(content), nil
}

func (s *RepoSource) refOpts() *github.RepositoryContentGetOptions {
	if s.spec.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: s.spec.Ref}
}

func (s *RepoSource) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

var _ extractor.Source = (*RepoSource)(nil)
