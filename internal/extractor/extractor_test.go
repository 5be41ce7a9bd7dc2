package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func extract(t *testing.T, root string, exclude ...string) *Result {
	t.Helper()
	src, err := NewDirSource(root, ".py", exclude)
	require.NoError(t, err)

	e := New(nil)
	defer e.Close()

	result, err := e.Extract(context.Background(), src)
	require.NoError(t, err)
	return result
}

func TestExtract_WalksRecursively(t *testing.T) {
	root := writeTree(t, map[string]string{
		"util.py":          "def add(a, b): return a + b\n",
		"pkg/models.py":    "class User:\n    def name(self):\n        return 'u'\n",
		"pkg/deep/x/y.py":  "def deep():\n    pass\n",
		"README.md":        "# not python\n",
		"pkg/data.pyc.txt": "def nope(): pass\n",
	})

	result := extract(t, root)

	assert.Equal(t, 3, result.FilesScanned)
	assert.Empty(t, result.ParseErrors)

	names := make([]string, 0, len(result.Entities))
	for _, e := range result.Entities {
		names = append(names, e.FilePath+":"+e.EntityName)
	}
	assert.Equal(t, []string{
		"pkg/deep/x/y.py:deep",
		"pkg/models.py:User",
		"pkg/models.py:name",
		"util.py:add",
	}, names)
}

func TestExtract_SkipsInvalidFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.py":  "def broken(:\n    pass\n",
		"good.py": "def fine():\n    return 1\n",
	})

	result := extract(t, root)

	require.Len(t, result.ParseErrors, 1)
	assert.Equal(t, "bad.py", result.ParseErrors[0].Path)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "fine", result.Entities[0].EntityName)
}

func TestExtract_SkipsFilesWithEmptySuites(t *testing.T) {
	root := writeTree(t, map[string]string{
		"indent.py": "def f():\nreturn 1\n",
		"nobody.py": "def g():\n",
		"good.py":   "def fine():\n    return 1\n",
	})

	result := extract(t, root)

	require.Len(t, result.ParseErrors, 2)
	paths := []string{result.ParseErrors[0].Path, result.ParseErrors[1].Path}
	assert.ElementsMatch(t, []string{"indent.py", "nobody.py"}, paths)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "fine", result.Entities[0].EntityName)
}

func TestExtract_FollowsFileSymlinks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"real/impl.py": "def linked():\n    return 1\n",
	})
	outside := writeTree(t, map[string]string{"ext.py": "def external():\n    return 2\n"})

	if err := os.Symlink(filepath.Join(root, "real", "impl.py"), filepath.Join(root, "alias.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "ext.py"), filepath.Join(root, "ext.py")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "dangling.py")))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "dirlink.py")))

	src, err := NewDirSource(root, ".py", nil)
	require.NoError(t, err)
	files, err := src.Files(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alias.py", "ext.py", "real/impl.py"}, files)

	result := extract(t, root)
	assert.Equal(t, 3, result.FilesScanned)
	var names []string
	for _, e := range result.Entities {
		names = append(names, e.EntityName)
	}
	assert.ElementsMatch(t, []string{"linked", "linked", "external"}, names)
}

func TestExtract_EmptyDirectory(t *testing.T) {
	result := extract(t, t.TempDir())

	assert.Empty(t, result.Entities)
	assert.Empty(t, result.ParseErrors)
	assert.Zero(t, result.FilesScanned)
}

func TestExtract_ExcludePatterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":                    "def app(): pass\n",
		".venv/lib/site.py":         "def vendored(): pass\n",
		"src/__pycache__/cached.py": "def cached(): pass\n",
		"tests/test_app.py":         "def test_app(): pass\n",
	})

	result := extract(t, root, "**/.venv/**", "**/__pycache__/**", "tests/**")

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "app", result.Entities[0].EntityName)
}

func TestExtract_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "def a(): pass\n"})
	src, err := NewDirSource(root, ".py", nil)
	require.NoError(t, err)

	e := New(nil)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Extract(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDirSource_Errors(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "missing"), ".py", nil)
	assert.True(t, errors.Is(err, ErrNoSource))

	root := writeTree(t, map[string]string{"file.py": ""})
	_, err = NewDirSource(filepath.Join(root, "file.py"), ".py", nil)
	assert.True(t, errors.Is(err, ErrNoSource))

	_, err = NewDirSource(root, ".py", []string{"[unclosed"})
	assert.Error(t, err)
}

func TestReadAuxiliary(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "print('hello')\n"})
	src, err := NewDirSource(root, ".py", nil)
	require.NoError(t, err)

	content, ok, err := ReadAuxiliary(context.Background(), src, "main.py")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "print('hello')\n", content)

	empty, err := NewDirSource(t.TempDir(), ".py", nil)
	require.NoError(t, err)
	content, ok, err = ReadAuxiliary(context.Background(), empty, "main.py")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
}
