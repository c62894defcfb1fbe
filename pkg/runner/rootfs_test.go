package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

func TestWalkRootFS(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), []byte("b"))
	writeFile(t, filepath.Join(root, "a", "z.txt"), []byte("z"))
	writeFile(t, filepath.Join(root, ".hidden"), []byte("h"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.Symlink("b.txt", filepath.Join(root, "link")))

	files, err := runner.WalkRootFS(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden", "a/z.txt", "b.txt"}, files)
}

func TestWalkRootFS_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	file := filepath.Join(root, "file")
	writeFile(t, file, []byte("x"))

	_, err := runner.WalkRootFS(context.Background(), file)
	require.ErrorIs(t, err, runner.ErrNotDirectory)

	_, err = runner.WalkRootFS(context.Background(), filepath.Join(root, "missing"))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.WalkRootFS(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}
