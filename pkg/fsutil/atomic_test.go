package fsutil_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
)

func TestWriteAtomic(t *testing.T) {
	t.Parallel()

	t.Run("writes new file with default mode", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.html")
		if err := fsutil.WriteAtomic(context.Background(), path, []byte("<html>"), 0); err != nil {
			t.Fatalf("WriteAtomic() error = %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(got) != "<html>" {
			t.Errorf("content = %q", got)
		}

		stat, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if stat.Mode().Perm() != fsutil.DefaultFileMode {
			t.Errorf("mode = %o, want %o", stat.Mode().Perm(), fsutil.DefaultFileMode)
		}
	})

	t.Run("keeps mode of existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.wasm")
		if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := os.Chmod(path, 0600); err != nil {
			t.Fatalf("chmod: %v", err)
		}

		if err := fsutil.WriteAtomic(context.Background(), path, []byte("new"), 0); err != nil {
			t.Fatalf("WriteAtomic() error = %v", err)
		}

		stat, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if stat.Mode().Perm() != 0600 {
			t.Errorf("mode = %o, want 600", stat.Mode().Perm())
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := fsutil.WriteAtomic(ctx, path, []byte("x"), 0644); err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("file should not have been created")
		}
	})

	t.Run("leaves no temp files on error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := fsutil.WriteAtomic(context.Background(), filepath.Join(dir, "missing", "out"), []byte("x"), 0644); err == nil {
			t.Fatal("expected error for invalid path")
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("found %d leftover entries", len(entries))
		}
	})
}

func TestWriteAtomicIfChanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.html")
	ctx := context.Background()

	written, err := fsutil.WriteAtomicIfChanged(ctx, path, []byte("a"), 0)
	if err != nil || !written {
		t.Fatalf("first write: written = %v, err = %v", written, err)
	}

	written, err = fsutil.WriteAtomicIfChanged(ctx, path, []byte("a"), 0)
	if err != nil || written {
		t.Errorf("same content: written = %v, err = %v", written, err)
	}

	written, err = fsutil.WriteAtomicIfChanged(ctx, path, []byte("b"), 0)
	if err != nil || !written {
		t.Errorf("new content: written = %v, err = %v", written, err)
	}
}

func TestCreateBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.html")
	ctx := context.Background()

	created, err := fsutil.CreateBackup(ctx, path)
	if err != nil || created {
		t.Fatalf("missing original: created = %v, err = %v", created, err)
	}

	for _, content := range []string{"first", "second"} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}

		created, err = fsutil.CreateBackup(ctx, path)
		if err != nil || !created {
			t.Fatalf("backup of %q: created = %v, err = %v", content, created, err)
		}

		got, err := os.ReadFile(fsutil.BackupPath(path))
		if err != nil {
			t.Fatalf("read backup: %v", err)
		}
		if string(got) != content {
			t.Errorf("backup = %q, want %q", got, content)
		}
	}

	if fsutil.BackupPath(path) != path+".bak" {
		t.Errorf("BackupPath() = %q", fsutil.BackupPath(path))
	}
}
