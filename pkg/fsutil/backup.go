package fsutil

import (
	"context"
	"fmt"
	"os"
)

// BackupSuffix is appended to an artifact path to name its backup.
const BackupSuffix = ".bak"

// BackupPath returns the backup path of path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// CreateBackup copies the current file at path to its backup, replacing
// any earlier backup. It reports false when there is nothing to back up.
func CreateBackup(ctx context.Context, path string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("create backup: %w", ctx.Err())
	default:
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read original for backup: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat original for backup: %w", err)
	}

	if err := WriteAtomic(ctx, BackupPath(path), content, stat.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write backup: %w", err)
	}
	return true, nil
}
