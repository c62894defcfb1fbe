package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

// ErrNotDirectory is returned when the root filesystem is not a directory.
var ErrNotDirectory = errors.New("root filesystem is not a directory")

// WalkRootFS returns the regular files below root in walk order, as slash
// separated paths relative to root. Directories on another device than
// root are not entered; symlinks and special files are skipped.
func WalkRootFS(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root filesystem: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	rootDev, haveDev, err := deviceOf(root)
	if err != nil {
		return nil, fmt.Errorf("stat root filesystem: %w", err)
	}

	var files []string

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if path == root || !haveDev {
				return nil
			}
			dev, _, err := deviceOf(path)
			if err != nil {
				return err
			}
			if dev != rootDev {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk root filesystem %s: %w", root, err)
	}

	return files, nil
}

type readOutcome struct {
	index int
	entry polyglot.Entry
	err   error
}

// readRootFS walks root and reads every file with up to jobs workers. The
// entries keep walk order.
func readRootFS(ctx context.Context, root string, jobs int) ([]polyglot.Entry, error) {
	files, err := WalkRootFS(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	// Don't use more workers than files.
	jobs = min(jobs, len(files))

	workCh := make(chan int)
	outCh := make(chan readOutcome)

	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				name := files[idx]
				data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
				if err != nil {
					err = fmt.Errorf("read %s: %w", name, err)
				}

				select {
				case <-ctx.Done():
					return
				case outCh <- readOutcome{index: idx, entry: polyglot.Entry{Name: name, Data: data}, err: err}:
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for idx := range files {
			select {
			case <-ctx.Done():
				return
			case workCh <- idx:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	entries := make([]polyglot.Entry, len(files))
	var firstErr error
	for outcome := range outCh {
		if outcome.err != nil && firstErr == nil {
			firstErr = outcome.err
		}
		entries[outcome.index] = outcome.entry
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("read root filesystem: %w", ctx.Err())
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return entries, nil
}
