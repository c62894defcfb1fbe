//go:build unix

package runner

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// deviceOf returns the id of the device holding path.
func deviceOf(path string) (uint64, bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, false, fmt.Errorf("lstat %s: %w", path, err)
	}
	return uint64(st.Dev), true, nil //nolint:unconvert // Dev is narrower on some platforms
}
