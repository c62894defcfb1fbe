package polyglot

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"unicode/utf8"

	"github.com/yaklabco/wahpolyglot/pkg/htmltar"
)

// ZipEntries decodes every file member of a zip archive, in archive order.
// Members whose name is not a clean, local, UTF-8 path, or cannot be
// embedded as an archive name, are skipped and reported. Directory members
// carry no data and are dropped silently.
func ZipEntries(data []byte) ([]Entry, []string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	// Insecure names are filtered per member below.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, nil, fmt.Errorf("open zip: %w", err)
	}

	var (
		entries []Entry
		skipped []string
	)

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name, ok := EnclosedName(file.Name)
		if !ok || htmltar.ValidateName(name) != nil {
			skipped = append(skipped, file.Name)
			continue
		}

		content, err := readZipFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("zip member %s: %w", file.Name, err)
		}

		entries = append(entries, Entry{Name: name, Data: content})
	}

	return entries, skipped, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// EnclosedName returns name as a relative slash path that stays inside the
// archive root, or false if it escapes, is absolute, or is not UTF-8.
func EnclosedName(name string) (string, bool) {
	if name == "" || !utf8.ValidString(name) {
		return "", false
	}

	cleaned := path.Clean(name)
	if cleaned == "." || !filepath.IsLocal(filepath.FromSlash(cleaned)) || path.IsAbs(cleaned) {
		return "", false
	}
	return cleaned, true
}
