package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFileName reduces a received name to a single path element. Names
// that are empty, "." or "..", or that only consist of separators, are
// rejected with ErrUnsafeFileName.
func SanitizeFileName(name string) (string, error) {
	// Treat both separators as such regardless of the local OS, the peer may
	// run on either.
	normalized := strings.ReplaceAll(name, "\\", "/")
	base := normalized[strings.LastIndex(normalized, "/")+1:]

	switch base {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	return base, nil
}

// DestinationPath joins the download directory with a received file name.
// With sanitize set the name is reduced by SanitizeFileName first; without it
// the name is joined as received, which lets a peer write outside dir.
func DestinationPath(dir, name string, sanitize bool) (string, error) {
	if sanitize {
		safe, err := SanitizeFileName(name)
		if err != nil {
			return "", err
		}
		name = safe
	}
	return filepath.Join(dir, name), nil
}
