package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "report.pdf", "report.pdf", false},
		{"unix_traversal", "../../etc/passwd", "passwd", false},
		{"windows_traversal", `..\..\Windows\win.ini`, "win.ini", false},
		{"absolute", "/tmp/x.bin", "x.bin", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"dotdot", "..", "", true},
		{"trailing_separator", "dir/", "", true},
		{"nul_byte", "a\x00b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeFileName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDestinationPath(t *testing.T) {
	dir := t.TempDir()

	path, err := DestinationPath(dir, "../escape.txt", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), path)

	path, err = DestinationPath(dir, "../escape.txt", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "../escape.txt"), path)

	_, err = DestinationPath(dir, "..", true)
	assert.ErrorIs(t, err, ErrUnsafeFileName)
}
