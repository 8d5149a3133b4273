package limits

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamingConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant int
		expected int
	}{
		{"ChunkSize", ChunkSize, 32768},
		{"FlushInterval", FlushInterval, 1048576},
		{"MaxTextFrame", MaxTextFrame, 65535},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.constant != tc.expected {
				t.Errorf("%s = %d; want %d", tc.name, tc.constant, tc.expected)
			}
		})
	}
}

func TestFlushIntervalIsWholeChunks(t *testing.T) {
	// Full chunks land exactly on every flush boundary
	assert.Zero(t, FlushInterval%ChunkSize)
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText(""))
	assert.NoError(t, ValidateText("sir"))
	assert.NoError(t, ValidateText(strings.Repeat("a", MaxTextFrame)))

	err := ValidateText(strings.Repeat("a", MaxTextFrame+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
	assert.Contains(t, err.Error(), "65536")
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "report.pdf", nil},
		{"unicode", "отчёт.txt", nil},
		{"empty", "", ErrFileNameEmpty},
		{"max_length", strings.Repeat("n", MaxTextFrame), nil},
		{"too_long", strings.Repeat("n", MaxTextFrame+1), ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(0))
	assert.NoError(t, ValidateFileSize(10<<20))
	assert.ErrorIs(t, ValidateFileSize(-1), ErrNegativeFileSize)
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port  int
		valid bool
	}{
		{0, false},
		{1, true},
		{5000, true},
		{65535, true},
		{65536, false},
		{-5, false},
	}

	for _, tt := range tests {
		err := ValidatePort(tt.port)
		if tt.valid {
			assert.NoError(t, err, "port %d", tt.port)
		} else {
			assert.ErrorIs(t, err, ErrInvalidPort, "port %d", tt.port)
		}
	}
}
