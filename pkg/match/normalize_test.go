package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"photos/2024/**", "photos/2024/**"},
		{`photos\2024\**`, "photos/2024/**"},
		{`img\**\*.png`, "img/**/*.png"},
		{`raw/file[*].txt`, `raw/file[*].txt`},
		{`raw\\x`, "raw//x"},
		{`trailing\`, "trailing/"},
		{`a\b\[c]`, "a/b/[c]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePattern(tt.in))
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"", false},
		{"path/to/file.txt", false},
		{".hidden/file.txt", true},
		{"path/.git/config", true},
		{"path/to/.keep", true},
		{"path/to/file.txt.", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHidden(tt.rel))
		})
	}
}
