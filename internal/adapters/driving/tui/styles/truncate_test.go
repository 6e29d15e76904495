package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdefghij", 7, "abcd..."},
		{"abcdef", 2, "ab"},
		{"abc", -1, ""},
		{"데이터베이스", 5, "데..."},
		{strings.Repeat("휴가", 10), 9, "휴가휴..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.width)

		assert.Equal(t, tt.want, got, "%q to %d", tt.in, tt.width)
		assert.LessOrEqual(t, lipgloss.Width(got), max(tt.width, 0))
	}
}
