package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims and lowercases",
			input:    []string{"  CBT  ", "Emdr"},
			expected: []string{"cbt", "emdr"},
		},
		{
			name:     "dedupes case-insensitively preserving order",
			input:    []string{"CBT", "emdr", "cbt", "EMDR"},
			expected: []string{"cbt", "emdr"},
		},
		{
			name:     "drops empty and whitespace-only entries",
			input:    []string{"cbt", "", "   ", "emdr"},
			expected: []string{"cbt", "emdr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTags(tt.input))
		})
	}
}
