package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
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
			name:     "split of an empty query value",
			input:    []string{""},
			expected: []string{},
		},
		{
			name:     "case-insensitive duplicates collapse",
			input:    []string{" Expired", "valid", "EXPIRED"},
			expected: []string{"expired", "valid"},
		},
		{
			name:     "blank entries dropped",
			input:    []string{"almost_expired", " ", "", "valid"},
			expected: []string{"almost_expired", "valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
