package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNameList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "only commas",
			input:    " , ,, ",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "farm",
			expected: []string{"farm"},
		},
		{
			name:     "varied spacing",
			input:    "farm,  forest , market",
			expected: []string{"farm", "forest", "market"},
		},
		{
			name:     "mixed case",
			input:    "Farm,FOREST",
			expected: []string{"farm", "forest"},
		},
		{
			name:     "duplicates keep first position",
			input:    "market, farm, Market, farm",
			expected: []string{"market", "farm"},
		},
		{
			name:     "trailing comma",
			input:    "forest,",
			expected: []string{"forest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseNameList(tt.input))
		})
	}
}
