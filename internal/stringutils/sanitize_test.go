package stringutils_test

import (
	"testing"

	"github.com/habiliai/personachat/internal/stringutils"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "null byte",
			input:    "act like\u0000 my mentor",
			expected: "act like my mentor",
		},
		{
			name:     "control characters",
			input:    "how\u0001\u001f\u007f do I scale?",
			expected: "how do I scale?",
		},
		{
			name:     "whitespace is kept",
			input:    "line one\nline\ttwo\r",
			expected: "line one\nline\ttwo\r",
		},
		{
			name:     "c1 control characters",
			input:    "grow\u0085th",
			expected: "growth",
		},
		{
			name:     "invalid utf-8",
			input:    "bad\xffbyte",
			expected: "badbyte",
		},
		{
			name:     "unicode text",
			input:    "멘토처럼 행동해줘 🙂",
			expected: "멘토처럼 행동해줘 🙂",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringutils.SanitizeText(tc.input))
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, stringutils.IsBlank(""))
	assert.True(t, stringutils.IsBlank(" \t\n"))
	assert.True(t, stringutils.IsBlank("\u0000\u0001"))
	assert.False(t, stringutils.IsBlank(" hi "))
}
