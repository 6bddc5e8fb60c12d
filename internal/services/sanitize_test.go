package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "hello there", "hello there"},
		{"trims whitespace", "  hi  ", "hi"},
		{"strips tags", "<b>hello</b>", "hello"},
		{"strips script tags", "hi <script>alert(1)</script>", "hi alert(1)"},
		{"keeps unclosed tag", "hi <img src=x", "hi <img src=x"},
		{"bare angle pair is treated as markup", "2 < 3 but > 1", "2  1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeMessage(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeMessageLength(t *testing.T) {
	at, err := sanitizeMessage(strings.Repeat("a", maxMessageLength))
	require.NoError(t, err)
	assert.Len(t, at, maxMessageLength)

	_, err = sanitizeMessage(strings.Repeat("a", maxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	// The limit counts runes, not bytes.
	multibyte, err := sanitizeMessage(strings.Repeat("é", maxMessageLength))
	require.NoError(t, err)
	assert.Equal(t, maxMessageLength, len([]rune(multibyte)))

	// Markup is stripped before measuring: a long message inside tags can
	// still fit.
	wrapped, err := sanitizeMessage("<p>" + strings.Repeat("a", maxMessageLength) + "</p>")
	require.NoError(t, err)
	assert.Len(t, wrapped, maxMessageLength)
}
