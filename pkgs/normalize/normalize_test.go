package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello world", "hello world"},
		{"leading and trailing space", "  hello  ", "hello"},
		{"interior run collapses", "hello   \t  world", "hello world"},
		{"crlf becomes single space", "line one\r\nline two", "line one line two"},
		{"bare cr", "line one\rline two", "line one line two"},
		{"mixed newlines and tabs", "a\n\n\tb\r\n c", "a b c"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextNFC(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) composes to U+00E9.
	decomposed := "café"
	composed := "café"
	assert.Equal(t, composed, Text(decomposed))
	assert.Equal(t, Text(composed), Text(decomposed))
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"  hello \r\n world  ",
		"café  au lait",
		"already normal",
		"",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "Text must be idempotent for %q", in)
	}
}

func TestAuthor(t *testing.T) {
	assert.Equal(t, "alice", Author("  Alice "))
	assert.Equal(t, "bob_123", Author("BOB_123"))
	assert.Equal(t, "", Author("   "))
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "btc", TokenKey(" BTC "))
	assert.Equal(t, TokenKey("Eth"), TokenKey("  eth"))
}
