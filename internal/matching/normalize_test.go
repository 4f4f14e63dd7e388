package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "John SMITH", "john smith"},
		{"diacritics folded", "Müller", "mueller"},
		{"accents stripped", "José García", "jose garcia"},
		{"punctuation removed", "O'Brien, Jr.", "o brien"},
		{"honorifics dropped", "Dr. John Smith III", "john smith"},
		{"whitespace collapsed", "  john   smith  ", "john smith"},
		{"empty", "", ""},
		{"only affixes", "Mr. Jr.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Dr. José O'Brien Jr.", "Müller, Hans", "plain name"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}
