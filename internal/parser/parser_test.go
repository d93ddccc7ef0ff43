package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tsh/internal/parser"
)

func TestTokenizeSplitsOnWhitespace(t *testing.T) {
	argv, bg := parser.Tokenize("echo hello world")
	assert.Equal(t, []string{"echo", "hello", "world"}, argv)
	assert.False(t, bg)
}

func TestTokenizeDetectsTrailingBackground(t *testing.T) {
	argv, bg := parser.Tokenize("sleep 5 &")
	assert.Equal(t, []string{"sleep", "5"}, argv)
	assert.True(t, bg)
}

func TestTokenizeHonorsSingleQuoteGrouping(t *testing.T) {
	argv, bg := parser.Tokenize("echo 'a b c'")
	assert.Equal(t, []string{"echo", "a b c"}, argv)
	assert.False(t, bg)
}

func TestTokenizeCollapsesRepeatedWhitespace(t *testing.T) {
	argv, _ := parser.Tokenize("ls    -la   /tmp")
	assert.Equal(t, []string{"ls", "-la", "/tmp"}, argv)
}

func TestTokenizeEmptyLineYieldsNoTokens(t *testing.T) {
	argv, bg := parser.Tokenize("   ")
	assert.Empty(t, argv)
	assert.False(t, bg)
}

func TestTokenizeAmpersandWithoutSpaceIsNotBackground(t *testing.T) {
	argv, bg := parser.Tokenize("echo a&b")
	assert.Equal(t, []string{"echo", "a&b"}, argv)
	assert.False(t, bg)
}
