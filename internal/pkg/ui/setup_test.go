package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("http://localhost:11434/api/chat"))
	assert.NoError(t, validateURL("https://api.deepseek.com/v1"))
	assert.Error(t, validateURL("localhost:11434"))
	assert.Error(t, validateURL("ftp://example.com"))
	assert.Error(t, validateURL(""))
}

func TestValidateOptionalURL(t *testing.T) {
	assert.NoError(t, validateOptionalURL(""))
	assert.NoError(t, validateOptionalURL("  "))
	assert.Error(t, validateOptionalURL("not a url"))
}

func TestValidateModel(t *testing.T) {
	assert.NoError(t, validateModel("llama3"))
	assert.Error(t, validateModel("   "))
}
