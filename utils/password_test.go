package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)

	assert.True(t, CheckPassword(hash, "1234"))
	assert.False(t, CheckPassword(hash, "4321"))
	assert.False(t, CheckPassword("", "1234"))
}

func TestSanitizeText(t *testing.T) {
	tests := map[string]string{
		"  Floss  ":                           "Floss",
		"<b>Brush</b> teeth":                  "Brush teeth",
		"<script>alert(1)</script>Read":       "Read",
		"Tom & Jerry":                         "Tom & Jerry",
		`<a href="javascript:x()">Stretch</a>`: "Stretch",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeText(in), in)
	}
}
