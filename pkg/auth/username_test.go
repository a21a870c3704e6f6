package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "Alice Smith", "alice-smith"},
		{"already lowercase", "bob", "bob"},
		{"repeated separators", "Jean --  Luc", "jean-luc"},
		{"leading and trailing junk", "  Alice  ", "alice"},
		{"punctuation", "O'Brien, Pat", "o-brien-pat"},
		{"digits kept", "Agent 007", "agent-007"},
		{"empty", "", ""},
		{"only separators", "-- --", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestDeriveUsername(t *testing.T) {
	pattern := regexp.MustCompile(`^alice-smith-[a-z0-9]{6}$`)

	username, err := DeriveUsername("Alice Smith")
	require.NoError(t, err)
	assert.True(t, pattern.MatchString(username), "unexpected username %q", username)
}

func TestDeriveUsernameEmptyName(t *testing.T) {
	username, err := DeriveUsername("")
	require.NoError(t, err)
	assert.Len(t, username, 6)
	assert.False(t, strings.HasPrefix(username, "-"))
}

func TestDeriveUsernameSuffixVaries(t *testing.T) {
	a, err := DeriveUsername("Alice")
	require.NoError(t, err)
	b, err := DeriveUsername("Alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
