package auth

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

const (
	usernameSuffixLength = 6
	suffixAlphabet       = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Slugify lowercases a display name and collapses anything that is not a
// letter or digit into single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// DeriveUsername builds a username for a provisioned account: the
// slugified name plus a random six character alphanumeric suffix.
// Uniqueness is enforced by the database, not here.
func DeriveUsername(name string) (string, error) {
	suffix, err := randomSuffix(usernameSuffixLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate username suffix: %w", err)
	}

	slug := Slugify(name)
	if slug == "" {
		return suffix, nil
	}
	return slug + "-" + suffix, nil
}

func randomSuffix(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf), nil
}
