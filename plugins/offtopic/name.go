package offtopic

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Channel names are stored with decorative unicode stand-ins for characters
// a chat title cannot carry verbatim. ASCII input is translated on the way
// in; matching reverses the translation first.

const (
	minNameLen = 2
	maxNameLen = 96
)

const allowedPunct = "!?'`-"

var (
	toFancy   = map[rune]rune{}
	fromFancy = map[rune]rune{}
)

func init() {
	// A..Z -> MATHEMATICAL SANS-SERIF CAPITAL A..Z
	for i := rune(0); i < 26; i++ {
		toFancy['A'+i] = 0x1D5A0 + i
		fromFancy[0x1D5A0+i] = 'A' + i
	}
	toFancy['!'] = 'ǃ'  // LATIN LETTER RETROFLEX CLICK
	toFancy['?'] = '？' // FULLWIDTH QUESTION MARK
	toFancy['\''] = '’'
	toFancy['`'] = '’'
	fromFancy['ǃ'] = '!'
	fromFancy['？'] = '?'
	fromFancy['’'] = '\''
}

// ParseName joins command arguments into a single channel name, validates
// charset and length, and applies the fancy translation.
func ParseName(parts []string) (string, error) {
	joined := strings.Join(parts, "-")
	if n := utf8.RuneCountInString(joined); n < minNameLen || n > maxNameLen {
		return "", fmt.Errorf("channel name must be between %d and %d characters long", minNameLen, maxNameLen)
	}
	var b strings.Builder
	for _, r := range joined {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune(allowedPunct, r) {
			return "", fmt.Errorf("channel name contains an invalid character: %q", r)
		}
		if t, ok := toFancy[r]; ok {
			r = t
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// PlainName reverses the fancy translation back to plain ASCII.
func PlainName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if p, ok := fromFancy[r]; ok {
			r = p
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeName is the canonical form used for similarity matching.
func normalizeName(name string) string {
	return strings.ToLower(PlainName(name))
}
