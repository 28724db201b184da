package markup

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	namePrefix  = "__"
	spaceEscape = "_____"
)

// EscapeName converts a tag to an XML element name. Spaces become "_____"
// and names that start with a digit, '.', '-' or "__" gain a "__" prefix.
// Tags that would not read back unchanged are rejected with ErrInvalidName.
func EscapeName(tag string) (string, error) {
	if tag == "" {
		return "", fmt.Errorf("%w: empty tag", ErrInvalidName)
	}
	name := strings.ReplaceAll(tag, " ", spaceEscape)
	if first, _ := utf8.DecodeRuneInString(name); strings.HasPrefix(name, namePrefix) || !isNameStart(first) {
		name = namePrefix + name
	}
	if !isXMLName(name) || UnescapeName(name) != tag {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, tag)
	}
	return name, nil
}

// UnescapeName reverses EscapeName.
func UnescapeName(name string) string {
	name = strings.TrimPrefix(name, namePrefix)
	return strings.ReplaceAll(name, spaceEscape, " ")
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isXMLName(name string) bool {
	for i, r := range name {
		if i == 0 {
			if !isNameStart(r) {
				return false
			}
			continue
		}
		if !isNameStart(r) && !unicode.IsDigit(r) && r != '-' && r != '.' {
			return false
		}
	}
	return true
}
