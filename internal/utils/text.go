package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateText trims surrounding whitespace and caps text at maximumBytes without splitting a UTF-8 sequence.
// Invalid sequences already present in text are replaced with the Unicode replacement character.
func TruncateText(text string, maximumBytes int) string {
	trimmedText := strings.ToValidUTF8(strings.TrimSpace(text), string(utf8.RuneError))
	if maximumBytes <= 0 {
		return ""
	}
	if len(trimmedText) <= maximumBytes {
		return trimmedText
	}

	cutIndex := maximumBytes
	for cutIndex > 0 && !utf8.RuneStart(trimmedText[cutIndex]) {
		cutIndex--
	}
	return trimmedText[:cutIndex]
}
