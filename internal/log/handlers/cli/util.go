package cli

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ansiEscapes matches the SGR sequences emitted by fatih/color.
var ansiEscapes = regexp.MustCompile("\x1b\\[[0-9;]*m")

// EscapeAwareRuneCountInString counts the runes of str ignoring
// the terminal color escape sequences.
func EscapeAwareRuneCountInString(str string) int {
	return utf8.RuneCountInString(ansiEscapes.ReplaceAllString(str, ""))
}

// RightPad pads str with spaces so that it is length runes wide when
// printed. Longer strings are returned unchanged.
func RightPad(str string, length int) string {
	count := EscapeAwareRuneCountInString(str)
	if count >= length {
		return str
	}
	return str + strings.Repeat(" ", length-count)
}
