package assist

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits in runes.
const (
	MaxTextRunes        = 12000
	MaxInstructionRunes = 2000
)

// ansiPattern matches CSI sequences, terminated OSC sequences of up to 512
// bytes and two-byte escapes. An OSC introducer with no terminator in reach
// matches as a two-byte escape, so the text after it survives.
var ansiPattern = regexp.MustCompile(`\x1b(?:\[[0-?]*[ -/]*[@-~]|\][^\x07\x1b]{0,512}(?:\x07|\x1b\\)|[@-_])`)

// Sanitize makes user text safe to embed in a prompt: invalid UTF-8,
// terminal escape sequences, control and bidi-override characters are
// removed, line endings are normalized to \n, and the result is capped at
// max runes (no cap when max <= 0).
func Sanitize(s string, max int) string {
	s = strings.ToValidUTF8(s, "")
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Bidi_Control, r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if max > 0 && utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}

// tail returns at most n runes from the end of s.
func tail(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[len(runes)-n:])
}
