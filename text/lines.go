package text

import "strings"

var lineBreakReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeLineBreaks rewrites \r\n and bare \r line breaks as \n.
func NormalizeLineBreaks(s string) string {
	return lineBreakReplacer.Replace(s)
}

// SplitLines splits text into replacement lines. A trailing line break
// yields a final empty element, so "a\n" becomes ["a", ""].
func SplitLines(s string) []string {
	return strings.Split(NormalizeLineBreaks(s), "\n")
}

// JoinLines joins a slice of strings with newlines.
// Each line gets a trailing \n, which is the line terminator format
// diffmatchpatch line mode expects:
// - ["a", "b"] → "a\nb\n" (2 lines)
// - ["a", ""] → "a\n\n" (2 lines, second is empty)
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
