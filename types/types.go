package types

import (
	"errors"
	"fmt"
	"strings"
)

// Position is a zero-based line/character location. Character is measured
// in whatever offset encoding the caller states; buffer-native positions use
// byte offsets.
type Position struct {
	Line      int `json:"line" msgpack:"line"`
	Character int `json:"character" msgpack:"character"`
}

// Range spans Start to End. Ranges coming from a language server may be
// reversed; use NormalizeRange before relying on Start <= End.
type Range struct {
	Start Position `json:"start" msgpack:"start"`
	End   Position `json:"end" msgpack:"end"`
}

// TextEdit replaces Range with NewText. NewText may contain \n, \r\n or \r
// line breaks.
type TextEdit struct {
	Range   Range  `json:"range" msgpack:"range"`
	NewText string `json:"newText" msgpack:"newText"`
}

// Mark is a named buffer mark
type Mark struct {
	Name string
	Row  int // 1-indexed
	Col  int // 0-indexed byte column
}

// EOLOptions holds the buffer options that decide whether a file must end
// with a line terminator.
type EOLOptions struct {
	EndOfLine    bool
	FixEndOfLine bool
	Binary       bool
}

// RequiresFinalNewline reports whether the buffer is written with a final
// line terminator, in which case a trailing empty line is an artifact.
func (o EOLOptions) RequiresFinalNewline() bool {
	return o.EndOfLine || (o.FixEndOfLine && !o.Binary)
}

// OffsetEncoding names the unit a character offset is measured in
type OffsetEncoding string

const (
	EncodingUTF8  OffsetEncoding = "utf-8"
	EncodingUTF16 OffsetEncoding = "utf-16"
	EncodingUTF32 OffsetEncoding = "utf-32"
)

// DefaultOffsetEncoding is the encoding mandated by the protocol when the
// client and server did not negotiate another one.
const DefaultOffsetEncoding = EncodingUTF16

var ErrUnknownEncoding = errors.New("unknown offset encoding")

// ParseOffsetEncoding parses an encoding name. The empty string yields the
// protocol default.
func ParseOffsetEncoding(s string) (OffsetEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultOffsetEncoding, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16":
		return EncodingUTF16, nil
	case "utf-32", "utf32", "codepoint":
		return EncodingUTF32, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// NewRange builds a Range from raw coordinates without validating them
func NewRange(startLine, startCharacter, endLine, endCharacter int) Range {
	return Range{
		Start: Position{Line: startLine, Character: startCharacter},
		End:   Position{Line: endLine, Character: endCharacter},
	}
}

// IsPositionBefore returns true if a is before or at the same position as b.
func IsPositionBefore(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character <= b.Character)
}

// NormalizeRange swaps Start and End when End lies strictly before Start.
func NormalizeRange(r Range) Range {
	if r.End.Line < r.Start.Line || (r.End.Line == r.Start.Line && r.End.Character < r.Start.Character) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}
