package engine

import "lspedit/types"

// Buffer defines the host operations the engine needs on one resolved buffer.
// Implemented by buffer.NvimBuffer for Neovim integration.
//
// Every call is a round trip to the editor. The engine re-reads line count
// and content before each structural decision instead of caching them.
type Buffer interface {
	ID() int
	LineCount() (int, error)
	Lines(start, end int) ([]string, error)                               // 0-indexed, end exclusive, -1 = last line
	AppendLines(after int, lines []string) error                          // Append below 1-indexed row after (0 = top)
	DeleteLines(from, to int) error                                       // 1-indexed, inclusive
	SetText(startRow, startCol, endRow, endCol int, lines []string) error // 0-indexed rows, byte columns
	IsCurrent() (bool, error)
	Cursor() (types.Position, error) // 0-indexed line, byte column
	SetCursor(pos types.Position) error
	Marks() ([]types.Mark, error)
	SetMark(mark types.Mark) error
	Options() (types.EOLOptions, error)
}

// Strategy selects how a single range is written to the buffer
type Strategy int

const (
	// StrategyDirectReplace uses the host's atomic byte-range replace.
	// Annotations anchored to untouched text on the boundary lines survive.
	StrategyDirectReplace Strategy = iota
	// StrategyLineRebuild splices the boundary remnants into whole lines and
	// swaps them in with append + delete.
	StrategyLineRebuild
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirectReplace:
		return "direct_replace"
	case StrategyLineRebuild:
		return "line_rebuild"
	default:
		return "unknown"
	}
}

type EngineConfig struct {
	Strategy Strategy // Chosen once per host connection
}

// CheckedRange is a range resolved against the current buffer content
type CheckedRange struct {
	StartRow  int // 1-indexed
	EndRow    int // 1-indexed
	StartLine string
	EndLine   string
}
