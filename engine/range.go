package engine

import (
	"fmt"

	"lspedit/text"
	"lspedit/types"
)

// CheckRange resolves rng against the buffer. Rows are clamped to the
// existing lines and the text of the start and end rows is fetched.
// Nothing is mutated.
func CheckRange(buf Buffer, rng types.Range) (*CheckedRange, error) {
	if !types.IsPositionBefore(rng.Start, rng.End) {
		return nil, &RangeError{Range: rng, Reason: "'start' is higher than 'end'"}
	}

	lineCount, err := buf.LineCount()
	if err != nil {
		return nil, fmt.Errorf("line count: %w", err)
	}
	if lineCount < 1 {
		return nil, &RangeError{Range: rng, Reason: "buffer has no lines"}
	}

	startRow := clampRow(rng.Start.Line, lineCount)
	endRow := clampRow(rng.End.Line, lineCount)
	if startRow > endRow {
		return nil, &RangeError{Range: rng, Reason: fmt.Sprintf("rows %d-%d out of order after clamping", startRow, endRow)}
	}

	startLine, err := getLine(buf, startRow)
	if err != nil {
		return nil, err
	}
	endLine := startLine
	if endRow != startRow {
		if endLine, err = getLine(buf, endRow); err != nil {
			return nil, err
		}
	}

	return &CheckedRange{
		StartRow:  startRow + 1,
		EndRow:    endRow + 1,
		StartLine: startLine,
		EndLine:   endLine,
	}, nil
}

// ConvertRange translates the character offsets of rng from one offset
// encoding to another using the current buffer content. Positions on rows
// past the end of the buffer are measured against an empty line.
func ConvertRange(buf Buffer, rng types.Range, from, to types.OffsetEncoding) (types.Range, error) {
	if from == to {
		return rng, nil
	}

	startLine, err := getLine(buf, rng.Start.Line)
	if err != nil {
		return types.Range{}, err
	}
	endLine := startLine
	if rng.End.Line != rng.Start.Line {
		if endLine, err = getLine(buf, rng.End.Line); err != nil {
			return types.Range{}, err
		}
	}

	return types.NewRange(
		rng.Start.Line, text.ConvertIndex(startLine, rng.Start.Character, from, to),
		rng.End.Line, text.ConvertIndex(endLine, rng.End.Character, from, to),
	), nil
}

// getLine returns the 0-indexed row, or "" when the row does not exist
func getLine(buf Buffer, row int) (string, error) {
	if row < 0 {
		return "", nil
	}
	lines, err := buf.Lines(row, row+1)
	if err != nil {
		return "", fmt.Errorf("get line %d: %w", row, err)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

func clampRow(row, lineCount int) int {
	return max(0, min(row, lineCount-1))
}
