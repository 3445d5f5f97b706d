package engine

import (
	"fmt"

	"lspedit/text"
	"lspedit/types"
)

// GetCursor returns the cursor of the current window with its character
// measured in enc.
func GetCursor(buf Buffer, enc types.OffsetEncoding) (types.Position, error) {
	pos, err := buf.Cursor()
	if err != nil {
		return types.Position{}, fmt.Errorf("get cursor: %w", err)
	}
	line, err := getLine(buf, pos.Line)
	if err != nil {
		return types.Position{}, err
	}
	pos.Character = text.FromUTF8Index(line, pos.Character, enc)
	return pos, nil
}

// SetCursor moves the cursor of the current window to pos, whose character
// is measured in enc. The position is clamped into the buffer.
func SetCursor(buf Buffer, pos types.Position, enc types.OffsetEncoding) error {
	lineCount, err := buf.LineCount()
	if err != nil {
		return fmt.Errorf("line count: %w", err)
	}
	pos.Line = clampRow(pos.Line, lineCount)
	line, err := getLine(buf, pos.Line)
	if err != nil {
		return err
	}
	pos.Character = text.ToUTF8Index(line, pos.Character, enc)
	if err := buf.SetCursor(pos); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
