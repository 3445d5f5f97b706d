package engine

import (
	"fmt"

	"lspedit/logger"
	"lspedit/types"
)

// Engine applies text edits to host buffers. It keeps no per-buffer state;
// callers must serialize batches that target the same buffer.
type Engine struct {
	config EngineConfig
}

func NewEngine(config EngineConfig) *Engine {
	logger.Debug("engine: using %s strategy", config.Strategy)
	return &Engine{config: config}
}

// Strategy returns the write strategy fixed at construction
func (e *Engine) Strategy() Strategy { return e.config.Strategy }

// SetText replaces a buffer-native range (0-indexed rows, byte columns) with
// replacement. Text before rng.Start on the first row and after rng.End on
// the last row is preserved. An empty replacement deletes the range and
// joins the two remnants into one line.
func (e *Engine) SetText(buf Buffer, rng types.Range, replacement []string) error {
	cr, err := CheckRange(buf, rng)
	if err != nil {
		return err
	}
	startCol := min(max(rng.Start.Character, 0), len(cr.StartLine))
	endCol := min(max(rng.End.Character, 0), len(cr.EndLine))
	if cr.StartRow == cr.EndRow && startCol > endCol {
		return &RangeError{Range: rng, Reason: "'start' is higher than 'end' after clamping"}
	}
	return e.setChecked(buf, cr, startCol, endCol, replacement)
}

func (e *Engine) setChecked(buf Buffer, cr *CheckedRange, startCol, endCol int, replacement []string) error {
	switch e.config.Strategy {
	case StrategyLineRebuild:
		return rebuildLines(buf, cr, startCol, endCol, replacement)
	default:
		if err := buf.SetText(cr.StartRow-1, startCol, cr.EndRow-1, endCol, replacement); err != nil {
			return fmt.Errorf("set text: %w", err)
		}
		return nil
	}
}

// rebuildLines writes the range with whole-line operations only.
func rebuildLines(buf Buffer, cr *CheckedRange, startCol, endCol int, replacement []string) error {
	prefix := cr.StartLine[:startCol]
	suffix := cr.EndLine[endCol:]

	var lines []string
	if len(replacement) == 0 {
		lines = []string{prefix + suffix}
	} else {
		lines = make([]string, len(replacement))
		copy(lines, replacement)
		lines[0] = prefix + lines[0]
		lines[len(lines)-1] += suffix
	}

	// Whole-line mutation may drag the cursor along; put it back afterwards
	current, err := buf.IsCurrent()
	if err != nil {
		return fmt.Errorf("current buffer: %w", err)
	}
	var cursor types.Position
	if current {
		if cursor, err = buf.Cursor(); err != nil {
			return fmt.Errorf("get cursor: %w", err)
		}
	}

	// Deleting the lines first may leave the buffer without any line.
	if err := buf.AppendLines(cr.EndRow, lines); err != nil {
		return fmt.Errorf("append lines: %w", err)
	}
	if err := buf.DeleteLines(cr.StartRow, cr.EndRow); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if current {
		return restoreCursor(buf, cursor)
	}
	return nil
}

// restoreCursor writes pos back, clamped into the buffer.
func restoreCursor(buf Buffer, pos types.Position) error {
	lineCount, err := buf.LineCount()
	if err != nil {
		return fmt.Errorf("line count: %w", err)
	}
	pos.Line = clampRow(pos.Line, lineCount)
	line, err := getLine(buf, pos.Line)
	if err != nil {
		return err
	}
	pos.Character = min(max(pos.Character, 0), len(line))
	if err := buf.SetCursor(pos); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
