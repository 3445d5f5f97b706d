package engine

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"

	"lspedit/logger"
	"lspedit/text"
	"lspedit/types"
)

// localMarkPattern matches the marks restored after a batch
var localMarkPattern = regexp.MustCompile(`^[a-z]$`)

// noCursor sorts before every edit end, so it is never fixed up
var noCursor = types.Position{Line: -1, Character: -1}

type indexedEdit struct {
	edit  types.TextEdit
	index int
}

// sortEdits normalizes every range and orders the edits bottom-up.
// Edits sharing a start position run in reverse input order, so the first
// one ends up first in the buffer.
func sortEdits(edits []types.TextEdit) []indexedEdit {
	sorted := make([]indexedEdit, len(edits))
	for i, edit := range edits {
		edit.Range = types.NormalizeRange(edit.Range)
		sorted[i] = indexedEdit{edit: edit, index: i}
	}

	slices.SortFunc(sorted, func(a, b indexedEdit) int {
		as, bs := a.edit.Range.Start, b.edit.Range.Start
		if as == bs {
			return cmp.Compare(b.index, a.index)
		}
		if types.IsPositionBefore(as, bs) {
			return 1
		}
		return -1
	})
	return sorted
}

// ApplyTextEdits applies a batch of protocol edits to buf as one logical
// operation. Character offsets in the edits are measured in enc.
//
// Edits run bottom-up so no edit shifts the coordinates of one not yet
// applied. Lowercase marks are clamped back into the buffer afterwards and,
// when buf is the current buffer, the cursor follows the text it was on.
// A failing host call aborts the batch; edits already applied stay.
func (e *Engine) ApplyTextEdits(buf Buffer, edits []types.TextEdit, enc types.OffsetEncoding) error {
	return e.applyTextEdits(buf, edits, enc, true)
}

// applyTextEdits runs the batch. trim drops the trailing empty line left
// behind when the buffer is written with a final newline anyway.
func (e *Engine) applyTextEdits(buf Buffer, edits []types.TextEdit, enc types.OffsetEncoding, trim bool) error {
	defer logger.Trace("engine.ApplyTextEdits")()

	// An empty batch leaves marks and the final line alone too
	if len(edits) == 0 {
		return nil
	}
	if enc == "" {
		enc = types.DefaultOffsetEncoding
	}
	logger.Debug("engine: applying %d edits to buffer %d (%s)", len(edits), buf.ID(), enc)

	sorted := sortEdits(edits)

	allMarks, err := buf.Marks()
	if err != nil {
		return fmt.Errorf("list marks: %w", err)
	}
	var marks []types.Mark
	for _, m := range allMarks {
		if localMarkPattern.MatchString(m.Name) {
			marks = append(marks, m)
		}
	}

	cursor := noCursor
	current, err := buf.IsCurrent()
	if err != nil {
		return fmt.Errorf("current buffer: %w", err)
	}
	if current {
		if cursor, err = buf.Cursor(); err != nil {
			return fmt.Errorf("get cursor: %w", err)
		}
	}
	cursorFixed := false

	for _, item := range sorted {
		native, replacement, err := e.applyOne(buf, item.edit, enc)
		if err != nil {
			return fmt.Errorf("edit %d %s: %w", item.index, item.edit.Range, err)
		}
		if native == nil {
			continue
		}

		// The edit ends at or before the cursor: move it with the text
		if types.IsPositionBefore(native.End, cursor) {
			last := replacement[len(replacement)-1]
			if native.End.Line == cursor.Line {
				cursor.Character += -native.End.Character + len(last)
				if len(replacement) == 1 {
					cursor.Character += native.Start.Character
				}
			}
			cursor.Line += len(replacement) - (native.End.Line - native.Start.Line + 1)
			cursorFixed = true
		}
	}

	lineCount, err := buf.LineCount()
	if err != nil {
		return fmt.Errorf("line count: %w", err)
	}

	for _, m := range marks {
		m.Row = max(1, min(m.Row, lineCount))
		line, err := getLine(buf, m.Row-1)
		if err != nil {
			return err
		}
		m.Col = max(0, min(m.Col, len(line)))
		if err := buf.SetMark(m); err != nil {
			return fmt.Errorf("set mark %q: %w", m.Name, err)
		}
	}

	if cursorFixed && cursor.Line >= 0 && cursor.Line < lineCount && cursor.Character >= 0 {
		line, err := getLine(buf, cursor.Line)
		if err != nil {
			return err
		}
		if cursor.Character <= len(line) {
			if err := buf.SetCursor(cursor); err != nil {
				return fmt.Errorf("set cursor: %w", err)
			}
		} else {
			logger.Debug("engine: fixed cursor %s past end of line, leaving it", cursor)
		}
	}

	if !trim {
		return nil
	}
	return trimFinalEmptyLine(buf)
}

// applyOne writes a single normalized edit. It returns the buffer-native
// range that was replaced together with the replacement lines, or a nil
// range when the edit was a pure append past the last line.
func (e *Engine) applyOne(buf Buffer, edit types.TextEdit, enc types.OffsetEncoding) (*types.Range, []string, error) {
	replacement := text.SplitLines(edit.NewText)
	rng := edit.Range

	lineCount, err := buf.LineCount()
	if err != nil {
		return nil, nil, fmt.Errorf("line count: %w", err)
	}

	if rng.Start.Line >= lineCount {
		if err := buf.AppendLines(lineCount, replacement); err != nil {
			return nil, nil, fmt.Errorf("append lines: %w", err)
		}
		return nil, replacement, nil
	}

	cr, err := CheckRange(buf, rng)
	if err != nil {
		return nil, nil, err
	}

	startCol := text.ToUTF8Index(cr.StartLine, rng.Start.Character, enc)
	var endCol int
	switch {
	case rng.End.Line >= lineCount:
		// Some servers describe the range one line past the buffer end
		endCol = len(cr.EndLine)
	case rng.End.Character > text.Length(cr.EndLine, enc):
		endCol = len(cr.EndLine)
		if len(replacement) > 1 && replacement[len(replacement)-1] == "" {
			// The line break it replaces is already the line end
			replacement = replacement[:len(replacement)-1]
		}
	default:
		endCol = text.ToUTF8Index(cr.EndLine, rng.End.Character, enc)
	}

	native := types.NewRange(cr.StartRow-1, startCol, cr.EndRow-1, endCol)
	logger.Debug("engine: edit %s -> native %s, %d lines", rng, native, len(replacement))

	if err := e.setChecked(buf, cr, startCol, endCol, replacement); err != nil {
		return nil, nil, err
	}
	return &native, replacement, nil
}

// trimFinalEmptyLine drops the trailing empty line when the buffer is
// written with a final line terminator anyway.
func trimFinalEmptyLine(buf Buffer) error {
	opts, err := buf.Options()
	if err != nil {
		return fmt.Errorf("buffer options: %w", err)
	}
	if !opts.RequiresFinalNewline() {
		return nil
	}

	lineCount, err := buf.LineCount()
	if err != nil {
		return fmt.Errorf("line count: %w", err)
	}
	if lineCount < 2 {
		return nil
	}
	last, err := getLine(buf, lineCount-1)
	if err != nil {
		return err
	}
	if last != "" {
		return nil
	}
	if err := buf.DeleteLines(lineCount, lineCount); err != nil {
		return fmt.Errorf("delete final line: %w", err)
	}
	return nil
}
