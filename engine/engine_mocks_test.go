package engine

import (
	"errors"
	"fmt"
	"slices"

	"lspedit/types"
)

var errHost = errors.New("host unavailable")

// --- Mock implementations ---

// mockBuffer implements the Buffer interface in memory with Neovim's
// semantics for line and text replacement.
type mockBuffer struct {
	id      int
	lines   []string
	cursor  types.Position
	current bool
	marks   []types.Mark
	options types.EOLOptions

	// Fail the named method with errHost after failAfter successful calls
	failMethod string
	failAfter  int

	// Track method calls
	calls       []string
	setCursors  []types.Position
	setMarks    []types.Mark
	minLines    int
	setTextArgs [][4]int
}

func newMockBuffer(lines ...string) *mockBuffer {
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &mockBuffer{
		id:       1,
		lines:    slices.Clone(lines),
		current:  true,
		minLines: len(lines),
	}
}

func (b *mockBuffer) record(method string) error {
	b.calls = append(b.calls, method)
	if method == b.failMethod {
		if b.failAfter == 0 {
			return fmt.Errorf("%s: %w", method, errHost)
		}
		b.failAfter--
	}
	return nil
}

func (b *mockBuffer) count(method string) int {
	n := 0
	for _, c := range b.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (b *mockBuffer) mutations() []string {
	var out []string
	for _, c := range b.calls {
		switch c {
		case "AppendLines", "DeleteLines", "SetText":
			out = append(out, c)
		}
	}
	return out
}

func (b *mockBuffer) trackMin() {
	b.minLines = min(b.minLines, len(b.lines))
}

func (b *mockBuffer) ID() int { return b.id }

func (b *mockBuffer) LineCount() (int, error) {
	if err := b.record("LineCount"); err != nil {
		return 0, err
	}
	return len(b.lines), nil
}

func (b *mockBuffer) Lines(start, end int) ([]string, error) {
	if err := b.record("Lines"); err != nil {
		return nil, err
	}
	if end < 0 || end > len(b.lines) {
		end = len(b.lines)
	}
	if start < 0 || start >= end {
		return []string{}, nil
	}
	return slices.Clone(b.lines[start:end]), nil
}

func (b *mockBuffer) AppendLines(after int, lines []string) error {
	if err := b.record("AppendLines"); err != nil {
		return err
	}
	if after < 0 || after > len(b.lines) {
		return fmt.Errorf("append after %d: index out of bounds", after)
	}
	b.lines = slices.Insert(slices.Clone(b.lines), after, lines...)
	return nil
}

func (b *mockBuffer) DeleteLines(from, to int) error {
	if err := b.record("DeleteLines"); err != nil {
		return err
	}
	if from < 1 || to > len(b.lines) || from > to {
		return fmt.Errorf("delete %d..%d: index out of bounds", from, to)
	}
	b.lines = slices.Delete(slices.Clone(b.lines), from-1, to)
	b.trackMin()
	if len(b.lines) == 0 {
		// Neovim always keeps one line
		b.lines = []string{""}
	}
	return nil
}

func (b *mockBuffer) SetText(startRow, startCol, endRow, endCol int, lines []string) error {
	if err := b.record("SetText"); err != nil {
		return err
	}
	b.setTextArgs = append(b.setTextArgs, [4]int{startRow, startCol, endRow, endCol})
	if startRow < 0 || endRow >= len(b.lines) || startRow > endRow {
		return fmt.Errorf("set text rows %d..%d: out of range", startRow, endRow)
	}
	if startCol < 0 || startCol > len(b.lines[startRow]) || endCol < 0 || endCol > len(b.lines[endRow]) {
		return fmt.Errorf("set text cols %d..%d: out of range", startCol, endCol)
	}
	if startRow == endRow && startCol > endCol {
		return fmt.Errorf("set text: start is higher than end")
	}

	if len(lines) == 0 {
		lines = []string{""}
	}
	replaced := slices.Clone(lines)
	replaced[0] = b.lines[startRow][:startCol] + replaced[0]
	replaced[len(replaced)-1] += b.lines[endRow][endCol:]

	next := slices.Clone(b.lines[:startRow])
	next = append(next, replaced...)
	next = append(next, b.lines[endRow+1:]...)
	b.lines = next
	return nil
}

func (b *mockBuffer) IsCurrent() (bool, error) {
	if err := b.record("IsCurrent"); err != nil {
		return false, err
	}
	return b.current, nil
}

func (b *mockBuffer) Cursor() (types.Position, error) {
	if err := b.record("Cursor"); err != nil {
		return types.Position{}, err
	}
	return b.cursor, nil
}

func (b *mockBuffer) SetCursor(pos types.Position) error {
	if err := b.record("SetCursor"); err != nil {
		return err
	}
	if pos.Line < 0 || pos.Line >= len(b.lines) || pos.Character < 0 || pos.Character > len(b.lines[pos.Line]) {
		return fmt.Errorf("cursor position %s outside buffer", pos)
	}
	b.cursor = pos
	b.setCursors = append(b.setCursors, pos)
	return nil
}

func (b *mockBuffer) Marks() ([]types.Mark, error) {
	if err := b.record("Marks"); err != nil {
		return nil, err
	}
	return slices.Clone(b.marks), nil
}

func (b *mockBuffer) SetMark(mark types.Mark) error {
	if err := b.record("SetMark"); err != nil {
		return err
	}
	if mark.Row < 1 || mark.Row > len(b.lines) {
		return fmt.Errorf("mark %q row %d outside buffer", mark.Name, mark.Row)
	}
	b.setMarks = append(b.setMarks, mark)
	for i := range b.marks {
		if b.marks[i].Name == mark.Name {
			b.marks[i] = mark
			return nil
		}
	}
	b.marks = append(b.marks, mark)
	return nil
}

func (b *mockBuffer) Options() (types.EOLOptions, error) {
	if err := b.record("Options"); err != nil {
		return types.EOLOptions{}, err
	}
	return b.options, nil
}

func (b *mockBuffer) mark(name string) (types.Mark, bool) {
	for _, m := range b.marks {
		if m.Name == name {
			return m, true
		}
	}
	return types.Mark{}, false
}
