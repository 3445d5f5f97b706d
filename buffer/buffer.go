package buffer

import (
	"fmt"

	"github.com/neovim/go-client/nvim"

	"lspedit/types"
)

// NvimBuffer implements engine.Buffer for one Neovim buffer.
// Every method is a single batch round trip; nothing is cached.
type NvimBuffer struct {
	client *nvim.Nvim
	id     nvim.Buffer
}

// NewNvimBuffer binds an already resolved buffer id. Use Host.Resolve to
// turn 0 into the current buffer.
func NewNvimBuffer(client *nvim.Nvim, id nvim.Buffer) *NvimBuffer {
	return &NvimBuffer{client: client, id: id}
}

func (b *NvimBuffer) ID() int { return int(b.id) }

func (b *NvimBuffer) LineCount() (int, error) {
	var count int
	batch := b.client.NewBatch()
	batch.BufferLineCount(b.id, &count)
	if err := batch.Execute(); err != nil {
		return 0, fmt.Errorf("buffer %d line count: %w", b.id, err)
	}
	return count, nil
}

func (b *NvimBuffer) Lines(start, end int) ([]string, error) {
	var lines [][]byte
	batch := b.client.NewBatch()
	batch.BufferLines(b.id, start, end, false, &lines)
	if err := batch.Execute(); err != nil {
		return nil, fmt.Errorf("buffer %d lines %d..%d: %w", b.id, start, end, err)
	}
	return fromBytes(lines), nil
}

func (b *NvimBuffer) AppendLines(after int, lines []string) error {
	batch := b.client.NewBatch()
	batch.SetBufferLines(b.id, after, after, true, toBytes(lines))
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("buffer %d append after %d: %w", b.id, after, err)
	}
	return nil
}

func (b *NvimBuffer) DeleteLines(from, to int) error {
	batch := b.client.NewBatch()
	batch.SetBufferLines(b.id, from-1, to, true, [][]byte{})
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("buffer %d delete %d..%d: %w", b.id, from, to, err)
	}
	return nil
}

func (b *NvimBuffer) SetText(startRow, startCol, endRow, endCol int, lines []string) error {
	batch := b.client.NewBatch()
	batch.SetBufferText(b.id, startRow, startCol, endRow, endCol, toBytes(lines))
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("buffer %d set text (%d,%d)-(%d,%d): %w", b.id, startRow, startCol, endRow, endCol, err)
	}
	return nil
}

func (b *NvimBuffer) IsCurrent() (bool, error) {
	var current nvim.Buffer
	batch := b.client.NewBatch()
	batch.CurrentBuffer(&current)
	if err := batch.Execute(); err != nil {
		return false, fmt.Errorf("current buffer: %w", err)
	}
	return current == b.id, nil
}

// Cursor returns the cursor of the current window (0-indexed line, byte column)
func (b *NvimBuffer) Cursor() (types.Position, error) {
	var cursor [2]int
	batch := b.client.NewBatch()
	batch.WindowCursor(nvim.Window(0), &cursor) // Use 0 for current window
	if err := batch.Execute(); err != nil {
		return types.Position{}, fmt.Errorf("window cursor: %w", err)
	}
	return types.Position{Line: cursor[0] - 1, Character: cursor[1]}, nil
}

func (b *NvimBuffer) SetCursor(pos types.Position) error {
	batch := b.client.NewBatch()
	batch.SetWindowCursor(nvim.Window(0), [2]int{pos.Line + 1, pos.Character})
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("set window cursor %s: %w", pos, err)
	}
	return nil
}

// listMarksLua returns the buffer-local marks with 0-indexed byte columns
const listMarksLua = `
local bufnr = ...
local marks = {}
for _, info in ipairs(vim.fn.getmarklist(bufnr)) do
	table.insert(marks, {
		name = string.sub(info.mark, 2),
		row = info.pos[2],
		col = info.pos[3] - 1,
	})
end
return marks
`

func (b *NvimBuffer) Marks() ([]types.Mark, error) {
	var result []map[string]any
	batch := b.client.NewBatch()
	batch.ExecLua(listMarksLua, &result, int(b.id))
	if err := batch.Execute(); err != nil {
		return nil, fmt.Errorf("buffer %d marks: %w", b.id, err)
	}
	return parseMarks(result), nil
}

func (b *NvimBuffer) SetMark(mark types.Mark) error {
	batch := b.client.NewBatch()
	batch.ExecLua(
		`local bufnr, name, row, col = ...
		vim.fn.setpos("'" .. name, {bufnr, row, col + 1, 0})`,
		nil, int(b.id), mark.Name, mark.Row, mark.Col,
	)
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("buffer %d set mark %q: %w", b.id, mark.Name, err)
	}
	return nil
}

func (b *NvimBuffer) Options() (types.EOLOptions, error) {
	var result map[string]bool
	batch := b.client.NewBatch()
	batch.ExecLua(`
		local bo = vim.bo[...]
		return {endofline = bo.endofline, fixendofline = bo.fixendofline, binary = bo.binary}
	`, &result, int(b.id))
	if err := batch.Execute(); err != nil {
		return types.EOLOptions{}, fmt.Errorf("buffer %d options: %w", b.id, err)
	}
	return types.EOLOptions{
		EndOfLine:    result["endofline"],
		FixEndOfLine: result["fixendofline"],
		Binary:       result["binary"],
	}, nil
}

// parseMarks converts the Lua mark list into marks, dropping malformed entries
func parseMarks(result []map[string]any) []types.Mark {
	marks := make([]types.Mark, 0, len(result))
	for _, m := range result {
		name := getString(m, "name")
		row := getNumber(m, "row")
		col := getNumber(m, "col")
		if name == "" || row < 1 || col < 0 {
			continue
		}
		marks = append(marks, types.Mark{Name: name, Row: row, Col: col})
	}
	return marks
}

func toBytes(lines []string) [][]byte {
	out := make([][]byte, len(lines))
	for i, line := range lines {
		out[i] = []byte(line)
	}
	return out
}

func fromBytes(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = string(line)
	}
	return out
}

// Helper function to safely get string from map
func getString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

// Helper function to safely get number from map, handling both int and float64
func getNumber(m map[string]any, key string) int {
	if val, ok := m[key].(int); ok {
		return val
	}
	if val, ok := m[key].(float64); ok {
		return int(val)
	}
	if val, ok := m[key].(int32); ok {
		return int(val)
	}
	if val, ok := m[key].(int64); ok {
		return int(val)
	}
	if val, ok := m[key].(uint64); ok {
		return int(val)
	}
	return -1
}
