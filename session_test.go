package main

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lspedit/engine"
	"lspedit/types"
)

// memBuffer is a minimal in-memory engine.Buffer that writes through SetText
type memBuffer struct {
	id     int
	lines  []string
	cursor types.Position
}

func (b *memBuffer) ID() int                 { return b.id }
func (b *memBuffer) LineCount() (int, error) { return len(b.lines), nil }

func (b *memBuffer) Lines(start, end int) ([]string, error) {
	if end < 0 || end > len(b.lines) {
		end = len(b.lines)
	}
	if start < 0 || start >= end {
		return nil, nil
	}
	return slices.Clone(b.lines[start:end]), nil
}

func (b *memBuffer) AppendLines(after int, lines []string) error {
	b.lines = slices.Insert(b.lines, after, lines...)
	return nil
}

func (b *memBuffer) DeleteLines(from, to int) error {
	b.lines = slices.Delete(b.lines, from-1, to)
	if len(b.lines) == 0 {
		b.lines = []string{""}
	}
	return nil
}

func (b *memBuffer) SetText(startRow, startCol, endRow, endCol int, lines []string) error {
	if len(lines) == 0 {
		lines = []string{""}
	}
	replaced := slices.Clone(lines)
	replaced[0] = b.lines[startRow][:startCol] + replaced[0]
	replaced[len(replaced)-1] += b.lines[endRow][endCol:]
	b.lines = slices.Concat(b.lines[:startRow], replaced, b.lines[endRow+1:])
	return nil
}

func (b *memBuffer) IsCurrent() (bool, error)           { return true, nil }
func (b *memBuffer) Cursor() (types.Position, error)    { return b.cursor, nil }
func (b *memBuffer) SetCursor(pos types.Position) error { b.cursor = pos; return nil }
func (b *memBuffer) Marks() ([]types.Mark, error)       { return nil, nil }
func (b *memBuffer) SetMark(types.Mark) error           { return nil }
func (b *memBuffer) Options() (types.EOLOptions, error) { return types.EOLOptions{}, nil }

func newTestSession(enc types.OffsetEncoding, bufs ...*memBuffer) *session {
	ed := &editor{
		engine: engine.NewEngine(engine.EngineConfig{Strategy: engine.StrategyDirectReplace}),
		resolve: func(bufnr int) (engine.Buffer, error) {
			if bufnr == 0 && len(bufs) > 0 {
				return bufs[0], nil
			}
			for _, b := range bufs {
				if b.id == bufnr {
					return b, nil
				}
			}
			return nil, fmt.Errorf("invalid buffer id: %d", bufnr)
		},
	}
	return &session{
		encoding: enc,
		connect:  func() (*editor, error) { return ed, nil },
		locks:    newBufferLocks(),
	}
}

func TestSession_ApplyTextEdits(t *testing.T) {
	buf := &memBuffer{id: 3, lines: []string{"a😀b"}}
	s := newTestSession(types.EncodingUTF16, buf)

	err := s.applyTextEdits(3, []types.TextEdit{
		{Range: types.NewRange(0, 3, 0, 4), NewText: "c"},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"a😀c"}, buf.lines, "session default encoding used")
}

func TestSession_ApplyTextEdits_ExplicitEncoding(t *testing.T) {
	buf := &memBuffer{id: 3, lines: []string{"a😀b"}}
	s := newTestSession(types.EncodingUTF16, buf)

	err := s.applyTextEdits(3, []types.TextEdit{
		{Range: types.NewRange(0, 2, 0, 3), NewText: "c"},
	}, "utf-32")

	require.NoError(t, err)
	assert.Equal(t, []string{"a😀c"}, buf.lines)
}

func TestSession_Errors(t *testing.T) {
	s := newTestSession(types.EncodingUTF16, &memBuffer{id: 1, lines: []string{"abc"}})

	err := s.applyTextEdits(1, nil, "ebcdic")
	assert.ErrorIs(t, err, types.ErrUnknownEncoding)

	err = s.applyTextEdits(9, []types.TextEdit{{NewText: "x"}}, "")
	assert.Error(t, err, "unknown buffer")

	failing := &session{
		connect: func() (*editor, error) { return nil, errors.New("no editor") },
		locks:   newBufferLocks(),
	}
	assert.Error(t, failing.replaceLines(1, []string{"x"}))
}

func TestCachedEditor_RetriesAfterFailure(t *testing.T) {
	calls := 0
	want := &editor{}
	connect := cachedEditor(func() (*editor, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient rpc failure")
		}
		return want, nil
	})

	_, err := connect()
	assert.Error(t, err, "first attempt fails")

	ed, err := connect()
	require.NoError(t, err, "second attempt retries")
	assert.Same(t, want, ed)

	ed, err = connect()
	require.NoError(t, err)
	assert.Same(t, want, ed)
	assert.Equal(t, 2, calls, "success is cached")
}

func TestSession_ReplaceLines(t *testing.T) {
	buf := &memBuffer{id: 2, lines: []string{"one", "two", "three"}}
	s := newTestSession(types.EncodingUTF16, buf)

	require.NoError(t, s.replaceLines(0, []string{"one", "2", "three", "four"}))

	assert.Equal(t, []string{"one", "2", "three", "four"}, buf.lines)
}

func TestSession_Cursor(t *testing.T) {
	buf := &memBuffer{id: 1, lines: []string{"😀x"}}
	s := newTestSession(types.EncodingUTF16, buf)

	require.NoError(t, s.setCursor(types.Position{Line: 0, Character: 2}, ""))
	assert.Equal(t, types.Position{Line: 0, Character: 4}, buf.cursor, "stored as byte column")

	pos, err := s.getCursor("utf-32")
	require.NoError(t, err)
	assert.Equal(t, types.Position{Line: 0, Character: 1}, pos)
}

func TestBufferLocks_SerializesSameBuffer(t *testing.T) {
	locks := newBufferLocks()

	unlock := locks.lock(1)
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		locks.lock(1)()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same buffer must wait")
	case <-time.After(20 * time.Millisecond):
	}

	// Another buffer is not blocked
	locks.lock(2)()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
}

func TestSession_ConcurrentBatchesOnOneBuffer(t *testing.T) {
	buf := &memBuffer{id: 1, lines: []string{""}}
	s := newTestSession(types.EncodingUTF8, buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.applyTextEdits(1, []types.TextEdit{
				{Range: types.NewRange(0, 0, 0, 0), NewText: "x"},
			}, ""))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"xxxxxxxxxxxxxxxxxxxx"}, buf.lines)
}
