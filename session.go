package main

import (
	"fmt"
	"sync"

	"github.com/neovim/go-client/nvim"

	"lspedit/buffer"
	"lspedit/engine"
	"lspedit/logger"
	"lspedit/types"
)

// editor is what a session needs from a connected Neovim
type editor struct {
	engine  *engine.Engine
	resolve func(bufnr int) (engine.Buffer, error)
}

// session serves the RPC requests of one connection. Batches on the same
// buffer run one at a time; different buffers proceed concurrently.
type session struct {
	encoding types.OffsetEncoding
	connect  func() (*editor, error)
	locks    *bufferLocks
}

func newSession(n *nvim.Nvim, config Config, enc types.OffsetEncoding) *session {
	// The capability query needs a running Serve loop, so the host is
	// created on the first request.
	connect := cachedEditor(func() (*editor, error) {
		host, err := buffer.NewHost(n, buffer.HostConfig{ForceLineRebuild: config.ForceLineRebuild})
		if err != nil {
			return nil, err
		}
		return &editor{
			engine: engine.NewEngine(engine.EngineConfig{Strategy: host.Strategy()}),
			resolve: func(bufnr int) (engine.Buffer, error) {
				buf, err := host.Resolve(bufnr)
				if err != nil {
					return nil, err
				}
				return buf, nil
			},
		}, nil
	})
	return &session{encoding: enc, connect: connect, locks: newBufferLocks()}
}

// cachedEditor returns create's first successful result on every later call.
// Failures are not kept, so the next request retries.
func cachedEditor(create func() (*editor, error)) func() (*editor, error) {
	var (
		mu sync.Mutex
		ed *editor
	)
	return func() (*editor, error) {
		mu.Lock()
		defer mu.Unlock()
		if ed != nil {
			return ed, nil
		}
		created, err := create()
		if err != nil {
			return nil, err
		}
		ed = created
		return ed, nil
	}
}

func (s *session) register(n *nvim.Nvim) error {
	handlers := map[string]any{
		"lspedit_apply_text_edits": func(_ *nvim.Nvim, bufnr int, edits []types.TextEdit, encoding string) error {
			return s.applyTextEdits(bufnr, edits, encoding)
		},
		"lspedit_replace_lines": func(_ *nvim.Nvim, bufnr int, lines []string) error {
			return s.replaceLines(bufnr, lines)
		},
		"lspedit_get_cursor": func(_ *nvim.Nvim, encoding string) (types.Position, error) {
			return s.getCursor(encoding)
		},
		"lspedit_set_cursor": func(_ *nvim.Nvim, pos types.Position, encoding string) error {
			return s.setCursor(pos, encoding)
		},
	}
	for name, fn := range handlers {
		if err := n.RegisterHandler(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

func (s *session) offsetEncoding(name string) (types.OffsetEncoding, error) {
	if name == "" {
		return s.encoding, nil
	}
	return types.ParseOffsetEncoding(name)
}

// withBuffer resolves bufnr and runs fn holding that buffer's lock
func (s *session) withBuffer(bufnr int, fn func(ed *editor, buf engine.Buffer) error) error {
	ed, err := s.connect()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	buf, err := ed.resolve(bufnr)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(buf.ID())
	defer unlock()
	return fn(ed, buf)
}

func (s *session) applyTextEdits(bufnr int, edits []types.TextEdit, encoding string) error {
	enc, err := s.offsetEncoding(encoding)
	if err != nil {
		return err
	}
	err = s.withBuffer(bufnr, func(ed *editor, buf engine.Buffer) error {
		return ed.engine.ApplyTextEdits(buf, edits, enc)
	})
	if err != nil {
		logger.Error("apply %d edits to buffer %d: %v", len(edits), bufnr, err)
	}
	return err
}

func (s *session) replaceLines(bufnr int, lines []string) error {
	err := s.withBuffer(bufnr, func(ed *editor, buf engine.Buffer) error {
		return ed.engine.ReplaceLines(buf, lines)
	})
	if err != nil {
		logger.Error("replace lines of buffer %d: %v", bufnr, err)
	}
	return err
}

func (s *session) getCursor(encoding string) (types.Position, error) {
	enc, err := s.offsetEncoding(encoding)
	if err != nil {
		return types.Position{}, err
	}
	var pos types.Position
	err = s.withBuffer(0, func(_ *editor, buf engine.Buffer) error {
		pos, err = engine.GetCursor(buf, enc)
		return err
	})
	if err != nil {
		logger.Error("get cursor: %v", err)
	}
	return pos, err
}

func (s *session) setCursor(pos types.Position, encoding string) error {
	enc, err := s.offsetEncoding(encoding)
	if err != nil {
		return err
	}
	err = s.withBuffer(0, func(_ *editor, buf engine.Buffer) error {
		return engine.SetCursor(buf, pos, enc)
	})
	if err != nil {
		logger.Error("set cursor %s: %v", pos, err)
	}
	return err
}

// bufferLocks hands out one mutex per buffer id
type bufferLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newBufferLocks() *bufferLocks {
	return &bufferLocks{locks: make(map[int]*sync.Mutex)}
}

func (l *bufferLocks) lock(id int) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
