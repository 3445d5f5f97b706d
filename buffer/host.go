package buffer

import (
	"fmt"

	"github.com/neovim/go-client/nvim"

	"lspedit/engine"
	"lspedit/logger"
)

var _ engine.Buffer = (*NvimBuffer)(nil)

type HostConfig struct {
	ForceLineRebuild bool // Never use nvim_buf_set_text, even when available
}

// Host is one Neovim connection. The write strategy is detected once when
// the host is created.
type Host struct {
	client   *nvim.Nvim
	strategy engine.Strategy
}

// NewHost queries the editor for its capabilities and picks the write
// strategy for every buffer of this connection.
func NewHost(client *nvim.Nvim, config HostConfig) (*Host, error) {
	defer logger.Trace("buffer.NewHost")()
	if client == nil {
		return nil, fmt.Errorf("nvim client not set")
	}

	var hasSetText bool
	batch := client.NewBatch()
	batch.ExecLua(`return vim.fn.exists('*nvim_buf_set_text') == 1`, &hasSetText, nil)
	if err := batch.Execute(); err != nil {
		return nil, fmt.Errorf("query capabilities: %w", err)
	}

	strategy := strategyFor(hasSetText, config.ForceLineRebuild)
	logger.Info("host: nvim_buf_set_text=%v, strategy=%s", hasSetText, strategy)

	return &Host{client: client, strategy: strategy}, nil
}

func strategyFor(hasSetText, forceLineRebuild bool) engine.Strategy {
	if hasSetText && !forceLineRebuild {
		return engine.StrategyDirectReplace
	}
	return engine.StrategyLineRebuild
}

// Strategy returns the write strategy detected for this connection
func (h *Host) Strategy() engine.Strategy { return h.strategy }

// Client returns the underlying nvim client
func (h *Host) Client() *nvim.Nvim { return h.client }

// resolveBufferLua maps 0 to the current buffer, loads it and marks it listed
const resolveBufferLua = `
local bufnr = ...
if bufnr == 0 then
	bufnr = vim.api.nvim_get_current_buf()
end
vim.fn.bufload(bufnr)
vim.bo[bufnr].buflisted = true
return bufnr
`

// Resolve returns the buffer for bufnr, where 0 means the current buffer.
// The returned buffer is bound to the concrete id.
func (h *Host) Resolve(bufnr int) (*NvimBuffer, error) {
	var id int
	batch := h.client.NewBatch()
	batch.ExecLua(resolveBufferLua, &id, bufnr)
	if err := batch.Execute(); err != nil {
		return nil, fmt.Errorf("resolve buffer %d: %w", bufnr, err)
	}
	return &NvimBuffer{client: h.client, id: nvim.Buffer(id)}, nil
}
