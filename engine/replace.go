package engine

import (
	"fmt"

	"lspedit/logger"
	"lspedit/text"
	"lspedit/types"
)

// ReplaceLines makes newLines the content of buf. Only the changed lines are
// rewritten, through the batch applier, so marks and the cursor on untouched
// lines stay where they are. A trailing empty line in newLines is kept.
func (e *Engine) ReplaceLines(buf Buffer, newLines []string) error {
	oldLines, err := buf.Lines(0, -1)
	if err != nil {
		return fmt.Errorf("get lines: %w", err)
	}

	edits := text.ComputeLineEdits(oldLines, newLines)
	if len(edits) == 0 {
		logger.Debug("engine: buffer %d already up to date", buf.ID())
		return nil
	}
	logger.Debug("engine: replacing buffer %d content with %d hunks", buf.ID(), len(edits))

	return e.applyTextEdits(buf, edits, types.EncodingUTF8, false)
}
