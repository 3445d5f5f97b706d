package text

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"lspedit/types"
)

// splitTerminated splits newline-terminated diff text into lines
func splitTerminated(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ComputeLineEdits returns line-granular edits that turn oldLines into
// newLines. Columns are byte offsets (utf-8). Each contiguous changed region
// becomes one edit; edits never overlap.
func ComputeLineEdits(oldLines, newLines []string) []types.TextEdit {
	if len(oldLines) == 0 {
		oldLines = []string{""}
	}
	if len(newLines) == 0 {
		newLines = []string{""}
	}

	oldText := JoinLines(oldLines)
	newText := JoinLines(newLines)
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	lineDiffs := dmp.DiffCharsToLines(diffs, lineArray)

	var edits []types.TextEdit
	oldRow := 0

	for i := 0; i < len(lineDiffs); {
		if lineDiffs[i].Type == diffmatchpatch.DiffEqual {
			oldRow += strings.Count(lineDiffs[i].Text, "\n")
			i++
			continue
		}

		// Merge the run of deletes and inserts up to the next equal region
		deleted := 0
		var inserted []string
		for ; i < len(lineDiffs) && lineDiffs[i].Type != diffmatchpatch.DiffEqual; i++ {
			switch lineDiffs[i].Type {
			case diffmatchpatch.DiffDelete:
				deleted += strings.Count(lineDiffs[i].Text, "\n")
			case diffmatchpatch.DiffInsert:
				inserted = append(inserted, splitTerminated(lineDiffs[i].Text)...)
			}
		}

		edits = append(edits, lineEdit(oldLines, oldRow, oldRow+deleted, inserted))
		oldRow += deleted
	}

	return edits
}

// lineEdit replaces old rows [start, end) with lines.
func lineEdit(oldLines []string, start, end int, lines []string) types.TextEdit {
	last := len(oldLines) - 1

	if end <= last {
		return types.TextEdit{
			Range:   types.NewRange(start, 0, end, 0),
			NewText: JoinLines(lines),
		}
	}

	// The region reaches the end of the buffer. Anchor it to the end of the
	// previous line so no trailing empty line is left behind.
	if start == 0 {
		return types.TextEdit{
			Range:   types.NewRange(0, 0, last, len(oldLines[last])),
			NewText: strings.Join(lines, "\n"),
		}
	}

	newText := ""
	if len(lines) > 0 {
		newText = "\n" + strings.Join(lines, "\n")
	}
	return types.TextEdit{
		Range:   types.NewRange(start-1, len(oldLines[start-1]), last, len(oldLines[last])),
		NewText: newText,
	}
}
