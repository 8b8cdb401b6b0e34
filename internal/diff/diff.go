// Package diff renders line-level previews of pending file writes so the
// approval authority can see what a write would change before allowing it.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MaxPreviewLines bounds the size of a preview; larger changes are shown
// as a summary instead of a full diff.
const MaxPreviewLines = 2000

// Preview returns a unified-style textual diff of before and after, with
// "+"/"-"/" " line prefixes. The second return value reports that the
// change was too large to render within maxLines (0 means MaxPreviewLines).
func Preview(before, after string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		maxLines = MaxPreviewLines
	}
	if lineCount(before)+lineCount(after) > maxLines {
		return "", true
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}

		chunkLines := strings.Split(d.Text, "\n")
		if len(chunkLines) > 0 && chunkLines[len(chunkLines)-1] == "" {
			chunkLines = chunkLines[:len(chunkLines)-1]
		}
		for _, line := range chunkLines {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return b.String(), false
}

func lineCount(value string) int {
	if value == "" {
		return 0
	}
	return strings.Count(value, "\n") + 1
}
