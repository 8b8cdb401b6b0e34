package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewMarksChangedLines(t *testing.T) {
	before := "alpha\nbeta\ngamma\n"
	after := "alpha\nBETA\ngamma\n"

	preview, truncated := Preview(before, after, 0)
	require.False(t, truncated)

	assert.Contains(t, preview, " alpha\n")
	assert.Contains(t, preview, "-beta\n")
	assert.Contains(t, preview, "+BETA\n")
	assert.Contains(t, preview, " gamma\n")
}

func TestPreviewNewFile(t *testing.T) {
	preview, truncated := Preview("", "line one\nline two\n", 0)
	require.False(t, truncated)

	assert.Contains(t, preview, "+line one\n")
	assert.Contains(t, preview, "+line two\n")
	assert.NotContains(t, preview, "-")
}

func TestPreviewIdentical(t *testing.T) {
	content := "same\ncontent\n"

	preview, truncated := Preview(content, content, 0)
	require.False(t, truncated)

	for _, line := range strings.Split(strings.TrimRight(preview, "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, " "), "unexpected change line: %q", line)
	}
}

func TestPreviewTooLarge(t *testing.T) {
	before := strings.Repeat("line\n", 30)
	after := strings.Repeat("other\n", 30)

	preview, truncated := Preview(before, after, 10)
	assert.True(t, truncated)
	assert.Empty(t, preview)
}

func TestPreviewDefaultBudget(t *testing.T) {
	before := strings.Repeat("a\n", MaxPreviewLines)
	after := strings.Repeat("b\n", MaxPreviewLines)

	_, truncated := Preview(before, after, 0)
	assert.True(t, truncated)
}
