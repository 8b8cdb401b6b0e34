package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/workspace"
)

// ReadFileTool reads a file from the workspace.
type ReadFileTool struct {
	store    *workspace.Store
	maxBytes int64
}

func NewReadFileTool(store *workspace.Store, maxBytes int64) *ReadFileTool {
	return &ReadFileTool{store: store, maxBytes: maxBytes}
}

func (t *ReadFileTool) Name() string {
	return ToolNameReadFile
}

func (t *ReadFileTool) Description() string {
	return "Read the content of a file inside the workspace. Fails if the file exceeds the byte limit."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file, relative to the workspace root",
			},
			"max_bytes": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of bytes to accept (optional)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := GetStringParam(params, "path", "")
	maxBytes := GetInt64Param(params, "max_bytes", t.maxBytes)

	content, err := t.store.ReadText(ctx, path, maxBytes)
	if err != nil {
		logger.Debug("read_file: %s: %v", path, err)
		return errorResult("%v", err)
	}

	return &ToolResult{
		Result: map[string]interface{}{
			"path":    path,
			"content": content,
		},
	}
}
