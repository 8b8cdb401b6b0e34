package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/workspace"
)

// ListDirTool lists a workspace directory. Directories carry a trailing
// separator marker so the model can tell them apart from files.
type ListDirTool struct {
	store *workspace.Store
}

func NewListDirTool(store *workspace.Store) *ListDirTool {
	return &ListDirTool{store: store}
}

func (t *ListDirTool) Name() string {
	return ToolNameListDir
}

func (t *ListDirTool) Description() string {
	return "List the entries of a workspace directory. Directory names end with a '/' marker."
}

func (t *ListDirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list, relative to the workspace root (optional, defaults to the root)",
			},
		},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := GetStringParam(params, "path", "")

	entries, err := t.store.ListDir(ctx, path)
	if err != nil {
		logger.Debug("list_dir: %s: %v", path, err)
		return errorResult("%v", err)
	}

	return &ToolResult{
		Result: map[string]interface{}{
			"path":    path,
			"entries": entries,
		},
	}
}
