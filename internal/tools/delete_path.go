package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/approval"
	"github.com/codefionn/werkbote/internal/logger"
)

// DeletePathTool requests a recursive delete. Like writes, the delete is
// parked in the approval ledger until an operator resolves it.
type DeletePathTool struct {
	ledger *approval.Ledger
}

func NewDeletePathTool(ledger *approval.Ledger) *DeletePathTool {
	return &DeletePathTool{ledger: ledger}
}

func (t *DeletePathTool) Name() string {
	return ToolNameDeletePath
}

func (t *DeletePathTool) Description() string {
	return "Delete a file or directory (recursively) inside the workspace. Requires operator approval; returns an approval id to wait on."
}

func (t *DeletePathTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to delete, relative to the workspace root",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeletePathTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := GetStringParam(params, "path", "")

	id := t.ledger.Submit(ToolNameDeletePath, map[string]interface{}{
		"path": path,
	})
	logger.Info("delete_path: %s queued for approval as %s", path, id)

	return &ToolResult{
		Result:           map[string]interface{}{"status": "pending approval", "approval_id": id},
		RequiresApproval: true,
		ApprovalID:       id,
	}
}
