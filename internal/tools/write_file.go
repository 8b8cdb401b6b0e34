package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/approval"
	"github.com/codefionn/werkbote/internal/diff"
	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/workspace"
)

// WriteFileTool requests a file write. The write does not run here: the
// request is parked in the approval ledger and executed by the dispatcher
// once an operator approves it.
type WriteFileTool struct {
	store  *workspace.Store
	ledger *approval.Ledger
}

func NewWriteFileTool(store *workspace.Store, ledger *approval.Ledger) *WriteFileTool {
	return &WriteFileTool{store: store, ledger: ledger}
}

func (t *WriteFileTool) Name() string {
	return ToolNameWriteFile
}

func (t *WriteFileTool) Description() string {
	return "Write content to a file inside the workspace. Requires operator approval before the write is executed; returns an approval id to wait on."
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file, relative to the workspace root",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Full content to write (existing files are overwritten)",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := GetStringParam(params, "path", "")
	content, hasContent := params["content"].(string)
	if !hasContent {
		return errorResult("content is required")
	}

	args := map[string]interface{}{
		"path":    path,
		"content": content,
	}

	// Best-effort diff preview for the approval authority. A read failure
	// (new file, sandbox rejection) just leaves the preview out; the real
	// path validation happens when the approved write executes.
	if before, err := t.store.ReadText(ctx, path, 0); err == nil {
		if preview, truncated := diff.Preview(before, content, 0); !truncated {
			args["diff"] = preview
		}
	}

	id := t.ledger.Submit(ToolNameWriteFile, args)
	logger.Info("write_file: %s queued for approval as %s", path, id)

	return &ToolResult{
		Result:           map[string]interface{}{"status": "pending approval", "approval_id": id},
		RequiresApproval: true,
		ApprovalID:       id,
	}
}
