package tools

import (
	"context"

	"github.com/codefionn/werkbote/internal/approval"
	"github.com/codefionn/werkbote/internal/audit"
	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/workspace"
)

// Dispatcher is the composition layer around the gateway and the ledger.
// It records every attempt in the audit trail and executes approved
// mutations against the workspace store. The ledger itself never executes
// anything; resolution only authorizes.
type Dispatcher struct {
	gateway *Gateway
	ledger  *approval.Ledger
	store   *workspace.Store
	audit   *audit.Log
}

func NewDispatcher(gateway *Gateway, ledger *approval.Ledger, store *workspace.Store, auditLog *audit.Log) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		ledger:  ledger,
		store:   store,
		audit:   auditLog,
	}
}

// Gateway exposes the wrapped gateway for callers that need tool specs.
func (d *Dispatcher) Gateway() *Gateway {
	return d.gateway
}

// Ledger exposes the approval ledger for the approval authority.
func (d *Dispatcher) Ledger() *approval.Ledger {
	return d.ledger
}

// Call invokes a tool through the gateway and records the attempt. A
// deferred mutation is recorded as pending; its final outcome is recorded
// again when the request is resolved.
func (d *Dispatcher) Call(ctx context.Context, call *ToolCall) *ToolResult {
	result := d.gateway.Invoke(ctx, call)

	switch {
	case result.RequiresApproval:
		d.record(call.Name, call.Parameters, audit.ResultPending, "approval "+result.ApprovalID)
	case result.Error != "":
		d.record(call.Name, call.Parameters, audit.ResultError, result.Error)
	default:
		d.record(call.Name, call.Parameters, audit.ResultOK, "")
	}

	return result
}

// Resolve settles one pending request on behalf of the approval authority.
// On approval the deferred mutation is executed here; on rejection it is
// discarded. Returns false when the id is unknown or already resolved.
func (d *Dispatcher) Resolve(ctx context.Context, id string, approved bool) (*ToolResult, bool) {
	if !approved {
		record, ok := d.ledger.Reject(id)
		if !ok {
			return nil, false
		}
		d.record(record.Tool, record.Args, audit.ResultError, "rejected by operator")
		return &ToolResult{Result: "rejected"}, true
	}

	record, ok := d.ledger.Approve(id)
	if !ok {
		return nil, false
	}

	result := d.execute(ctx, record)
	if result.Error != "" {
		d.record(record.Tool, record.Args, audit.ResultError, result.Error)
	} else {
		d.record(record.Tool, record.Args, audit.ResultOK, "approved as "+id)
	}
	return result, true
}

// execute runs an approved mutation. The target path is resolved again by
// the store; nothing from submission time is trusted except the raw args.
func (d *Dispatcher) execute(ctx context.Context, record *approval.PendingTool) *ToolResult {
	path := stringArg(record.Args, "path")

	switch record.Tool {
	case ToolNameWriteFile:
		content := stringArg(record.Args, "content")
		if err := d.store.WriteText(ctx, path, content); err != nil {
			logger.Error("dispatcher: approved write of %s failed: %v", path, err)
			return errorResult("%v", err)
		}
		return &ToolResult{Result: map[string]interface{}{"path": path, "bytes_written": len(content)}}

	case ToolNameDeletePath:
		if err := d.store.Remove(ctx, path); err != nil {
			logger.Error("dispatcher: approved delete of %s failed: %v", path, err)
			return errorResult("%v", err)
		}
		return &ToolResult{Result: map[string]interface{}{"path": path, "deleted": true}}

	default:
		return errorResult("unknown tool: %s", record.Tool)
	}
}

func (d *Dispatcher) record(tool string, args map[string]interface{}, result audit.Result, detail string) {
	if d.audit == nil {
		return
	}
	d.audit.Record(tool, args, result, detail)
}

func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}
