package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/werkbote/internal/approval"
	"github.com/codefionn/werkbote/internal/sandbox"
	"github.com/codefionn/werkbote/internal/session"
	"github.com/codefionn/werkbote/internal/tools"
	"github.com/codefionn/werkbote/internal/workspace"
)

func newTestServer(t *testing.T) (*Server, *tools.Dispatcher, *workspace.Store) {
	t.Helper()

	sb, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	store := workspace.NewStore(sb, 0, 0)
	t.Cleanup(func() { store.Close() })

	ledger := approval.NewLedger()
	registry := tools.NewRegistry()
	registry.Register(tools.NewReadFileTool(store, 1024*1024))
	registry.Register(tools.NewListDirTool(store))
	registry.Register(tools.NewWriteFileTool(store, ledger))
	registry.Register(tools.NewDeletePathTool(ledger))

	dispatcher := tools.NewDispatcher(tools.NewGateway(registry), ledger, store, nil)

	sessions, err := session.NewStore(filepath.Join(t.TempDir(), "werkbote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	return NewServer("127.0.0.1:0", dispatcher, nil, sessions, nil), dispatcher, store
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func submitWrite(t *testing.T, dispatcher *tools.Dispatcher, path, content string) string {
	t.Helper()

	result := dispatcher.Call(context.Background(), &tools.ToolCall{
		Name:       tools.ToolNameWriteFile,
		Parameters: map[string]interface{}{"path": path, "content": content},
	})
	require.True(t, result.RequiresApproval)
	return result.ApprovalID
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestApprovalListShowsPending(t *testing.T) {
	s, dispatcher, _ := newTestServer(t)

	id := submitWrite(t, dispatcher, "new.txt", "content")

	rec := doJSON(t, s, http.MethodGet, "/approvals", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Pending []*approval.PendingTool `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Pending, 1)
	assert.Equal(t, id, payload.Pending[0].ID)
	assert.Equal(t, tools.ToolNameWriteFile, payload.Pending[0].Tool)
}

func TestApprovalGetShowsRecord(t *testing.T) {
	s, dispatcher, _ := newTestServer(t)

	id := submitWrite(t, dispatcher, "one.txt", "content")

	rec := doJSON(t, s, http.MethodGet, "/approvals/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record approval.PendingTool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "one.txt", record.Args["path"])

	rec = doJSON(t, s, http.MethodGet, "/approvals/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveEndpointExecutesWrite(t *testing.T) {
	s, dispatcher, store := newTestServer(t)

	id := submitWrite(t, dispatcher, "approved.txt", "hello")

	rec := doJSON(t, s, http.MethodPost, "/approvals/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	content, err := store.ReadText(context.Background(), "approved.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	// The queue is now empty.
	rec = doJSON(t, s, http.MethodGet, "/approvals", nil)
	var payload struct {
		Pending []*approval.PendingTool `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Empty(t, payload.Pending)
}

func TestRejectEndpointDiscardsWrite(t *testing.T) {
	s, dispatcher, store := newTestServer(t)

	id := submitWrite(t, dispatcher, "rejected.txt", "never written")

	rec := doJSON(t, s, http.MethodPost, "/approvals/"+id+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := store.ReadText(context.Background(), "rejected.txt", 0)
	assert.Error(t, err)
}

func TestResolveUnknownApprovalIs404(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/approvals/nope/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/approvals/nope/reject", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveIsExactlyOnce(t *testing.T) {
	s, dispatcher, _ := newTestServer(t)

	id := submitWrite(t, dispatcher, "once.txt", "x")

	rec := doJSON(t, s, http.MethodPost, "/approvals/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second resolution of the same id fails either way.
	rec = doJSON(t, s, http.MethodPost, "/approvals/"+id+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, s, http.MethodPost, "/approvals/"+id+"/reject", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageWithoutAgentIs503(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/messages", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScheduleEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/schedule", map[string]string{
		"body":   "check the deploy",
		"due_at": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["id"])
}

func TestScheduleRejectsBadInput(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/schedule", map[string]string{
		"due_at": time.Now().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/schedule", map[string]string{
		"body":   "reminder",
		"due_at": "tomorrow at noon",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
