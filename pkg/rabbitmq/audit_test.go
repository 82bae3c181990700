package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/vault/api"
)

func TestAuditWithoutVaultClient(t *testing.T) {
	t.Parallel()

	audit := NewAuditService(nil, "", nil)

	err := audit.LogExecution(context.Background(), &Execution{}, "alice", "10.0.0.1")
	if !errors.Is(err, ErrAuditNotConfigured) {
		t.Errorf("LogExecution error = %v, want ErrAuditNotConfigured", err)
	}

	_, err = audit.History(context.Background(), 10)
	if !errors.Is(err, ErrAuditNotConfigured) {
		t.Errorf("History error = %v, want ErrAuditNotConfigured", err)
	}
}

// fakeVault implements just enough of the KV v2 HTTP surface for the audit
// service: write and read under /v1/secret/data/..., list under
// /v1/secret/metadata/....
type fakeVault struct {
	mu      sync.Mutex
	entries map[string]map[string]interface{}
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1/")

	switch {
	case r.Method == http.MethodPut || r.Method == http.MethodPost:
		var body struct {
			Data map[string]interface{} `json:"data"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		f.entries[path] = body.Data
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Query().Get("list") == "true":
		prefix := strings.Replace(path, "metadata", "data", 1) + "/"

		var keys []string

		for key := range f.entries {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, strings.TrimPrefix(key, prefix))
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"keys": keys},
		})
	default:
		data, ok := f.entries[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"data": data},
		})
	}
}

func newFakeVaultClient(t *testing.T) (*api.Client, *httptest.Server) {
	t.Helper()

	fake := &fakeVault{entries: make(map[string]map[string]interface{})}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	config := api.DefaultConfig()
	config.Address = server.URL

	client, err := api.NewClient(config)
	if err != nil {
		t.Fatal(err)
	}

	client.SetToken("test-token")

	return client, server
}

func TestAuditRoundTrip(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVaultClient(t)
	audit := NewAuditService(client, "secret/data/brokerctl/audit", nil)

	executions := []*Execution{
		{
			ExecutionID: "exec-1",
			Tool:        ToolCtl,
			Verb:        "add_user",
			Arguments:   []string{"bob", "secret"},
			Timestamp:   100,
			Output:      "user added",
			ExitCode:    0,
			Success:     true,
			Duration:    42,
		},
		{
			ExecutionID: "exec-2",
			Tool:        ToolPlugins,
			Verb:        "enable",
			Arguments:   []string{"rabbitmq_management"},
			Timestamp:   200,
			ExitCode:    70,
			Success:     false,
			Duration:    10,
		},
	}

	for _, execution := range executions {
		if err := audit.LogExecution(context.Background(), execution, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("LogExecution returned error: %v", err)
		}
	}

	entries, err := audit.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Newest first.
	if entries[0].ExecutionID != "exec-2" || entries[1].ExecutionID != "exec-1" {
		t.Errorf("order = %s, %s; want exec-2 then exec-1", entries[0].ExecutionID, entries[1].ExecutionID)
	}

	first := entries[1]
	if first.User != "alice" || first.ClientIP != "10.0.0.1" {
		t.Errorf("identity not recorded: %+v", first)
	}

	if first.Tool != "rabbitmqctl" || first.Verb != "add_user" {
		t.Errorf("command not recorded: %+v", first)
	}

	if entries[0].Error == "" {
		t.Error("failed execution should carry an error description")
	}
}

func TestAuditHistoryLimit(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVaultClient(t)
	audit := NewAuditService(client, "secret/data/brokerctl/audit", nil)

	for i := 0; i < 5; i++ {
		execution := &Execution{
			ExecutionID: string(rune('a' + i)),
			Tool:        ToolCtl,
			Verb:        "status",
			Timestamp:   int64(i),
			Success:     true,
		}

		if err := audit.LogExecution(context.Background(), execution, "alice", ""); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := audit.History(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestAuditSummary(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVaultClient(t)
	audit := NewAuditService(client, "secret/data/brokerctl/audit", nil)

	executions := []*Execution{
		{ExecutionID: "a", Tool: ToolCtl, Verb: "status", Timestamp: 10, Success: true},
		{ExecutionID: "b", Tool: ToolCtl, Verb: "status", Timestamp: 20, Success: true},
		{ExecutionID: "c", Tool: ToolPlugins, Verb: "enable", Timestamp: 30, ExitCode: 70},
	}

	users := []string{"alice", "alice", "bob"}
	for i, execution := range executions {
		if err := audit.LogExecution(context.Background(), execution, users[i], ""); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := audit.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}

	if summary.TotalEntries != 3 || summary.SuccessfulCmds != 2 || summary.FailedCmds != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1",
			summary.TotalEntries, summary.SuccessfulCmds, summary.FailedCmds)
	}

	if summary.Commands["rabbitmqctl status"] != 2 {
		t.Errorf("Commands = %v", summary.Commands)
	}

	if summary.Users["alice"] != 2 || summary.Users["bob"] != 1 {
		t.Errorf("Users = %v", summary.Users)
	}

	if summary.FirstExecution != 10 || summary.LastExecution != 30 {
		t.Errorf("time range = %d..%d, want 10..30", summary.FirstExecution, summary.LastExecution)
	}
}

func TestAuditSummaryEmpty(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVaultClient(t)
	audit := NewAuditService(client, "secret/data/brokerctl/audit", nil)

	summary, err := audit.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}

	if summary.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0", summary.TotalEntries)
	}
}

func TestFormatEntry(t *testing.T) {
	t.Parallel()

	audit := NewAuditService(nil, "", nil)

	entry := &AuditEntry{
		Timestamp: 100,
		User:      "alice",
		Tool:      "rabbitmqctl",
		Verb:      "delete_user",
		Arguments: []string{"bob"},
		Success:   false,
		ExitCode:  70,
		Duration:  42,
		Error:     "command failed with exit code 70",
	}

	line := audit.FormatEntry(entry)

	for _, fragment := range []string{"FAILED", "rabbitmqctl", "delete_user", "alice", "exit 70"} {
		if !strings.Contains(line, fragment) {
			t.Errorf("FormatEntry = %q, want it to contain %q", line, fragment)
		}
	}
}
