package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/vault/api"
)

// Common static errors to replace dynamic error creation.
var (
	ErrAuditNotConfigured = errors.New("vault client not configured")
	ErrAuditEntryMissing  = errors.New("audit entry has no data")
)

// AuditEntry is one recorded command execution.
type AuditEntry struct {
	Timestamp   int64    `json:"timestamp"`
	User        string   `json:"user"`
	ClientIP    string   `json:"client_ip"`
	Tool        string   `json:"tool"`
	Verb        string   `json:"verb"`
	Arguments   []string `json:"arguments"`
	Success     bool     `json:"success"`
	ExitCode    int      `json:"exit_code"`
	Duration    int64    `json:"duration_ms"`
	Output      string   `json:"output"`
	Error       string   `json:"error,omitempty"`
	ExecutionID string   `json:"execution_id"`
}

// AuditSummary aggregates recorded executions.
type AuditSummary struct {
	TotalEntries   int            `json:"total_entries"`
	SuccessfulCmds int            `json:"successful_commands"`
	FailedCmds     int            `json:"failed_commands"`
	Tools          map[string]int `json:"tools"`
	Commands       map[string]int `json:"commands"`
	Users          map[string]int `json:"users"`
	FirstExecution int64          `json:"first_execution"`
	LastExecution  int64          `json:"last_execution"`
}

// AuditService records command executions in Vault's KV v2 store and reads
// them back as history. The service degrades cleanly: with no Vault client
// every call reports ErrAuditNotConfigured and nothing else happens.
type AuditService struct {
	vaultClient *api.Client
	prefix      string
	logger      Logger
}

// NewAuditService creates a new audit service. prefix is the KV v2 data path
// under which entries are written, e.g. "secret/data/brokerctl/audit".
func NewAuditService(vaultClient *api.Client, prefix string, logger Logger) *AuditService {
	if logger == nil {
		logger = &noOpLogger{}
	}

	if prefix == "" {
		prefix = "secret/data/brokerctl/audit"
	}

	return &AuditService{
		vaultClient: vaultClient,
		prefix:      strings.TrimSuffix(prefix, "/"),
		logger:      logger,
	}
}

// LogExecution writes one audit entry for a completed execution.
func (a *AuditService) LogExecution(ctx context.Context, execution *Execution, user, clientIP string) error {
	if a.vaultClient == nil {
		return ErrAuditNotConfigured
	}

	entry := &AuditEntry{
		Timestamp:   execution.Timestamp,
		User:        user,
		ClientIP:    clientIP,
		Tool:        string(execution.Tool),
		Verb:        execution.Verb,
		Arguments:   execution.Arguments,
		Success:     execution.Success,
		ExitCode:    execution.ExitCode,
		Duration:    execution.Duration,
		Output:      execution.Output,
		ExecutionID: execution.ExecutionID,
	}

	if execution.TimedOut {
		entry.Error = "command timed out"
	} else if !execution.Success {
		entry.Error = fmt.Sprintf("command failed with exit code %d", execution.ExitCode)
	}

	entryData, err := entryToMap(entry)
	if err != nil {
		return fmt.Errorf("failed to convert audit entry: %w", err)
	}

	key := a.entryKey(execution.Timestamp, execution.ExecutionID)

	// KV v2 requires the data wrapper.
	_, err = a.vaultClient.Logical().WriteWithContext(ctx, key, map[string]interface{}{
		"data": entryData,
	})
	if err != nil {
		a.logger.Error("Failed to write audit entry to %s: %v", key, err)

		return fmt.Errorf("failed to write to vault: %w", err)
	}

	a.logger.Debug("Audit entry logged: %s", key)

	return nil
}

// History returns up to limit entries, newest first.
func (a *AuditService) History(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if a.vaultClient == nil {
		return nil, ErrAuditNotConfigured
	}

	if limit <= 0 || limit > MaxAuditHistoryLimit {
		limit = DefaultHistoryLimit
	}

	secret, err := a.vaultClient.Logical().ListWithContext(ctx, a.listPath())
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	keys, _ := secret.Data["keys"].([]interface{})
	entries := make([]*AuditEntry, 0, len(keys))

	for _, raw := range keys {
		name, ok := raw.(string)
		if !ok {
			continue
		}

		entry, err := a.readEntry(ctx, name)
		if err != nil {
			a.logger.Debug("Skipping unreadable audit entry %s: %v", name, err)

			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Summary aggregates the full recorded history.
func (a *AuditService) Summary(ctx context.Context) (*AuditSummary, error) {
	entries, err := a.History(ctx, MaxAuditHistoryLimit)
	if err != nil {
		return nil, err
	}

	summary := &AuditSummary{
		TotalEntries: len(entries),
		Tools:        make(map[string]int),
		Commands:     make(map[string]int),
		Users:        make(map[string]int),
	}

	if len(entries) == 0 {
		return summary, nil
	}

	// History returns entries newest first.
	summary.LastExecution = entries[0].Timestamp
	summary.FirstExecution = entries[len(entries)-1].Timestamp

	for _, entry := range entries {
		if entry.Success {
			summary.SuccessfulCmds++
		} else {
			summary.FailedCmds++
		}

		summary.Tools[entry.Tool]++
		summary.Commands[entry.Tool+" "+entry.Verb]++
		summary.Users[entry.User]++
	}

	return summary, nil
}

// FormatEntry renders one entry for operator display.
func (a *AuditService) FormatEntry(entry *AuditEntry) string {
	status := "FAILED"
	if entry.Success {
		status = "OK"
	}

	line := fmt.Sprintf("[%d] %s %s %s %v (%s, exit %d, %dms)",
		entry.Timestamp, status, entry.Tool, entry.Verb, entry.Arguments,
		entry.User, entry.ExitCode, entry.Duration)

	if entry.Error != "" {
		line += " - " + entry.Error
	}

	return line
}

func (a *AuditService) entryKey(timestamp int64, executionID string) string {
	return fmt.Sprintf("%s/%d-%s", a.prefix, timestamp, executionID)
}

// listPath converts the KV v2 data path to its metadata path for listing.
func (a *AuditService) listPath() string {
	return strings.Replace(a.prefix, "/data/", "/metadata/", 1)
}

func (a *AuditService) readEntry(ctx context.Context, name string) (*AuditEntry, error) {
	secret, err := a.vaultClient.Logical().ReadWithContext(ctx, a.prefix+"/"+name)
	if err != nil {
		return nil, err
	}

	if secret == nil || secret.Data == nil {
		return nil, ErrAuditEntryMissing
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, ErrAuditEntryMissing
	}

	return mapToEntry(data)
}

func entryToMap(entry *AuditEntry) (map[string]interface{}, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	return data, nil
}

func mapToEntry(data map[string]interface{}) (*AuditEntry, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	entry := &AuditEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, err
	}

	return entry, nil
}
