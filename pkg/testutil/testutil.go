// Package testutil provides shared fakes for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brokerctl/pkg/control"
)

// MockLogger records log lines for assertions.
type MockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record("INFO", format, args...)
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record("DEBUG", format, args...)
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record("ERROR", format, args...)
}

func (m *MockLogger) record(level, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, level+": "+fmt.Sprintf(format, args...))
}

// Lines returns a copy of everything logged so far.
func (m *MockLogger) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.lines))
	copy(out, m.lines)

	return out
}

// FakeRunner implements control.Runner with scripted results. Results are
// returned in order; when the script runs out the last result repeats.
type FakeRunner struct {
	mu      sync.Mutex
	results []*control.ExecutionResult
	errs    []error
	calls   []FakeCall
}

// FakeCall records one Run invocation.
type FakeCall struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// NewFakeRunner creates a runner that yields the given results in order.
func NewFakeRunner(results ...*control.ExecutionResult) *FakeRunner {
	return &FakeRunner{results: results}
}

// Script appends a result/error pair to the script.
func (f *FakeRunner) Script(result *control.ExecutionResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.results = append(f.results, result)
	f.errs = append(f.errs, err)
}

func (f *FakeRunner) Run(_ context.Context, path string, args []string, timeout time.Duration) (*control.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{Path: path, Args: append([]string(nil), args...), Timeout: timeout})

	idx := len(f.calls) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}

	if idx < 0 {
		return &control.ExecutionResult{Path: path, Args: args}, nil
	}

	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}

	result := f.results[idx]
	if result != nil {
		copied := *result
		copied.Path = path
		copied.Args = append([]string(nil), args...)

		return &copied, err
	}

	return nil, err
}

// Calls returns a copy of all recorded invocations.
func (f *FakeRunner) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)

	return out
}
