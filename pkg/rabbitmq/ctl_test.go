package rabbitmq

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"brokerctl/pkg/control"
	"brokerctl/pkg/testutil"
)

func newTestCtl(runner control.Runner) *CtlClient {
	return NewCtlClient(newTestExecutor(runner, control.CommonOptions{Quiet: true}), nil)
}

func TestListQueuesParsesRows(t *testing.T) {
	t.Parallel()

	stdout := "Listing queues for vhost /prod ...\n" +
		"orders\t12\t2\trunning\n" +
		"invoices\t0\t0\tidle\n"

	runner := testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0, Stdout: stdout})
	ctl := newTestCtl(runner)

	queues, err := ctl.ListQueues(context.Background(), "/prod")
	if err != nil {
		t.Fatalf("ListQueues returned error: %v", err)
	}

	want := []Queue{
		{Name: "orders", Messages: 12, Consumers: 2, State: "running"},
		{Name: "invoices", Messages: 0, Consumers: 0, State: "idle"},
	}

	if !reflect.DeepEqual(queues, want) {
		t.Errorf("queues = %v, want %v", queues, want)
	}

	// The requested columns travel to the tool as positionals, after the
	// vhost switch.
	args := runner.Calls()[0].Args
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-p /prod list_queues name messages consumers state") {
		t.Errorf("args = %v", args)
	}
}

func TestListQueuesCustomColumnOrder(t *testing.T) {
	t.Parallel()

	stdout := "3 orders\n"

	runner := testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0, Stdout: stdout})
	ctl := newTestCtl(runner)

	queues, err := ctl.ListQueues(context.Background(), "", "messages", "name")
	if err != nil {
		t.Fatal(err)
	}

	if len(queues) != 1 || queues[0].Name != "orders" || queues[0].Messages != 3 {
		t.Errorf("queues = %v", queues)
	}
}

func TestListQueuesUnknownColumn(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0})
	ctl := newTestCtl(runner)

	_, err := ctl.ListQueues(context.Background(), "", "name", "velocity")
	if err == nil {
		t.Fatal("expected error for unknown column")
	}

	// Rejected before any subprocess spawn.
	if calls := runner.Calls(); len(calls) != 0 {
		t.Errorf("runner invoked %d times", len(calls))
	}
}

func TestListUsersParsesTags(t *testing.T) {
	t.Parallel()

	stdout := "Listing users ...\n" +
		"admin\t[administrator, management]\n" +
		"guest\t[]\n"

	runner := testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0, Stdout: stdout})
	ctl := newTestCtl(runner)

	users, err := ctl.ListUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []User{
		{Name: "admin", Tags: []string{"administrator", "management"}},
		{Name: "guest", Tags: nil},
	}

	if !reflect.DeepEqual(users, want) {
		t.Errorf("users = %v, want %v", users, want)
	}
}

func TestMutateFailureCarriesStderr(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner(&control.ExecutionResult{
		ExitCode: 70,
		Stderr:   "Error: user bob already exists",
	})
	ctl := newTestCtl(runner)

	execution, err := ctl.AddUser(context.Background(), "bob", "secret")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("error = %v, want ErrCommandFailed", err)
	}

	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error %q should carry stderr detail", err)
	}

	if execution == nil || execution.ExitCode != 70 {
		t.Errorf("execution should still be returned: %+v", execution)
	}
}

func TestMutateTimeout(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner(&control.ExecutionResult{TimedOut: true, ExitCode: -1})
	ctl := newTestCtl(runner)

	_, err := ctl.DeleteVHost(context.Background(), "/stale")
	if !errors.Is(err, ErrCommandTimedOut) {
		t.Errorf("error = %v, want ErrCommandTimedOut", err)
	}
}

func TestNodeHealthCheckVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		result      *control.ExecutionResult
		wantHealthy bool
	}{
		{
			name:        "healthy node exits zero",
			result:      &control.ExecutionResult{ExitCode: 0, Stdout: "Health check passed"},
			wantHealthy: true,
		},
		{
			name:        "unhealthy node exits non-zero",
			result:      &control.ExecutionResult{ExitCode: 70, Stdout: "Health check failed"},
			wantHealthy: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctl := newTestCtl(testutil.NewFakeRunner(tt.result))

			healthy, execution, err := ctl.NodeHealthCheck(context.Background())
			if err != nil {
				t.Fatalf("verdict should not be an error: %v", err)
			}

			if healthy != tt.wantHealthy {
				t.Errorf("healthy = %t, want %t", healthy, tt.wantHealthy)
			}

			if execution == nil {
				t.Error("execution record missing")
			}
		})
	}
}

func TestSetPolicyDefinitionStaysOneToken(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0})
	ctl := newTestCtl(runner)

	definition := `{"ha-mode":"all","ha-sync-mode":"automatic"}`

	_, err := ctl.SetPolicy(context.Background(), "/prod", "ha-all", "^ha\\.", definition)
	if err != nil {
		t.Fatal(err)
	}

	args := runner.Calls()[0].Args

	var found bool

	for _, arg := range args {
		if arg == definition {
			found = true
		}
	}

	if !found {
		t.Errorf("definition not passed as one literal token: %v", args)
	}
}
