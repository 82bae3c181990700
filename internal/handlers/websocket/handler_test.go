package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"

	"brokerctl/pkg/control"
	"brokerctl/pkg/logger"
	"brokerctl/pkg/rabbitmq"
	"brokerctl/pkg/testutil"
)

func newTestServer(t *testing.T, runner control.Runner) *gorillawebsocket.Conn {
	t.Helper()

	locator := control.NewLocator(map[string]string{
		"rabbitmqctl":      "/usr/sbin/rabbitmqctl",
		"rabbitmq-plugins": "/usr/sbin/rabbitmq-plugins",
	}, nil)

	executor := rabbitmq.NewExecutor(locator, runner, control.CommonOptions{}, nil, nil, nil)

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(NewHandler(executor, log))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	return conn
}

func readMessage(t *testing.T, conn *gorillawebsocket.Conn) map[string]interface{} {
	t.Helper()

	var message map[string]interface{}
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	return message
}

func TestPingPong(t *testing.T) {
	t.Parallel()

	conn := newTestServer(t, testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0}))

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}

	message := readMessage(t, conn)
	if message["type"] != "pong" {
		t.Errorf("response type = %v, want pong", message["type"])
	}
}

func TestUnknownMessageType(t *testing.T) {
	t.Parallel()

	conn := newTestServer(t, testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0}))

	if err := conn.WriteJSON(map[string]string{"type": "self-destruct"}); err != nil {
		t.Fatal(err)
	}

	message := readMessage(t, conn)
	if message["type"] != "error" {
		t.Fatalf("response type = %v, want error", message["type"])
	}

	if !strings.Contains(message["error"].(string), "self-destruct") {
		t.Errorf("error = %v", message["error"])
	}
}

func TestExecuteStreamsOutputAndCompletion(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner(&control.ExecutionResult{
		ExitCode: 0,
		Stdout:   "line one\nline two\n",
	})

	conn := newTestServer(t, runner)

	err := conn.WriteJSON(map[string]interface{}{
		"type": "execute",
		"tool": "rabbitmqctl",
		"verb": "status",
	})
	if err != nil {
		t.Fatal(err)
	}

	started := readMessage(t, conn)
	if started["type"] != "execution_started" {
		t.Fatalf("first message type = %v, want execution_started", started["type"])
	}

	if started["execution_id"] == "" {
		t.Error("execution_id missing")
	}

	var outputs []string

	for {
		message := readMessage(t, conn)

		switch message["type"] {
		case "output":
			outputs = append(outputs, message["data"].(string))

			continue
		case "execution_completed":
			if message["success"] != true {
				t.Errorf("success = %v, want true", message["success"])
			}

			if message["status"] != string(rabbitmq.StatusCompleted) {
				t.Errorf("status = %v, want completed", message["status"])
			}
		default:
			t.Fatalf("unexpected message: %v", message)
		}

		break
	}

	joined := strings.Join(outputs, "\n")
	if !strings.Contains(joined, "line one") || !strings.Contains(joined, "line two") {
		t.Errorf("outputs = %v, want both stdout lines", outputs)
	}
}

func TestExecuteUnknownVerbSendsError(t *testing.T) {
	t.Parallel()

	conn := newTestServer(t, testutil.NewFakeRunner(&control.ExecutionResult{ExitCode: 0}))

	err := conn.WriteJSON(map[string]interface{}{
		"type": "execute",
		"tool": "rabbitmqctl",
		"verb": "explode",
	})
	if err != nil {
		t.Fatal(err)
	}

	message := readMessage(t, conn)
	if message["type"] != "error" {
		t.Errorf("response type = %v, want error", message["type"])
	}
}
