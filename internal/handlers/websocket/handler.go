package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gorillawebsocket "github.com/gorilla/websocket"

	"brokerctl/pkg/control"
	"brokerctl/pkg/logger"
	"brokerctl/pkg/rabbitmq"
)

const (
	commandTypeExecute = "execute"
	commandTypePing    = "ping"

	// WebSocket buffer sizes.
	websocketReadBufferSize  = 1024
	websocketWriteBufferSize = 1024
)

// Static errors for err113 compliance.
var (
	ErrExecutorNotAvailable = errors.New("executor not available")
)

// commandMessage is what the client sends over the socket.
type commandMessage struct {
	Type      string   `json:"type"`
	Tool      string   `json:"tool"`
	Verb      string   `json:"verb"`
	Arguments []string `json:"arguments"`
	VHost     string   `json:"vhost"`
}

// Handler streams command executions over a WebSocket connection. The client
// sends execute messages; the handler answers with execution_started, one
// output message per line, and a final execution_completed.
type Handler struct {
	executor *rabbitmq.Executor
	logger   logger.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(executor *rabbitmq.Executor, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Get()
	}

	return &Handler{
		executor: executor,
		logger:   log.Named("websocket"),
	}
}

// ServeHTTP upgrades the connection and serves the message loop until the
// client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}

	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.messageLoop(ctx, conn, r.RemoteAddr)
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*gorillawebsocket.Conn, error) {
	upgrader := gorillawebsocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: implement proper origin checking
		},
		ReadBufferSize:  websocketReadBufferSize,
		WriteBufferSize: websocketWriteBufferSize,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)

		return nil, fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	return conn, nil
}

func (h *Handler) messageLoop(ctx context.Context, conn *gorillawebsocket.Conn, clientIP string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := h.processMessage(ctx, conn, clientIP)
			if err != nil {
				return
			}
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, conn *gorillawebsocket.Conn, clientIP string) error {
	var message commandMessage

	err := conn.ReadJSON(&message)
	if err != nil {
		if gorillawebsocket.IsUnexpectedCloseError(err, gorillawebsocket.CloseGoingAway, gorillawebsocket.CloseAbnormalClosure) {
			h.logger.Errorf("WebSocket read error: %v", err)
		}

		return fmt.Errorf("failed to read websocket message: %w", err)
	}

	switch message.Type {
	case commandTypeExecute:
		h.handleExecute(ctx, conn, message, clientIP)

		return nil
	case commandTypePing:
		return h.sendPong(conn)
	default:
		return h.sendUnknownMessageError(conn, message.Type)
	}
}

func (h *Handler) handleExecute(ctx context.Context, conn *gorillawebsocket.Conn, message commandMessage, clientIP string) {
	if h.executor == nil {
		h.sendError(conn, ErrExecutorNotAvailable.Error())

		return
	}

	scope := rabbitmq.Scope{
		VHost:    message.VHost,
		User:     "websocket-user", // TODO: get from auth
		ClientIP: clientIP,
	}

	spec := control.CommandSpec{
		Verb:       message.Verb,
		Positional: message.Arguments,
	}

	streaming, err := h.executor.RunStreaming(ctx, rabbitmq.Tool(message.Tool), spec, scope)
	if err != nil {
		h.sendError(conn, err.Error())

		return
	}

	err = conn.WriteJSON(map[string]interface{}{
		"type":         "execution_started",
		"execution_id": streaming.ExecutionID,
		"tool":         streaming.Tool,
		"verb":         streaming.Verb,
		"arguments":    streaming.Arguments,
		"status":       streaming.Status,
	})
	if err != nil {
		h.logger.Errorf("Failed to send execution started response: %v", err)

		return
	}

	h.streamOutput(ctx, conn, streaming)
}

// streamOutput forwards output lines until the channel closes, then sends the
// final status.
func (h *Handler) streamOutput(ctx context.Context, conn *gorillawebsocket.Conn, streaming *rabbitmq.StreamingExecution) {
	defer h.sendFinalResponse(conn, streaming)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-streaming.Output:
			if !ok {
				return
			}

			err := conn.WriteJSON(map[string]interface{}{
				"type":         "output",
				"execution_id": streaming.ExecutionID,
				"data":         line,
			})
			if err != nil {
				h.logger.Errorf("Failed to send output: %v", err)

				return
			}
		}
	}
}

func (h *Handler) sendFinalResponse(conn *gorillawebsocket.Conn, streaming *rabbitmq.StreamingExecution) {
	finalResponse := map[string]interface{}{
		"type":         "execution_completed",
		"execution_id": streaming.ExecutionID,
		"status":       streaming.Status,
		"success":      streaming.Success,
		"exit_code":    streaming.ExitCode,
	}

	if streaming.EndTime != nil {
		finalResponse["end_time"] = *streaming.EndTime
		finalResponse["duration"] = streaming.EndTime.Sub(streaming.StartTime).Milliseconds()
	}

	if streaming.Error != "" {
		finalResponse["error"] = streaming.Error
	}

	err := conn.WriteJSON(finalResponse)
	if err != nil {
		h.logger.Errorf("Failed to send final WebSocket response: %v", err)
	}
}

func (h *Handler) sendPong(conn *gorillawebsocket.Conn) error {
	err := conn.WriteJSON(map[string]interface{}{"type": "pong"})
	if err != nil {
		h.logger.Errorf("Failed to send pong: %v", err)

		return fmt.Errorf("failed to send pong response: %w", err)
	}

	return nil
}

func (h *Handler) sendUnknownMessageError(conn *gorillawebsocket.Conn, messageType string) error {
	err := conn.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": "unknown message type: " + messageType,
	})
	if err != nil {
		h.logger.Errorf("Failed to send error response: %v", err)

		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}

func (h *Handler) sendError(conn *gorillawebsocket.Conn, message string) {
	err := conn.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": message,
	})
	if err != nil {
		h.logger.Errorf("Failed to send WebSocket error response: %v", err)
	}
}
