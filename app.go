package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"brokerctl/internal/config"
	wshandler "brokerctl/internal/handlers/websocket"
	"brokerctl/pkg/control"
	"brokerctl/pkg/logger"
	"brokerctl/pkg/rabbitmq"
)

// Static errors for err113 compliance.
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingCommand  = errors.New("missing command")
	ErrProbeDisabled   = errors.New("probe is not configured")
	ErrMissingRunArgs  = errors.New("usage: run <tool> <verb> [args...]")
	ErrAuditNotEnabled = errors.New("audit is not enabled in configuration")
)

const serverShutdownTimeout = 10 * time.Second

// app holds the wired-up service graph.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	executor *rabbitmq.Executor
	ctl      *rabbitmq.CtlClient
	plugins  *rabbitmq.PluginsClient
	audit    *rabbitmq.AuditService
	probe    *rabbitmq.Probe
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	plog := logger.Printf{L: log}

	locator := control.NewLocator(cfg.ToolOverrides(), plog)

	var runner control.Runner = control.NewExecRunner(plog)
	if cfg.Guard.Enabled {
		runner = control.NewGuardedRunner(runner, control.GuardConfig{
			Name:             "rabbitmq-control",
			MaxRequests:      uint32(cfg.Guard.MaxRequests),
			Interval:         time.Duration(cfg.Guard.IntervalSeconds) * time.Second,
			Timeout:          time.Duration(cfg.Guard.TimeoutSeconds) * time.Second,
			FailureThreshold: uint32(cfg.Guard.FailureThreshold),
			RatePerSecond:    cfg.Guard.RatePerSecond,
			Burst:            cfg.Guard.Burst,
		}, plog)
	}

	audit, err := buildAuditService(cfg, plog)
	if err != nil {
		return nil, err
	}

	opts := control.CommonOptions{
		Node:  cfg.Defaults.Node,
		Quiet: cfg.IsQuiet(),
	}
	if cfg.Defaults.TimeoutSeconds > 0 {
		opts.TimeoutSeconds = control.Timeout(cfg.Defaults.TimeoutSeconds)
	}

	executor := rabbitmq.NewExecutor(locator, runner, opts, nil, audit, plog)

	a := &app{
		cfg:      cfg,
		log:      log,
		executor: executor,
		ctl:      rabbitmq.NewCtlClient(executor, plog),
		plugins:  rabbitmq.NewPluginsClient(executor, plog),
		audit:    audit,
	}

	if cfg.Probe.Enabled {
		a.probe = rabbitmq.NewProbe(rabbitmq.ProbeConfig{
			URI:      cfg.Probe.URI,
			Host:     cfg.Probe.Host,
			Port:     cfg.Probe.Port,
			Username: cfg.Probe.Username,
			Password: cfg.Probe.Password,
			VHost:    cfg.Probe.VHost,
			UseTLS:   cfg.Probe.UseTLS,
		}, plog)
	}

	return a, nil
}

func buildAuditService(cfg *config.Config, plog logger.Printf) (*rabbitmq.AuditService, error) {
	if !cfg.Audit.Enabled {
		return nil, nil //nolint:nilnil // absent audit is a valid configuration
	}

	vaultConfig := vaultapi.DefaultConfig()
	vaultConfig.Address = cfg.Audit.Address

	if cfg.Audit.Insecure || cfg.Audit.CACert != "" {
		err := vaultConfig.ConfigureTLS(&vaultapi.TLSConfig{
			Insecure: cfg.Audit.Insecure,
			CACert:   cfg.Audit.CACert,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
		}
	}

	client, err := vaultapi.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Audit.Token)

	return rabbitmq.NewAuditService(client, cfg.Audit.Prefix, plog), nil
}

// run dispatches the requested subcommand.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrMissingCommand
	}

	switch args[0] {
	case "serve":
		return a.serve(ctx)
	case "run":
		return a.runCommand(ctx, args[1:])
	case "history":
		return a.showHistory(ctx, args[1:])
	case "probe":
		return a.runProbe(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

// serve starts the streaming endpoint and blocks until the context ends.
func (a *app) serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", wshandler.NewHandler(a.executor, a.log))
	mux.HandleFunc("/health", a.handleHealth)

	addr := net.JoinHostPort(a.cfg.Web.BindIP, a.cfg.Web.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("brokerctl listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}

		return nil
	}
}

// handleHealth answers with the node's control-plane and listener health.
func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy, _, err := a.ctl.NodeHealthCheck(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)

		return
	}

	if a.probe != nil {
		if err := a.probe.Check(r.Context()); err != nil {
			http.Error(w, "amqp probe failed: "+err.Error(), http.StatusServiceUnavailable)

			return
		}
	}

	if !healthy {
		http.Error(w, "node unhealthy", http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// runCommand executes one control-tool command and prints its output.
func (a *app) runCommand(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return ErrMissingRunArgs
	}

	tool := rabbitmq.Tool(args[0])
	spec := control.CommandSpec{Verb: args[1], Positional: args[2:]}

	execution, err := a.executor.Run(ctx, tool, spec, rabbitmq.Scope{User: "cli"})
	if err != nil {
		return err
	}

	fmt.Print(execution.Output)

	if !execution.Success {
		return fmt.Errorf("%w: %s %s exited %d", rabbitmq.ErrCommandFailed, tool, spec.Verb, execution.ExitCode)
	}

	return nil
}

// showHistory prints recent audit entries, or aggregate statistics when
// invoked as "history summary".
func (a *app) showHistory(ctx context.Context, args []string) error {
	if a.audit == nil {
		return ErrAuditNotEnabled
	}

	if len(args) > 0 && args[0] == "summary" {
		return a.showHistorySummary(ctx)
	}

	limit := rabbitmq.DefaultHistoryLimit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}

	entries, err := a.audit.History(ctx, limit)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Println(a.audit.FormatEntry(entry))
	}

	return nil
}

func (a *app) showHistorySummary(ctx context.Context) error {
	summary, err := a.audit.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("entries: %d (%d ok, %d failed)\n",
		summary.TotalEntries, summary.SuccessfulCmds, summary.FailedCmds)

	for command, count := range summary.Commands {
		fmt.Printf("  %-40s %d\n", command, count)
	}

	return nil
}

// runProbe performs a one-shot AMQP liveness check.
func (a *app) runProbe(ctx context.Context) error {
	if a.probe == nil {
		return ErrProbeDisabled
	}

	if err := a.probe.Check(ctx); err != nil {
		return err
	}

	fmt.Println("amqp probe ok")

	return nil
}
