package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codefionn/werkbote/internal/agent"
	"github.com/codefionn/werkbote/internal/approval"
	"github.com/codefionn/werkbote/internal/audit"
	"github.com/codefionn/werkbote/internal/config"
	"github.com/codefionn/werkbote/internal/llm"
	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/pidfile"
	"github.com/codefionn/werkbote/internal/sandbox"
	"github.com/codefionn/werkbote/internal/scheduler"
	"github.com/codefionn/werkbote/internal/session"
	"github.com/codefionn/werkbote/internal/tools"
	"github.com/codefionn/werkbote/internal/web"
	"github.com/codefionn/werkbote/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the configuration file")
	workspaceRoot := flag.String("workspace", "", "workspace root directory (overrides config)")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error, none")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *workspaceRoot != "" {
		cfg.WorkspaceRoot = *workspaceRoot
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logger.Global().Close()

	pid, err := pidfile.Acquire(cfg.PidPath)
	if err != nil {
		return err
	}
	defer pid.Release()

	sb, err := sandbox.New(cfg.WorkspaceRoot)
	if err != nil {
		return err
	}
	logger.Info("werkbote: workspace root %s", sb.Root())

	store := workspace.NewStore(sb, time.Duration(cfg.CacheTTLSeconds)*time.Second, cfg.MaxCacheEntries)
	defer store.Close()

	auditLog, err := audit.NewLog(cfg.AuditPath)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	ledger := approval.NewLedger()

	registry := tools.NewRegistry()
	registry.Register(tools.NewReadFileTool(store, cfg.MaxReadBytes))
	registry.Register(tools.NewListDirTool(store))
	registry.Register(tools.NewWriteFileTool(store, ledger))
	registry.Register(tools.NewDeletePathTool(ledger))

	gateway := tools.NewGateway(registry)
	dispatcher := tools.NewDispatcher(gateway, ledger, store, auditLog)

	sessions, err := session.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	var ag *agent.Agent
	if key := cfg.APIKey(); key != nil && !key.IsEmpty() {
		client, err := llm.NewAnthropicClient(key.String(), cfg.Model)
		if err != nil {
			return err
		}
		ag = agent.New(client, dispatcher, sessions, nil)
		logger.Info("werkbote: using model %s", client.ModelName())
	} else {
		logger.Warn("werkbote: ANTHROPIC_API_KEY not set, message endpoints are disabled")
	}

	server := web.NewServer(cfg.ListenAddr, dispatcher, ag, sessions, auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(sessions, time.Duration(cfg.SchedulerSeconds)*time.Second,
		func(ctx context.Context, msg *session.ScheduledMessage) error {
			server.Hub().Broadcast(&web.StreamEvent{Kind: "scheduled", Payload: msg})
			logger.Info("werkbote: delivered scheduled message %s", msg.ID)
			return nil
		})
	go sched.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("werkbote: received %v, shutting down", sig)
	}

	cancel()
	return server.Stop()
}
