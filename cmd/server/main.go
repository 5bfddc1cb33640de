package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"browserwarden-mcp-server/internal/backend"
	"browserwarden-mcp-server/internal/config"
	mcpserver "browserwarden-mcp-server/internal/mcp"
	"browserwarden-mcp-server/internal/recorder"
	"browserwarden-mcp-server/internal/session"
)

func main() {
	configPath := flag.String("config", "", "Path to the BrowserWarden MCP config file")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	noWorkspace := flag.Bool("no-workspace", false, "Disable .browserwarden workspace discovery")
	workspaceDir := flag.String("workspace-dir", "", "Explicit workspace directory (skips walk-up discovery)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, wsDir, err := config.LoadWithWorkspace(*configPath, config.WorkspaceOptions{
		Disable:     *noWorkspace,
		ExplicitDir: *workspaceDir,
	})
	if err != nil {
		// Before we can redirect logs, write to stderr as last resort
		log.Fatalf("failed to load config: %v", err)
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if wsDir != "" {
		log.Printf("using workspace at %s", wsDir)
	}

	browser := backend.NewRod(cfg.Browser)
	if cfg.Browser.AutoStart {
		if err := browser.Start(ctx); err != nil {
			log.Fatalf("failed to start browser backend: %v", err)
		}
	} else {
		log.Printf("browser auto-start disabled; set browser.auto_start or configure debugger_url")
	}

	registry := session.NewRegistry(browser)

	if cfg.Audit.TraceEnabled {
		rec, err := recorder.NewRecorder(cfg.Audit.TraceDir, cfg.Audit.GetMaxTraces())
		if err != nil {
			log.Fatalf("failed to initialize audit recorder: %v", err)
		}
		if err := rec.Start("server"); err != nil {
			log.Fatalf("failed to start audit trace: %v", err)
		}
		defer rec.Close()
		registry.SetMirror(func(sessionName string, ev session.Event) {
			rec.Log(string(ev.Type), sessionName, ev)
		})
	}

	server, err := mcpserver.NewServer(cfg, registry)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting BrowserWarden MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting BrowserWarden MCP stdio server")
		startErr = server.Start(ctx)
	}

	registry.Shutdown(context.Background())
	if cfg.Browser.AutoStart {
		if err := browser.Shutdown(context.Background()); err != nil {
			log.Printf("browser shutdown: %v", err)
		}
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}
