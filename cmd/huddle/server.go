package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/huddle/internal/api"
	"github.com/kalambet/huddle/internal/config"
	"github.com/kalambet/huddle/internal/digest"
	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/insights"
	"github.com/kalambet/huddle/internal/logging"
	"github.com/kalambet/huddle/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the huddle server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpStdio, _ := cmd.Flags().GetBool("mcp")
		return runServer(mcpStdio)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running huddle server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show huddle system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "huddle.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(mcpStdio bool) error {
	fmt.Fprintf(os.Stderr, "huddle version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)

	apiToken, err := config.GetAPIToken(cfg, config.Secrets())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("huddle is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("huddle is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := engine.NewRegistry(cfg.Engine())
	if strings.EqualFold(cfg.Model.Provider, engine.ProviderOllama) {
		eng, err := registry.Engine(engine.ProviderOllama)
		if err != nil {
			return err
		}
		if r, ok := eng.(engine.Readiness); ok {
			if err := engine.EnsureReady(ctx, r, cfg.Ollama.Model, os.Stderr); err != nil {
				return err
			}
		}
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	svc := insights.NewService(store, registry,
		insights.WithLocation(insights.LoadLocation(cfg.Digest.Timezone)),
		insights.WithLogger(logger),
	)

	timeout, err := requestTimeout(cfg)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	handler := api.NewRouter(api.AppDeps{
		Insights: svc,
		Store:    store,
		Token:    apiToken,
		Today:    svc.Today,
		Timeout:  timeout,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	worker := digest.NewWorker(store, svc, 500*time.Millisecond)
	go worker.Run(ctx)

	if teams := cfg.DigestTeams(); len(teams) > 0 {
		sched, err := digest.NewScheduler(store, cfg.Digest.Time, insights.LoadLocation(cfg.Digest.Timezone), teams)
		if err != nil {
			return fmt.Errorf("configuring digest: %w", err)
		}
		go sched.Run(ctx)
		slog.Info("daily digest scheduled", "teams", teams, "next", sched.Next())
	}

	if mcpStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Insights: svc, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "huddle listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("huddle is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop huddle (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to huddle (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Provider", "%s", cfg.Model.Provider)
	printStatus("Groq", "%s", providerState(cfg.Groq.APIKey, cfg.Groq.Model))
	printStatus("Gemini", "%s", providerState(cfg.Gemini.APIKey, cfg.Gemini.Model))

	if ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version"); err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s (%s)", cfg.Ollama.BaseURL, cfg.Ollama.Model)
	}

	if teams := cfg.DigestTeams(); len(teams) > 0 {
		printStatus("Digest", "%s %s for %s", cfg.Digest.Time, cfg.Digest.Timezone, strings.Join(teams, ", "))
	} else {
		printStatus("Digest", "disabled")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func providerState(apiKey, model string) string {
	if apiKey == "" {
		return "not configured"
	}
	return "configured (" + model + ")"
}
