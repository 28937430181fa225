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

	"github.com/kalambet/deptline/internal/api"
	"github.com/kalambet/deptline/internal/cache"
	"github.com/kalambet/deptline/internal/config"
	"github.com/kalambet/deptline/internal/directory"
	"github.com/kalambet/deptline/internal/gemini"
	"github.com/kalambet/deptline/internal/history"
	"github.com/kalambet/deptline/internal/interpret"
	"github.com/kalambet/deptline/internal/resolver"
	"github.com/kalambet/deptline/internal/scrape"
	"github.com/kalambet/deptline/internal/search"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the deptline server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running deptline server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show deptline system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "deptline.pid")
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

func runServer() error {
	fmt.Fprintf(os.Stderr, "deptline version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Missing API keys degrade the pipeline rather than blocking startup:
	// cache and directory lookups still work.
	if cfg.Gemini.APIKey == "" {
		printWarning("Gemini API key not configured — queries will not be interpreted (set DEPTLINE_GEMINI_API_KEY)")
	}
	if cfg.Google.APIKey == "" || cfg.Google.SearchEngineID == "" {
		printWarning("Google Search credentials not configured — web lookups disabled (set DEPTLINE_GOOGLE_API_KEY and DEPTLINE_GOOGLE_SEARCH_ENGINE_ID)")
	}

	apiToken, err := config.APIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("deptline is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("deptline is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open stores.
	dir, err := directory.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening directory store: %w", err)
	}
	phoneCache, err := cache.Open(cfg.Storage.DataDir, cfg.Cache.DurationDays)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	hist, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing history store: %v\n", err)
		}
	}()

	// Build the resolution pipeline.
	geminiClient := gemini.New(gemini.DefaultBaseURL, cfg.Gemini.APIKey)
	interpreter := interpret.NewInterpreter(geminiClient, cfg.Gemini.Model, cfg.Institution.Name)
	searchClient := search.NewClient(search.DefaultBaseURL, cfg.Google.APIKey, cfg.Google.SearchEngineID)
	finder := search.NewFinder(searchClient, cfg.Institution.Name, cfg.Search.MaxResults)
	fetcher := scrape.NewFetcher()

	res := resolver.New(resolver.Config{
		Interpreter: interpreter,
		Cache:       phoneCache,
		Directory:   dir,
		Search:      finder,
		Fetcher:     fetcher,
		Recorder:    hist,
		AreaCodes:   cfg.Institution.AreaCodeList(),
	})

	handler := api.NewAppHandler(api.AppDeps{
		Resolver: res,
		History:  hist,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Resolver: res,
		History:  hist,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "deptline listening on %s\n", addr)
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
		printError("deptline is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop deptline (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to deptline (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Institution", "%s (area codes %s)", cfg.Institution.Name, cfg.Institution.AreaCodes)
	if cfg.Gemini.APIKey == "" {
		printStatus("Interpreter", "disabled (no Gemini API key)")
	} else {
		printStatus("Interpreter", "%s", cfg.Gemini.Model)
	}
	if cfg.Google.APIKey == "" || cfg.Google.SearchEngineID == "" {
		printStatus("Web search", "disabled (no Google credentials)")
	} else {
		printStatus("Web search", "enabled (max %d results)", cfg.Search.MaxResults)
	}

	if running {
		if apiToken, tokenErr := config.APIToken(cfg.Storage.DataDir); tokenErr == nil {
			if depsResp, err := apiGet(client, serverURL+"/departments", apiToken); err == nil {
				var body struct {
					Departments []struct {
						Name string `json:"name"`
					} `json:"departments"`
				}
				if decodeJSON(depsResp, &body) == nil {
					printStatus("Departments", "%d", len(body.Departments))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
