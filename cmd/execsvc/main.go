package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/api"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/config"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runner"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/sandbox"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable to allow mocking in tests.
var startServer = runServer

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		startServer()
		return 0
	}

	switch args[1] {
	case "server", "serve":
		startServer()
		return 0
	case "health":
		return runHealthCmd(stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if args[1][0] == '-' {
			startServer()
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "execution service")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  execsvc <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  server   Run the execution service (default)")
	fmt.Fprintln(w, "  health   Check server health (HTTP)")
	fmt.Fprintln(w, "  help     Show this help")
	fmt.Fprintln(w, "")
}

func runServer() {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	imports := sandbox.NewImportGuard()
	names := sandbox.NewNameGuard()
	sb := sandbox.NewYaegiSandbox(imports, names)

	cardRunner := runner.NewCardRunner(sb, cfg.TimeoutSecondsCard, cfg.MaxMemoryMBCard)
	transformRunner := runner.NewTransformRunner(sb, cfg.TimeoutSecondsTransform, cfg.MaxMemoryMBTransform)
	handlers := api.NewExecutionHandlers(cardRunner, transformRunner)

	rateLimiter := api.NewGlobalRateLimiter(int(cfg.RateLimitRPS), cfg.RateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/execute/card", handlers.ExecuteCard)
	mux.HandleFunc("/execute/transform", handlers.ExecuteTransform)

	addr := cfg.BindHost + ":" + cfg.BindPort
	srv := &http.Server{
		Addr:    addr,
		Handler: api.WithRequestID(rateLimiter.Middleware(mux)),
	}

	go func() {
		logger.Info("execution service starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func runHealthCmd(out, errOut io.Writer) int {
	cfg := config.Load()
	resp, err := http.Get("http://" + cfg.BindHost + ":" + cfg.BindPort + "/health")
	if err != nil {
		fmt.Fprintf(errOut, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(errOut, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}

	fmt.Fprintln(out, "OK")
	return 0
}
