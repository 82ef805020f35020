package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-esign-templates/internal/config"
	"github.com/a3tai/mcp-esign-templates/internal/mcp"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/service"
	"github.com/a3tai/mcp-esign-templates/internal/worker"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	switch {
	case cfg.IsStdioMode(), cfg.IsWorkerMode():
		// stdout carries the protocol in both modes
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	default:
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newService builds the template service. Only the parent process gets a
// runner; a worker composes in-process and never spawns another worker.
func newService(cfg *config.Config) (*service.Service, error) {
	opts := service.Options{
		TemplateDir: cfg.TemplateDirectory,
		MaxFileSize: cfg.MaxFileSize,
		CacheSize:   cfg.CacheSize,
	}
	if !cfg.IsWorkerMode() {
		runner, err := newRunner(cfg)
		if err != nil {
			return nil, err
		}
		opts.Runner = runner
	}
	return service.NewService(opts)
}

func newRunner(cfg *config.Config) (*worker.ProcessRunner, error) {
	binary := cfg.WorkerBinary
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker binary: %w", err)
		}
		binary = self
	}
	return worker.NewProcessRunner(binary, cfg.WorkerTimeout, cfg.WorkerArgs()...), nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// runWorkerMode answers exactly one composition request on stdin/stdout.
// Failures that made it into the response are the caller's to report, so
// only a response that could not be written ends with a non-zero status.
func runWorkerMode(ctx context.Context, svc *service.Service, in io.Reader, out io.Writer) int {
	if err := worker.Serve(ctx, in, out, svc.Compose); err != nil {
		log.Printf("Worker error: %v", err)
		if pdferrors.TypeOf(err) == pdferrors.ErrorTypeIO {
			return 1
		}
	}
	return 0
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	svc, err := newService(cfg)
	if err != nil {
		log.Fatalf("Failed to create template service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsWorkerMode() {
		code := runWorkerMode(ctx, svc, os.Stdin, os.Stdout)
		cancel()
		os.Exit(code)
	}

	server, err := mcp.NewServer(cfg, svc)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP E-Sign Templates\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
