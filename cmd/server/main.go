package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kjannette/paper-trader/internal/api"
	"github.com/kjannette/paper-trader/internal/app"
	"github.com/kjannette/paper-trader/internal/config"
	"github.com/kjannette/paper-trader/internal/logging"
)

const banner = `
╔══════════════════════════════════════╗
║       Paper Trader API v0.3          ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	for _, w := range cfg.Warnings() {
		fmt.Printf("[WARN] %s\n", w)
	}

	cfg.Print()

	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	if !cfg.LogPretty {
		gin.SetMode(gin.ReleaseMode)
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n[STORE] Opening %s backend ...\n", cfg.StoreBackend)
	a, err := app.Open(ctx, cfg, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[STORE] Open failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		a.Close()
		fmt.Println("[STORE] Closed")
	}()

	// 1. API server
	srv := api.NewServer(a.Service, a.Scheduler, a.Store, api.Options{
		Port:       cfg.ServerPort,
		APIKey:     cfg.APIKey,
		CORSOrigin: cfg.CORSAllowOrigin,
		Log:        log,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Periodic reconciliation feeding the live stream and alerts
	a.Scheduler.Start()

	if a.Notifier.Enabled() {
		a.Notifier.Send("Paper trader started")
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	a.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
