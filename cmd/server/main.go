package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaosduck/chaos-agents/internal/config"
	"github.com/chaosduck/chaos-agents/internal/event"
	"github.com/chaosduck/chaos-agents/internal/handler"
	"github.com/chaosduck/chaos-agents/internal/observability"
	"github.com/chaosduck/chaos-agents/internal/orchestrator"
)

func main() {
	cfg := config.Load()

	// Orchestrator and its event sinks. Every run is logged; Prometheus
	// rollback counters are driven off the same event stream rather than
	// the orchestrator depending on the observability package directly.
	metrics := observability.NewMetrics()
	orch := orchestrator.New()
	orch.AddEventSink(event.NewLogSink())
	orch.AddEventSink(observability.NewEventSink(metrics))

	chaosHandler := handler.NewChaosHandler(orch, metrics)
	r := handler.SetupRouter(chaosHandler, metrics, cfg.CORSAllowOrigin)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("chaos-agents starting on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced shutdown: %v", err)
	}

	log.Println("Server stopped")
}
