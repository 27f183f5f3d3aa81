// Command meetingbot runs the multi-session meeting-bot orchestrator:
// an HTTP admission API backed by the concurrent session lifecycle
// engine (scheduler, profile registry, browser pool, capture loops).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/meetingbot/pkg/api"
	"github.com/codeready-toolchain/meetingbot/pkg/artifact"
	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/credentials"
	"github.com/codeready-toolchain/meetingbot/pkg/diarize"
	"github.com/codeready-toolchain/meetingbot/pkg/events"
	"github.com/codeready-toolchain/meetingbot/pkg/masking"
	"github.com/codeready-toolchain/meetingbot/pkg/profile"
	"github.com/codeready-toolchain/meetingbot/pkg/scheduler"
	"github.com/codeready-toolchain/meetingbot/pkg/session"
	"github.com/codeready-toolchain/meetingbot/pkg/summary"
	"github.com/codeready-toolchain/meetingbot/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	log.Printf("Starting %s", version.Full())

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	svc, err := buildServices(cfg)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}

	sched := scheduler.New(cfg.Scheduler, svc.runner, svc.store, svc.sink)
	sched.Start(ctx)

	server := api.NewServer(sched)

	addr := ":" + getEnv("HTTP_PORT", "8080")
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	waitForShutdown()

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
	sched.Stop()
}

// services bundles every collaborator the Scheduler and Session Runner
// need, constructed once at startup and passed explicitly rather than
// reached for as package-level singletons.
type services struct {
	runner *session.Runner
	store  *session.Store
	sink   *events.Tee
}

func buildServices(cfg *config.Config) (*services, error) {
	profiles, err := profile.NewRegistry(cfg.Browser.ProfilesRoot, cfg.Browser.DefaultProfileName)
	if err != nil {
		return nil, err
	}

	pages := browser.NewPool(cfg.Browser)

	vault, err := credentials.New(cfg.Credentials)
	if err != nil {
		slog.Warn("Credential vault unavailable, continuing without it", "error", err)
		vault = nil
	}
	_ = vault // reserved for a future platform-login flow; not yet consumed by any Flow

	sink := &events.Tee{Hub: events.NewHub(), Forwarder: events.NewForwarder(cfg.Artifacts)}
	artifacts := artifact.New(cfg.Artifacts)

	diarizer := diarize.New(cfg.Diarization, nil, nil)

	mask := masking.New()

	summaryBuilder := &summary.Builder{
		Identity:      cfg.Identity,
		ChunkInterval: cfg.Session.ChunkInterval,
		Store:         artifacts,
		Sink:          sink,
	}

	runner := &session.Runner{
		Profiles: profiles,
		Pages:    pages,
		Sink:     sink,
		Store:    artifacts,
		Diarizer: diarizer,
		Summary:  summaryBuilder,
		Snapshot: artifacts,
		Masking:  mask,
		Session:  cfg.Session,
		Identity: cfg.Identity,
	}

	return &services{
		runner: runner,
		store:  session.NewStore(),
		sink:   sink,
	}, nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
