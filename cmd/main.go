package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/flipwatch/flipwatch/internal/adapters/inbound/gamefeed"
	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
	"github.com/flipwatch/flipwatch/internal/config"
	"github.com/flipwatch/flipwatch/internal/core/analysis"
	"github.com/flipwatch/flipwatch/internal/core/cashstack"
	"github.com/flipwatch/flipwatch/internal/core/exchange"
	"github.com/flipwatch/flipwatch/internal/core/journal"
	"github.com/flipwatch/flipwatch/internal/core/recording"
	"github.com/flipwatch/flipwatch/internal/core/refresh"
	"github.com/flipwatch/flipwatch/internal/events"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting flipwatch")

	if cfg.APIBaseURL == "" {
		telemetry.Errorf("FLIP_API_URL missing — set it in .env")
		os.Exit(1)
	}

	bus := events.NewBus()

	// ── Limits ──────────────────────────────────────────────────
	limits, err := config.LoadLimits(cfg.LimitsPath)
	if err != nil {
		telemetry.Warnf("Limits file: %v (using defaults)", err)
		limits = config.DefaultLimits()
	}

	// ── Flip API client ─────────────────────────────────────────
	auth := flipapi.NewTokenManager(cfg.APIBaseURL, cfg.APIEmail, cfg.APIPassword)
	client := flipapi.NewClient(cfg.APIBaseURL, auth,
		rate.NewLimiter(rate.Limit(limits.API.ReadPerSec), limits.API.ReadBurst),
		rate.NewLimiter(rate.Limit(limits.API.WritePerSec), limits.API.WriteBurst),
	)

	// ── Journal ─────────────────────────────────────────────────
	jnl, err := journal.Open(cfg.JournalPath, limits.Journal.MaxBytes)
	if err != nil {
		telemetry.Warnf("Journal disabled: %v", err)
		jnl = nil
	}

	// ── Core pipeline ───────────────────────────────────────────
	links := exchange.NewLinkStore()
	_ = exchange.NewEngine(bus, links)
	recorder := recording.NewRecorder(bus, client, jnl)

	var refresher *refresh.Refresher
	monitor := cashstack.NewMonitor(bus,
		limits.CashMonitor.MaterialityGP,
		time.Duration(limits.CashMonitor.CooldownSec)*time.Second,
		func(int64) { refresher.TriggerNow() },
	)
	refresher = refresh.New(client, links, cfg.FlipStyle, cfg.RecommendationLimit,
		cfg.RefreshMinutes, monitor.Total)

	// ── Analysis cache ──────────────────────────────────────────
	cache := analysis.NewCache(client)
	bus.Subscribe(events.EventInventoryChanged, func(evt events.Event) error {
		change, ok := evt.Payload.(events.InventoryChange)
		if !ok {
			return nil
		}
		ids := make([]int, 0, len(change.Items))
		for _, item := range change.Items {
			if item.ID != cashstack.CoinsItemID {
				ids = append(ids, item.ID)
			}
		}
		cache.Retain(ids)
		cache.Warm(context.Background(), ids)
		return nil
	})

	// ── Login: refresh recommendations, sync player name ────────
	var syncedPlayer string
	bus.Subscribe(events.EventSessionChanged, func(evt events.Event) error {
		change, ok := evt.Payload.(events.SessionChange)
		if !ok || change.State != events.SessionLoggedIn {
			return nil
		}
		refresher.TriggerNow()
		if change.Player == "" || change.Player == syncedPlayer {
			return nil
		}
		syncedPlayer = change.Player
		go func(name string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := client.UpdatePlayerName(ctx, name); err != nil {
				telemetry.Warnf("Player name sync: %v", err)
			}
		}(change.Player)
		return nil
	})

	// ── Background refresh ──────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Run(ctx)
	refresher.TriggerNow()

	// ── Game feed server ────────────────────────────────────────
	feed := gamefeed.NewServer(bus)
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", feed.HandleWS)

	addr := fmt.Sprintf("%s:%d", cfg.FeedHost, cfg.FeedPort)
	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("Feed server: %v", err)
			os.Exit(1)
		}
	}()
	telemetry.Infof("Feed listening on ws://%s/feed", addr)

	// ── Shutdown ────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	recorder.Wait()
	if jnl != nil {
		jnl.Close()
	}

	telemetry.Infof("Shutdown complete  offers=%d  transactions=%d  suppressed=%d  submitted=%d  errors=%d",
		telemetry.Metrics.OffersProcessed.Value(),
		telemetry.Metrics.Transactions.Value(),
		telemetry.Metrics.BurstSuppressed.Value(),
		telemetry.Metrics.RecordsSubmitted.Value(),
		telemetry.Metrics.RecordErrors.Value(),
	)
}
