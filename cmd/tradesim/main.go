// Command tradesim runs a persistent space-trading economy with an HTTP control plane.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/tradelanes/internal/api"
	"github.com/talgya/tradelanes/internal/config"
	"github.com/talgya/tradelanes/internal/engine"
	"github.com/talgya/tradelanes/internal/galaxy"
	"github.com/talgya/tradelanes/internal/logging"
	"github.com/talgya/tradelanes/internal/metrics"
	"github.com/talgya/tradelanes/internal/persistence"
	"github.com/talgya/tradelanes/internal/trade"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Logging.Level, cfg.Logging.File)
	defer logCloser.Close()
	slog.SetDefault(logger)

	slog.Info("Tradelanes economy simulation",
		"seed", cfg.Game.Seed,
		"catalog", cfg.Catalog.Mode,
		"day_interval", cfg.Engine.DayInterval,
	)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath)

	// ── Load or Start Session ────────────────────────────────────────
	m := metrics.New()

	snap, ok, err := db.LoadSession()
	if err != nil {
		slog.Error("failed to load save", "error", err)
		os.Exit(1)
	}
	seed := cfg.Game.Seed
	if ok && snap.Seed != cfg.Game.Seed {
		slog.Warn("save was created with a different seed, keeping the saved seed",
			"saved", snap.Seed, "configured", cfg.Game.Seed)
		seed = snap.Seed
	}

	// ── Star Catalog (rebuilt from the session seed) ─────────────────
	catalog, err := buildCatalog(cfg, seed)
	if err != nil {
		slog.Error("failed to build star catalog", "error", err)
		os.Exit(1)
	}
	for class, n := range catalog.ClassCounts() {
		slog.Debug("spectral class", "class", class, "count", n)
	}
	slog.Info("star catalog ready", "catalog", catalog.String())

	var sess *engine.Session
	if ok {
		sess = engine.RestoreSession(catalog, snap)
		slog.Info("session restored", "day", snap.Day, "date", engine.DayLabel(snap.Day))
	} else {
		if _, found := catalog.Lookup(cfg.Game.StartSystem); !found {
			slog.Error("start system not in catalog", "system", cfg.Game.StartSystem)
			os.Exit(1)
		}
		ship := trade.NewShip(cfg.Game.StartCredits, cfg.Game.CargoCapacity, cfg.Game.StartSystem)
		sess = engine.NewSession(catalog, seed, ship)
		if err := db.SaveSession(sess.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		slog.Info("new session started", "system", catalog.Resolve(ship.Location).Name)
	}
	sess.Metrics = m

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = uint64(sess.Day())
	eng.SetSpeed(cfg.Engine.Speed)
	eng.Interval = cfg.Engine.DayInterval

	autosave := func() {
		if err := db.SaveSession(sess.Snapshot()); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}

	eng.OnDay = func(tick uint64) {
		if _, err := sess.AdvanceDays(1); err != nil {
			slog.Error("advance failed", "tick", tick, "error", err)
			return
		}
		if n := cfg.Engine.AutosaveDays; n > 0 && tick%uint64(n) == 0 {
			autosave()
		}
	}
	eng.OnWeek = func(tick uint64) {
		ship := sess.Ship()
		slog.Info("weekly summary",
			"date", engine.DayLabel(sess.Day()),
			"credits", ship.Credits,
			"cargo_used", ship.CargoUsed(),
			"active_events", len(sess.ActiveEvents()),
		)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("TRADELANES_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := api.NewServer(sess, cfg.API.Port, cfg.API.AdminKey, cfg.API.RateLimit, cfg.API.RateBurst)
	apiServer.Eng = eng
	apiServer.DB = db
	apiServer.TrustForwardedFor(cfg.API.TrustProxy)
	if cfg.API.Metrics {
		apiServer.Metrics = m
	}
	sess.OnReport = apiServer.Hub.Broadcast
	httpServer := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nTradelanes is open: %d systems, ship docked at %s.\n",
		catalog.Len(), catalog.Resolve(sess.Ship().Location).Name)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if day := sess.Day(); day > 0 {
		fmt.Printf("Resuming on %s\n", engine.DayLabel(day))
	}
	fmt.Println("Starting economy... (Ctrl+C to stop)")

	eng.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	autosave()

	fmt.Println("Economy stopped. Session saved.")
}

// buildCatalog returns the star catalog for a session seed. Generated
// catalogs depend only on the seed and the catalog settings.
func buildCatalog(cfg *config.Config, seed int64) (*galaxy.Catalog, error) {
	if cfg.Catalog.Mode != config.CatalogGenerated {
		return galaxy.CoreCatalog(), nil
	}
	if seed == 0 {
		return nil, fmt.Errorf("generated catalog needs a nonzero seed")
	}
	gen := galaxy.DefaultGenConfig()
	gen.Seed = seed
	gen.Systems = cfg.Catalog.Systems
	gen.Radius = cfg.Catalog.Radius
	gen.Height = cfg.Catalog.Height
	return galaxy.Generate(gen), nil
}
