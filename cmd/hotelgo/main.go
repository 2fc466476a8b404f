package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hotelgo/server/internal/config"
	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/interaction"
	"github.com/hotelgo/server/internal/messenger"
	"github.com/hotelgo/server/internal/persist"
	"github.com/hotelgo/server/internal/room"
	"github.com/hotelgo/server/internal/session"
	"github.com/hotelgo/server/internal/trigger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            HotelGo  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        room simulation server             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("HOTELGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Load static catalogs
	printSection("catalogs")

	furniTable, err := data.LoadFurniTable("data/yaml/furni_list.yaml")
	if err != nil {
		return fmt.Errorf("load furni table: %w", err)
	}
	printStat("furniture definitions", furniTable.Count())

	modelTable, err := data.LoadModelTable("data/yaml/model_list.yaml")
	if err != nil {
		return fmt.Errorf("load model table: %w", err)
	}
	printStat("room models", modelTable.Count())
	fmt.Println()

	// 5. Create repositories and the async saver
	roomRepo := persist.NewRoomRepo(db)
	itemRepo := persist.NewItemRepo(db, furniTable)
	petRepo := persist.NewPetRepo(db)
	friendRepo := persist.NewFriendRepo(db)
	saver := persist.NewSaver(cfg.Game.SaveQueueSize, log)

	// 6. Item behaviours and room-entry triggers
	dispatch := interaction.NewDispatcher(log)
	dispatch.RegisterDefaults()
	triggers := trigger.NewRegistry(log)
	triggers.Register("", trigger.FlatEntry{})

	// 7. Sessions and the friend fan-out, flushed on the room cadence
	sessions := session.NewRegistry()
	msgr := messenger.NewService(friendRepo, sessions, cfg.Game.TickInterval, log)

	// 8. Room manager owns every live room goroutine
	manager := room.NewManager(room.ManagerDeps{
		Config:     cfg,
		Log:        log,
		Models:     modelTable,
		RoomRepo:   roomRepo,
		ItemRepo:   itemRepo,
		PetRepo:    petRepo,
		Saver:      saver,
		Dispatch:   dispatch,
		Triggers:   triggers,
		Presence:   msgr,
		ScriptsDir: "scripts",
	})

	// 9. Wait for shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	printSection("server ready")
	printReady(fmt.Sprintf("room tick %s, idle eviction %s", cfg.Game.TickInterval, cfg.Game.RoomIdleEviction))
	fmt.Println()

	sig := <-shutdownCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	manager.Shutdown()
	msgr.Stop()
	saver.Stop()
	log.Info("server stopped", zap.Int("rooms", manager.ResidentRooms()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
