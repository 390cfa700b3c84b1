package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chunksloader/server/internal/config"
	"github.com/chunksloader/server/internal/core/event"
	coresys "github.com/chunksloader/server/internal/core/system"
	"github.com/chunksloader/server/internal/handler"
	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/mapfeed"
	gonet "github.com/chunksloader/server/internal/net"
	"github.com/chunksloader/server/internal/occupant"
	"github.com/chunksloader/server/internal/persist"
	"github.com/chunksloader/server/internal/scripting"
	"github.com/chunksloader/server/internal/system"
	"github.com/chunksloader/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
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
	fmt.Println("\033[36;1m  │\033[0m            chunksloader  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        force-loaded chunk registry        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - handler.DisplayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - handler.DisplayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printSkip(msg string) {
	fmt.Printf("  \033[90m-\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

const inputPollInterval = 5 * time.Millisecond

func run() error {
	// 1. Load config
	cfgPath := config.PathFromEnv()
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

	// 3. Host worlds
	printSection("worlds")
	host := world.NewHost(log.Named("host"))
	for _, wc := range cfg.Worlds {
		id, err := wc.UUID()
		if err != nil {
			return fmt.Errorf("world config: %w", err)
		}
		host.AddWorld(id, wc.Name, wc.SpawnX, wc.SpawnY, wc.SpawnZ)
		printOK(fmt.Sprintf("%s \033[90m(%s)\033[0m", wc.Name, id))
	}
	fmt.Println()

	// 4. Optional journal database
	printSection("database")
	var (
		journal    *persist.Journal
		journalSys *system.JournalSystem
		history    handler.HistorySource
	)
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.Open(ctx, cfg.Database, log.Named("persist"))
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool, log.Named("persist"))
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("journal schema at version %d", version))

		repo := persist.NewJournalRepo(db)
		journal = persist.NewJournal(repo, log.Named("journal"))
		journalSys = system.NewJournalSystem(journal, cfg.Database.FlushTicks, log)
		history = repo
	} else {
		printSkip("journal disabled")
	}
	fmt.Println()

	// 5. Loader manager
	printSection("loaders")
	injector, err := occupant.Probe(cfg.Occupant.Strategy, host, log.Named("occupant"))
	if err != nil {
		return fmt.Errorf("occupant strategy: %w", err)
	}
	store := loader.NewFileStore(cfg.Loader.StorageFile, log)
	if cfg.Loader.BackupOnLoad {
		if ok, err := store.Backup(); err != nil {
			log.Warn("loader file backup failed", zap.String("file", store.Path()), zap.Error(err))
		} else if ok {
			printOK("backup written to " + store.BackupPath())
		}
	}

	scheduler := coresys.NewScheduler(log)
	var recorder loader.Recorder
	if journal != nil {
		recorder = journal
	}
	mgr := loader.NewManager(loader.Options{
		Radius:    cfg.Loader.Radius,
		Store:     store,
		Host:      host,
		Injector:  injector,
		Scheduler: scheduler,
		Recorder:  recorder,
		Log:       log.Named("loader"),
	})
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load loaders: %w", err)
	}
	loaders := 0
	for _, id := range mgr.LoaderWorlds() {
		loaders += len(mgr.Locations(id))
	}
	printStat("loaders", loaders)
	printStat("radius", cfg.Loader.Radius)
	if mgr.OccupantSupported() {
		printOK("simulated occupants available")
	} else {
		printSkip("simulated occupants unavailable")
	}
	fmt.Println()

	// 6. Lua hooks
	printSection("scripting")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("scripting"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	engine.SetViewSource(mgr.Views)
	mgr.Subscribe(engine)
	label := engine.LoaderLabel
	printOK("Lua hooks loaded from " + cfg.Scripting.Dir)
	fmt.Println()

	// 7. Map feed
	var feed *mapfeed.Server
	if cfg.MapFeed.Enabled {
		feed = mapfeed.NewServer(mgr, label, log.Named("mapfeed"))
		mgr.Subscribe(feed)
		if err := feed.Start(cfg.MapFeed.BindAddress); err != nil {
			return fmt.Errorf("map feed: %w", err)
		}
	}

	// 8. Event bus, console and systems
	bus := event.NewBus()
	system.RegisterHostEvents(bus, mgr, host, log.Named("events"))

	deps := &handler.Deps{
		Manager: mgr,
		Host:    host,
		Bus:     bus,
		History: history,
		Label:   label,
		Config:  cfg,
		Log:     log.Named("console"),
	}
	registry := handler.NewRegistry(log.Named("console"))
	handler.RegisterAll(registry, deps)
	sessions := gonet.NewSessionStore()

	runner := coresys.NewRunner(log.Named("tick"))
	runner.Register(scheduler)
	runner.Register(system.NewEventDispatchSystem(bus))
	if cfg.Loader.ReconcileTicks > 0 {
		runner.Register(system.NewReconcileSystem(mgr, cfg.Loader.ReconcileTicks))
	}
	if journalSys != nil {
		runner.Register(journalSys)
	}

	var console *gonet.Server
	if cfg.Console.Enabled {
		console, err = gonet.NewServer(cfg.Console.BindAddress, gonet.SessionOptions{
			InQueueSize:       cfg.Console.InQueueSize,
			OutQueueSize:      cfg.Console.OutQueueSize,
			CommandsPerSecond: cfg.Console.CommandsPerSecond,
			ReadTimeout:       cfg.Console.ReadTimeout,
			WriteTimeout:      cfg.Console.WriteTimeout,
		}, log.Named("net"))
		if err != nil {
			return fmt.Errorf("console listen: %w", err)
		}
		go console.AcceptLoop()
		runner.Register(system.NewConsoleSystem(console, registry, sessions, deps, cfg.Console.MaxCommandsPerTick, log.Named("console")))
		runner.Register(system.NewOutputSystem(sessions))
		runner.Register(system.NewCleanupSystem(sessions, log.Named("console")))
	}

	// 9. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()
	// Console commands are served between full ticks as well.
	poll := time.NewTicker(inputPollInterval)
	defer poll.Stop()

	printSection("ready")
	if console != nil {
		printReady(fmt.Sprintf("console on %s", console.Addr()))
	}
	if feed != nil {
		printReady(fmt.Sprintf("map feed on %s", cfg.MapFeed.BindAddress))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s, %d systems)", cfg.Server.TickRate, runner.Len()))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
		case <-poll.C:
			if console != nil {
				runner.TickPhase(coresys.PhaseInput, 0)
				runner.TickPhase(coresys.PhaseOutput, 0)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if console != nil {
				console.Shutdown()
				sessions.ForEach(func(s *gonet.Session) { s.Close() })
			}
			mgr.Shutdown()
			if journalSys != nil {
				if err := journalSys.FlushNow(); err != nil {
					log.Warn("journal entries lost on shutdown", zap.Int("pending", journal.Pending()))
				}
			}
			if feed != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := feed.Shutdown(ctx); err != nil {
					log.Warn("map feed shutdown", zap.Error(err))
				}
				cancel()
			}
			log.Info("server stopped")
			return nil
		}
	}
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
