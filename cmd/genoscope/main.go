package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/wilbur182/genoscope/internal/browser"
	"github.com/wilbur182/genoscope/internal/config"
	"github.com/wilbur182/genoscope/internal/event"
	"github.com/wilbur182/genoscope/internal/prefetch"
	"github.com/wilbur182/genoscope/internal/recordcache"
	"github.com/wilbur182/genoscope/internal/selection"
	"github.com/wilbur182/genoscope/internal/store"
	"github.com/wilbur182/genoscope/internal/watch"
)

// Version is set at build time via ldflags.
var Version = ""

var (
	configPath  = flag.String("config", "", "path to config file")
	dbPath      = flag.String("db", "", "catalog database path (overrides config)")
	seedDemo    = flag.Bool("seed-demo", false, "seed the catalog with demo records and exit")
	debugFlag   = flag.Bool("debug", false, "enable debug logging")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("genoscope version %s\n", effectiveVersion(Version))
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debugFlag {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	catalogDB := config.ExpandHome(cfg.Catalog.DBPath)
	if *dbPath != "" {
		catalogDB = *dbPath
	}

	if err := os.MkdirAll(filepath.Dir(catalogDB), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(catalogDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *seedDemo {
		if err := st.Seed(context.Background(), demoRecords()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed demo data: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d demo records into %s\n", len(demoRecords()), catalogDB)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "genoscope is interactive; stdout must be a terminal")
		os.Exit(1)
	}

	cache, err := recordcache.New(st, recordcache.Config{
		Capacity:     cfg.Cache.Capacity,
		TTL:          cfg.Cache.RecordTTL,
		SnapshotPath: config.ExpandHome(cfg.Catalog.SnapshotPath),
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build record cache: %v\n", err)
		os.Exit(1)
	}

	prefetcher, err := prefetch.New(cache, cfg.Prefetch.Radius, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build prefetcher: %v\n", err)
		os.Exit(1)
	}

	dispatcher := event.NewDispatcher()
	defer dispatcher.Close()

	if cfg.Catalog.Watch {
		watcher, err := watch.New(catalogDB, dispatcher, logger)
		if err != nil {
			// Watching is an enhancement on top of the TTL; losing it is
			// not fatal.
			logger.Warn("catalog watcher unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	model := browser.New(browser.Deps{
		Cache:      cache,
		Guard:      selection.NewGuard(),
		Prefetcher: prefetcher,
		Vectors:    st,
		Dispatcher: dispatcher,
		Logger:     logger,
		UI:         cfg.UI,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
	prefetcher.Wait()
}

// effectiveVersion returns the version string, with fallback to build info.
func effectiveVersion(v string) string {
	if v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "devel"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: genoscope [options]\n\n")
		fmt.Fprintf(os.Stderr, "An interactive browser for a catalog of genome records.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}
