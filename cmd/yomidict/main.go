package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/japaniel/yomidict/pkg/archive"
	"github.com/japaniel/yomidict/pkg/config"
	"github.com/japaniel/yomidict/pkg/db"
	"github.com/japaniel/yomidict/pkg/dictionary"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	configFlag := flag.String("config", "", "Path to YAML config file")
	dbFlag := flag.String("db", "", "Path to SQLite database (overrides config)")
	importFlag := flag.String("import", "", "Path to a dictionary zip archive to import")
	listFlag := flag.Bool("list", false, "List imported dictionaries")
	searchFlag := flag.String("search", "", "Search words by written form or reading")
	workersFlag := flag.Int("workers", 0, "Shard worker count (overrides config)")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := zap.Must(zap.NewProduction())
	if *debugFlag {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}
	if *workersFlag > 0 {
		cfg.Workers = *workersFlag
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer conn.Close()

	if err := db.InitDB(conn); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	// Startup sweep: stale extraction cache entries and dictionaries whose
	// import never finished are removed before any command runs.
	extractor := archive.NewExtractor(cfg.CacheDir)
	if err := dictionary.NewSweeper(conn, extractor, logger).Sweep(ctx); err != nil {
		logger.Fatal("startup sweep failed", zap.Error(err))
	}

	switch {
	case *importFlag != "":
		runImport(ctx, conn, extractor, cfg, logger, *importFlag)
	case *listFlag:
		runList(conn, logger)
	case *searchFlag != "":
		runSearch(conn, logger, *searchFlag)
	default:
		fmt.Fprintln(os.Stderr, "Please provide -import, -list or -search")
		flag.Usage()
		os.Exit(2)
	}
}

func runImport(ctx context.Context, conn *sql.DB, extractor *archive.Extractor, cfg *config.Config, logger *zap.Logger, path string) {
	importer := dictionary.NewImporter(conn, extractor, logger)
	importer.BatchSize = cfg.BatchSize
	importer.Workers = cfg.Workers
	importer.OnProgress = func(pct float64) {
		fmt.Printf("\rImporting... %3.0f%%", pct*100)
	}

	if err := importer.Import(ctx, path); err != nil {
		fmt.Println()
		if errors.Is(err, dictionary.ErrDuplicateDictionary) {
			fmt.Println("This dictionary is already imported.")
			os.Exit(1)
		}
		logger.Fatal("import failed", zap.Error(err))
	}
	fmt.Println("\nImport complete.")
}

func runList(conn *sql.DB, logger *zap.Logger) {
	manager := dictionary.NewManager(conn, logger)
	dicts := manager.ListDictionaries()
	if len(dicts) == 0 {
		fmt.Println("No dictionaries imported.")
		return
	}
	for _, d := range dicts {
		revision := d.Revision
		if revision == "" {
			revision = "no revision"
		}
		fmt.Printf("%s (%s): %d words\n", d.Title, revision, d.WordsCount)
	}
}

func runSearch(conn *sql.DB, logger *zap.Logger, term string) {
	manager := dictionary.NewManager(conn, logger)
	for _, w := range manager.SearchWords(term) {
		fmt.Printf("%s (%s): %s\n", w.WordOriginal, w.Reading, strings.Join(w.Definitions, "; "))
	}
}
