package main

import (
	"fmt"
	"net/http"
	"os"

	"budgetsniffer/internal/classify"
	"budgetsniffer/internal/config"
	"budgetsniffer/internal/database"
	"budgetsniffer/internal/filestore"
	"budgetsniffer/internal/handlers"
	"budgetsniffer/internal/logger"
	"budgetsniffer/internal/rules"
	"budgetsniffer/internal/version"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("budget-sniffer %s (built %s, commit %s)\n",
			version.Version, version.BuildTime, version.GitCommit)
		os.Exit(0)
	}

	// Initialize logger first
	logger.Init()
	log := logger.Default()

	cfg := config.Load()

	// Open database and apply schema/migrations
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Error("database_open_failed", "path", cfg.DBPath, "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		log.Error("database_init_failed", "error", err.Error())
		os.Exit(1)
	}

	// Load the rule set
	ruleStore, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.Error("rules_load_failed", "path", cfg.RulesPath, "error", err.Error())
		os.Exit(1)
	}
	log.Info("rules_loaded", "path", cfg.RulesPath, "version", ruleStore.Version())

	// Filestore retains uploaded exports alongside the database
	files, err := filestore.New(cfg.UploadsPath)
	if err != nil {
		log.Error("filestore_init_failed", "path", cfg.UploadsPath, "error", err.Error())
		os.Exit(1)
	}

	syncer := classify.New(db, ruleStore, log)
	h := handlers.New(db, ruleStore, files, syncer)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /upload", h.Upload)

	mux.HandleFunc("GET /api/summary", h.Summary)
	mux.HandleFunc("GET /api/transactions", h.Transactions)
	mux.HandleFunc("GET /api/categories", h.Categories)
	mux.HandleFunc("GET /api/rules", h.Rules)
	mux.HandleFunc("POST /api/update_category", h.UpdateCategory)
	mux.HandleFunc("POST /api/reload_rules", h.ReloadRules)
	mux.HandleFunc("POST /api/toggle_hidden", h.ToggleHidden)
	mux.HandleFunc("POST /api/bulk_hide_transfers", h.BulkHideTransfers)
	mux.HandleFunc("POST /api/purge_transfers", h.PurgeTransfers)

	handler := logger.HTTPMiddleware(mux)

	addr := cfg.Host + ":" + cfg.Port
	log.Info("server_starting", "addr", addr, "version", version.Version)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}
