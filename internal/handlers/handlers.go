// Package handlers wires the ingestion pipeline, rule engine and aggregates
// into the JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"budgetsniffer/internal/classify"
	"budgetsniffer/internal/database"
	"budgetsniffer/internal/filestore"
	"budgetsniffer/internal/ingest"
	"budgetsniffer/internal/logger"
	"budgetsniffer/internal/models"
	"budgetsniffer/internal/report"
	"budgetsniffer/internal/rules"
	"budgetsniffer/internal/version"
)

// transactionsLimit caps how many rows list endpoints return.
const transactionsLimit = 500

type Handler struct {
	db     *database.DB
	rules  *rules.Store
	files  *filestore.Store
	syncer *classify.Syncer
}

func New(db *database.DB, ruleStore *rules.Store, files *filestore.Store, syncer *classify.Syncer) *Handler {
	return &Handler{
		db:     db,
		rules:  ruleStore,
		files:  files,
		syncer: syncer,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// defaultRange is the trailing twelve months.
func defaultRange() (start, end string) {
	today := time.Now().UTC()
	return today.AddDate(0, 0, -365).Format("2006-01-02"), today.Format("2006-01-02")
}

// dateRange resolves start/end query params against the default range.
func dateRange(r *http.Request) (string, string) {
	start, end := defaultRange()
	if s := r.URL.Query().Get("start"); s != "" {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			start = s
		}
	}
	if e := r.URL.Query().Get("end"); e != "" {
		if _, err := time.Parse("2006-01-02", e); err == nil {
			end = e
		}
	}
	return start, end
}

// Health reports liveness and the running version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": version.Version})
}

// fileResult reports the outcome of ingesting one uploaded file.
type fileResult struct {
	Name             string `json:"name"`
	Inserted         int    `json:"inserted"`
	SkippedTransfers int    `json:"skipped_transfers"`
	DroppedRows      int    `json:"dropped_rows"`
	Error            string `json:"error,omitempty"`
}

// Upload ingests one or more export files: save to the filestore, parse by
// extension, normalize, categorize, skip transfers and insert-if-new. A file
// whose schema cannot be inferred fails alone; the batch continues.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "no files part")
		return
	}
	account := r.FormValue("account")

	var (
		results       []fileResult
		totalInserted int
		totalSkipped  int
	)

	for _, fh := range uploads {
		result := fileResult{Name: fh.Filename}

		src, err := fh.Open()
		if err != nil {
			result.Error = "open upload: " + err.Error()
			results = append(results, result)
			continue
		}
		storedName, err := h.files.Save(fh.Filename, src)
		src.Close()
		if err != nil {
			result.Error = "store upload: " + err.Error()
			results = append(results, result)
			continue
		}

		records, err := parseByExtension(h.files.FullPath(storedName), fh.Filename)
		if err != nil {
			// Schema inference failure is fatal for this file only.
			result.Error = err.Error()
			results = append(results, result)
			log.Warn("upload_file_failed", "file", fh.Filename, "error", err.Error())
			continue
		}

		txns, dropped := ingest.NormalizeAll(records)
		result.DroppedRows = dropped

		kept := txns[:0]
		for _, t := range txns {
			t.Account = account
			t.SourceFile = fh.Filename
			t.Category = h.rules.Categorize(t.Description, t.AmountMinor)
			if t.Category == rules.CategoryTransfer {
				result.SkippedTransfers++
				continue
			}
			kept = append(kept, t)
		}

		inserted, err := h.db.InsertTransactions(kept)
		if err != nil {
			result.Error = "insert: " + err.Error()
			results = append(results, result)
			continue
		}
		result.Inserted = inserted

		totalInserted += inserted
		totalSkipped += result.SkippedTransfers
		results = append(results, result)

		log.Info("upload_file_processed",
			"file", fh.Filename,
			"inserted", inserted,
			"skipped_transfers", result.SkippedTransfers,
			"dropped_rows", dropped,
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"inserted":          totalInserted,
		"skipped_transfers": totalSkipped,
		"files":             results,
	})
}

func parseByExtension(path, originalName string) ([]ingest.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".xlsx", ".xls":
		return ingest.ParseXLSX(path)
	default:
		return ingest.ParseCSV(path)
	}
}

// Summary serves category totals, weekly spend statistics, a spend histogram
// and the most recent transactions for a date range.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end := dateRange(r)

	all, err := h.db.ListTransactions(models.TransactionFilter{
		StartDate:  start,
		EndDate:    end,
		ShowHidden: true,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("summary_query_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	recent := all
	if len(recent) > transactionsLimit {
		recent = recent[:transactionsLimit]
	}
	if recent == nil {
		recent = []models.Transaction{}
	}

	categorySet := make(map[string]struct{})
	for _, t := range all {
		if t.Category != "" {
			categorySet[t.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	summary := report.Summarize(report.Analyzable(all))

	writeJSON(w, http.StatusOK, map[string]any{
		"categories_breakdown": summary.CategoriesBreakdown,
		"weekly":               summary.Weekly,
		"hist":                 summary.Hist,
		"transactions":         recent,
		"filters":              map[string]any{"categories": categories},
		"meta": map[string]any{
			"start":       start,
			"end":         end,
			"app_version": version.Version,
		},
	})
}

// Transactions lists stored transactions for a date range, optionally
// filtered by category and including hidden rows.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	start, end := dateRange(r)

	txns, err := h.db.ListTransactions(models.TransactionFilter{
		StartDate:  start,
		EndDate:    end,
		Category:   r.URL.Query().Get("category"),
		ShowHidden: strings.EqualFold(r.URL.Query().Get("show_hidden"), "true"),
		Limit:      transactionsLimit,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("transactions_query_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// Categories returns the base category list merged with every category in
// storage.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	stored, err := h.db.DistinctCategories()
	if err != nil {
		logger.FromContext(r.Context()).Error("categories_query_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	set := make(map[string]struct{})
	for _, c := range models.BaseCategories {
		set[c] = struct{}{}
	}
	for _, c := range stored {
		set[c] = struct{}{}
	}
	all := make([]string, 0, len(set))
	for c := range set {
		all = append(all, c)
	}
	sort.Strings(all)
	writeJSON(w, http.StatusOK, all)
}

// UpdateCategory applies a user correction and learns a rule from it.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash     string `json:"hash"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Hash == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "hash and category are required")
		return
	}

	result, err := h.syncer.Correct(req.Hash, req.Category)
	if errors.Is(err, classify.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("update_category_failed", "hash", req.Hash, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"hash":             result.Hash,
		"category":         result.Category,
		"learned_phrase":   result.LearnedPhrase,
		"affected_like":    result.QuickUpdated,
		"relabelled_total": result.Relabelled,
	})
}

// ReloadRules re-reads the rule file and re-applies it to storage.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	relabelled, err := h.syncer.ReloadAndApply()
	if err != nil {
		logger.FromContext(r.Context()).Error("reload_rules_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"relabelled": relabelled,
		"version":    h.rules.Version(),
	})
}

// Rules exposes the current in-memory rule set for debugging.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rules.Snapshot())
}

// ToggleHidden flips a single transaction's hidden flag.
func (h *Handler) ToggleHidden(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}

	hidden, found, err := h.db.ToggleHidden(req.Hash)
	if err != nil {
		logger.FromContext(r.Context()).Error("toggle_hidden_failed", "hash", req.Hash, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "hash": req.Hash, "hidden": hidden})
}

// BulkHideTransfers hides or unhides every Transfer row.
func (h *Handler) BulkHideTransfers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Action != "hide" && req.Action != "unhide" {
		writeError(w, http.StatusBadRequest, "action must be 'hide' or 'unhide'")
		return
	}

	affected, err := h.db.SetHiddenByCategory(rules.CategoryTransfer, req.Action == "hide")
	if err != nil {
		logger.FromContext(r.Context()).Error("bulk_hide_transfers_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "action": req.Action, "affected": affected})
}

// PurgeTransfers deletes every Transfer row.
func (h *Handler) PurgeTransfers(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.db.DeleteByCategory(rules.CategoryTransfer)
	if err != nil {
		logger.FromContext(r.Context()).Error("purge_transfers_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "deleted": deleted})
}
