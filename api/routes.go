package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kteam-analyzer/backend/classifier"
	"github.com/kteam-analyzer/backend/config"
	"github.com/kteam-analyzer/backend/fetcher"
	"github.com/kteam-analyzer/backend/models"
	"github.com/kteam-analyzer/backend/parser"
	"github.com/kteam-analyzer/backend/patchset"
	"github.com/kteam-analyzer/backend/report"
	"github.com/kteam-analyzer/backend/threads"
)

func RegisterRoutes(router *mux.Router, db *sql.DB, cfg *config.Config) {
	// Health check
	router.HandleFunc("/api/health", healthHandler).Methods("GET")

	// Patch set endpoints
	router.HandleFunc("/api/patchsets", getPatchSetsHandler(db, cfg)).Methods("GET")
	router.HandleFunc("/api/patchsets/{id}", getPatchSetHandler(db)).Methods("GET")
	router.HandleFunc("/api/patchsets/{id}/messages", getPatchSetMessagesHandler(db)).Methods("GET")

	// Stats endpoint
	router.HandleFunc("/api/stats", getStatsHandler(db)).Methods("GET")

	// Sync endpoints
	router.HandleFunc("/api/sync", syncHandler(db, cfg)).Methods("POST")
	router.HandleFunc("/api/sync/status", getSyncStatusHandler).Methods("GET")

	// Reset: clear stored patch sets so next sync re-imports from scratch
	router.HandleFunc("/api/reset", resetHandler(db, cfg)).Methods("POST")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func getSyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GlobalSyncState.Get())
}

func resetHandler(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// messages references patch_sets, truncate in FK order
		_, err := db.Exec(`
			TRUNCATE messages CASCADE;
			TRUNCATE patch_sets CASCADE;
		`)
		if err != nil {
			log.Printf("Error resetting database: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to reset database"})
			return
		}
		if err := fetcher.ClearCache(cfg.DataDir); err != nil {
			log.Printf("Error clearing archive cache: %v", err)
		}
		log.Println("Database reset: patch_sets and messages cleared")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "Database cleared. Run sync to re-download and re-import.",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func getPatchSetsHandler(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		mode := patchset.ModeNeedsAcks
		if raw := r.URL.Query().Get("mode"); raw != "" {
			parsed, err := patchset.ParseFilterMode(raw)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			mode = parsed
		}

		days := cfg.DaysBack
		if raw := r.URL.Query().Get("days"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				days = n
			}
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)

		limit := r.URL.Query().Get("limit")
		if limit == "" {
			limit = "50"
		}

		query := `
			SELECT
				id, subject, epoch_message_id, owner, thread_url, submitted_at,
				patch_count, ack_count, nak_count, applied_count, status, updated_at
			FROM patch_sets
			WHERE submitted_at >= $1
		`
		args := []interface{}{cutoff}

		if mode != patchset.ModeAll {
			query += " AND status = $2"
			args = append(args, string(mode))
		}

		query += " ORDER BY submitted_at ASC LIMIT $" + strconv.Itoa(len(args)+1)
		args = append(args, limit)

		rows, err := db.Query(query, args...)
		if err != nil {
			log.Printf("Error querying patch sets: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch patch sets"})
			return
		}
		defer rows.Close()

		patchSets := []*models.PatchSetSummary{}
		for rows.Next() {
			ps := &models.PatchSetSummary{}
			if err := rows.Scan(
				&ps.ID, &ps.Subject, &ps.EpochMessageID, &ps.Owner, &ps.ThreadURL,
				&ps.SubmittedAt, &ps.PatchCount, &ps.AckCount, &ps.NakCount,
				&ps.AppliedCount, &ps.Status, &ps.UpdatedAt,
			); err != nil {
				log.Printf("Error scanning patch set: %v", err)
				continue
			}
			patchSets = append(patchSets, ps)
		}

		json.NewEncoder(w).Encode(patchSets)
	}
}

func getPatchSetHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		vars := mux.Vars(r)
		ps := &models.PatchSetSummary{}
		err := db.QueryRow(`
			SELECT
				id, subject, epoch_message_id, owner, thread_url, submitted_at,
				patch_count, ack_count, nak_count, applied_count, status, updated_at
			FROM patch_sets
			WHERE id = $1
		`, vars["id"]).Scan(
			&ps.ID, &ps.Subject, &ps.EpochMessageID, &ps.Owner, &ps.ThreadURL,
			&ps.SubmittedAt, &ps.PatchCount, &ps.AckCount, &ps.NakCount,
			&ps.AppliedCount, &ps.Status, &ps.UpdatedAt,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "Patch set not found"})
				return
			}
			log.Printf("Error querying patch set: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch patch set"})
			return
		}

		json.NewEncoder(w).Encode(ps)
	}
}

func getPatchSetMessagesHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		vars := mux.Vars(r)
		rows, err := db.Query(`
			SELECT id, patch_set_id, message_id, in_reply_to, subject, sender, category, sent_at
			FROM messages
			WHERE patch_set_id = $1
			ORDER BY sent_at ASC
		`, vars["id"])
		if err != nil {
			log.Printf("Error querying messages: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch messages"})
			return
		}
		defer rows.Close()

		messages := []*models.Message{}
		for rows.Next() {
			msg := &models.Message{}
			var inReplyTo sql.NullString
			if err := rows.Scan(
				&msg.ID, &msg.PatchSetID, &msg.MessageID, &inReplyTo,
				&msg.Subject, &msg.Sender, &msg.Category, &msg.Timestamp,
			); err != nil {
				log.Printf("Error scanning message: %v", err)
				continue
			}
			msg.InReplyTo = inReplyTo.String
			messages = append(messages, msg)
		}

		json.NewEncoder(w).Encode(messages)
	}
}

func getStatsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		stats := map[string]interface{}{}

		var totalPatchSets int
		db.QueryRow("SELECT COUNT(*) FROM patch_sets").Scan(&totalPatchSets)
		stats["total_patch_sets"] = totalPatchSets

		statuses := []string{
			patchset.StatusNeedsAcks, patchset.StatusReady,
			patchset.StatusApplied, patchset.StatusRejected,
		}
		statusCounts := make(map[string]int)
		for _, status := range statuses {
			var count int
			db.QueryRow("SELECT COUNT(*) FROM patch_sets WHERE status = $1", status).Scan(&count)
			statusCounts[status] = count
		}
		stats["by_status"] = statusCounts

		var totalMessages int
		db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&totalMessages)
		stats["total_messages"] = totalMessages

		var lastSync sql.NullTime
		db.QueryRow("SELECT MAX(updated_at) FROM patch_sets").Scan(&lastSync)
		if lastSync.Valid {
			stats["last_sync"] = lastSync.Time
		}

		if review := GlobalReviewStats.Get(); review != nil {
			stats["review"] = review
		}

		json.NewEncoder(w).Encode(stats)
	}
}

func syncHandler(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		go performSync(db, cfg)

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "Sync started",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// performSync is the triage pipeline: download the archive window, parse it,
// reconstruct threads, classify them as patch sets, store everything, and
// optionally write the review backlog to disk.
func performSync(db *sql.DB, cfg *config.Config) {
	log.Println("Starting mailing list sync...")
	GlobalSyncState.SetSyncing(true)
	defer GlobalSyncState.SetSyncing(false)

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -cfg.DaysBack)

	baseURL := cfg.ArchiveBaseURL
	if baseURL == "" {
		baseURL = fetcher.DefaultArchiveBaseURL
	}

	months := fetcher.MonthsBetween(since, now)
	var paths []string
	for i, ym := range months {
		GlobalSyncState.Update(i, len(months), ym.String())
		path, err := fetcher.EnsureMonth(cfg.DataDir, baseURL, ym, now)
		if err != nil {
			log.Printf("Skip month %s: %v", ym, err)
			continue
		}
		paths = append(paths, path)
	}
	GlobalSyncState.Update(len(months), len(months), "")

	mboxParser := parser.NewMboxParser(cfg.DataDir)
	messages := mboxParser.ParseFiles(paths)

	// The archive file for the current month lags; an IMAP inbox subscribed
	// to the list fills the gap when configured.
	if cfg.MailIMAPHost != "" && cfg.MailUsername != "" {
		mailClient := parser.NewMailClient(cfg.MailIMAPHost, cfg.MailIMAPPort, cfg.MailUsername, cfg.MailPassword)
		live, err := mailClient.FetchMessages(since)
		if err != nil {
			log.Printf("Error fetching live mail: %v", err)
		} else {
			messages = append(messages, live...)
		}
	}

	if len(messages) == 0 {
		log.Println("No messages to sync")
		return
	}

	var latest time.Time
	for _, m := range messages {
		if m.Timestamp.After(latest) {
			latest = m.Timestamp
		}
	}
	GlobalSyncState.SetLatestMessageDate(latest)

	simple := classifier.NewSimpleClassifier()
	var patchSets []*patchset.PatchSet
	for _, thread := range threads.Build(messages) {
		patchSets = append(patchSets, patchset.New(simple, thread))
	}

	window := patchset.Filter{Mode: patchset.ModeAll, RequiredAcks: cfg.RequiredAcks, After: since}
	stored := 0
	for _, ps := range patchSets {
		if !window.Matches(ps) {
			continue
		}
		if err := storePatchSet(db, ps, cfg.RequiredAcks); err != nil {
			log.Printf("Error storing patch set: %v", err)
			continue
		}
		stored++
	}

	if stats := report.Generate(patchSets, now); stats != nil {
		GlobalReviewStats.Set(stats)
	}

	if cfg.PatchOutputDir != "" {
		writeReviewBacklog(cfg, patchSets, since, now)
	}

	log.Printf("Sync completed: %d patch sets stored from %d messages", stored, len(messages))
}

// writeReviewBacklog dumps every patch set still needing acks to the output
// directory, replacing whatever a previous run wrote there.
func writeReviewBacklog(cfg *config.Config, patchSets []*patchset.PatchSet, since, now time.Time) {
	if err := os.RemoveAll(cfg.PatchOutputDir); err != nil {
		log.Printf("Error clearing patch output dir: %v", err)
		return
	}
	if err := os.MkdirAll(cfg.PatchOutputDir, 0755); err != nil {
		log.Printf("Error creating patch output dir: %v", err)
		return
	}

	needsAcks := patchset.Filter{Mode: patchset.ModeNeedsAcks, RequiredAcks: cfg.RequiredAcks, After: since}
	for _, ps := range patchSets {
		if !needsAcks.Matches(ps) {
			continue
		}
		log.Printf("needs review: %s", ps.EpochPatch().ShortSummary())
		patchDir, err := report.SavePatchSet(cfg.PatchOutputDir, ps, now)
		if err != nil {
			log.Printf("Error writing patch set: %v", err)
			continue
		}
		if cfg.CheckpatchPath != "" {
			if err := report.AnalyzePatches(patchDir, cfg.CheckpatchPath); err != nil {
				log.Printf("Error running checkpatch: %v", err)
			}
		}
	}
}

// storePatchSet upserts one classified patch set and its messages, keyed by
// the epoch's message id so re-syncing a month updates review counts in
// place.
func storePatchSet(db *sql.DB, ps *patchset.PatchSet, requiredAcks int) error {
	epoch := ps.EpochPatch()
	status := ps.ReviewStatus(requiredAcks)

	var patchSetID string
	err := db.QueryRow(`
		INSERT INTO patch_sets
			(id, subject, epoch_message_id, owner, thread_url, submitted_at,
			 patch_count, ack_count, nak_count, applied_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (epoch_message_id) DO UPDATE SET
			patch_count = EXCLUDED.patch_count,
			ack_count = EXCLUDED.ack_count,
			nak_count = EXCLUDED.nak_count,
			applied_count = EXCLUDED.applied_count,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id
	`, uuid.New().String(), epoch.Subject, epoch.MessageID, epoch.Sender,
		epoch.ThreadURL(), epoch.Timestamp, len(ps.Patches()), len(ps.Acks()),
		len(ps.Naks()), len(ps.Applieds()), status).Scan(&patchSetID)
	if err != nil {
		return err
	}

	for _, msg := range ps.Messages() {
		_, err := db.Exec(`
			INSERT INTO messages
				(id, patch_set_id, message_id, in_reply_to, subject, sender, body, category, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (message_id) DO UPDATE SET
				patch_set_id = EXCLUDED.patch_set_id,
				category = EXCLUDED.category
		`, uuid.New().String(), patchSetID, msg.MessageID, msg.InReplyTo,
			msg.Subject, msg.Sender, msg.Body, string(msg.Category), msg.Timestamp)
		if err != nil {
			log.Printf("Error inserting message: %v", err)
		}
	}

	return nil
}
