package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/qfarm/internal/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles journal database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a journal repository over a migrated journal database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "journal").Logger(),
	}
}

// Insert stores entries in one transaction, assigning ids and timestamps
// where they are missing.
func (r *Repository) Insert(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO journal_entries
				(id, recorded_at, biome, action, terminal_id, qubit, label, probability, success, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare journal insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if e.RecordedAt.IsZero() {
				e.RecordedAt = time.Now()
			}
			if _, err := stmt.Exec(e.ID, e.RecordedAt.UnixNano(), e.Biome, e.Action,
				nullString(e.TerminalID), e.Qubit, nullString(e.Label), e.Probability,
				e.Success, nullString(e.Reason)); err != nil {
				return fmt.Errorf("failed to insert journal entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// List returns entries matching f, newest first.
func (r *Repository) List(f Filter) ([]Entry, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Biome != "" {
		where = append(where, "biome = ?")
		args = append(args, f.Biome)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if !f.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, recorded_at, biome, action, terminal_id, qubit, label, probability, success, reason
		FROM journal_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                       Entry
			at                      int64
			terminal, label, reason sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.Biome, &e.Action, &terminal, &e.Qubit, &label,
			&e.Probability, &e.Success, &reason); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan journal row")
			continue
		}
		e.RecordedAt = time.Unix(0, at)
		e.TerminalID = terminal.String
		e.Label = label.String
		e.Reason = reason.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM journal_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return n, nil
}

// Prune deletes entries and audit runs older than cutoff and returns how
// many journal entries were removed.
func (r *Repository) Prune(cutoff time.Time) (int64, error) {
	var removed int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM journal_entries WHERE recorded_at < ?`, cutoff.UnixNano())
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		_, err = tx.Exec(`DELETE FROM audit_runs WHERE ran_at < ?`, cutoff.UnixNano())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return removed, nil
}

// RecordAudit stores an audit run.
func (r *Repository) RecordAudit(run AuditRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.RanAt.IsZero() {
		run.RanAt = time.Now()
	}
	var detail sql.NullString
	if len(run.Detail) > 0 {
		b, err := json.Marshal(run.Detail)
		if err != nil {
			return fmt.Errorf("failed to encode audit detail: %w", err)
		}
		detail = sql.NullString{String: string(b), Valid: true}
	}
	_, err := r.db.Exec(`
		INSERT INTO audit_runs (id, ran_at, biomes_checked, failures, detail)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.RanAt.UnixNano(), run.BiomesChecked, run.Failures, detail)
	if err != nil {
		return fmt.Errorf("failed to record audit run: %w", err)
	}
	return nil
}

// LatestAudits returns the most recent audit runs, newest first.
func (r *Repository) LatestAudits(limit int) ([]AuditRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`
		SELECT id, ran_at, biomes_checked, failures, detail
		FROM audit_runs ORDER BY ran_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}
	defer rows.Close()

	var out []AuditRun
	for rows.Next() {
		var (
			run    AuditRun
			at     int64
			detail sql.NullString
		)
		if err := rows.Scan(&run.ID, &at, &run.BiomesChecked, &run.Failures, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		run.RanAt = time.Unix(0, at)
		if detail.Valid {
			if err := json.Unmarshal([]byte(detail.String), &run.Detail); err != nil {
				r.log.Warn().Err(err).Str("audit", run.ID).Msg("Malformed audit detail")
			}
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
