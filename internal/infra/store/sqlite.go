// Package store implements the durable record store.
// Three collections (users, tasks, config) with read-all/write-all
// semantics, plus an append-only credit ledger. SQLite via the CGO-free
// modernc driver.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/poinbot/poinbot/internal/domain"
)

// DB is the SQLite-backed record store. It implements domain.Store.
type DB struct {
	db *sql.DB
}

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			balance         INTEGER NOT NULL DEFAULT 0,
			blocked         INTEGER NOT NULL DEFAULT 0,
			admin           INTEGER NOT NULL DEFAULT 0,
			last_active     TEXT NOT NULL,
			claimed_daily   INTEGER NOT NULL DEFAULT 0,
			completed_tasks TEXT NOT NULL DEFAULT '[]',
			mode            TEXT NOT NULL DEFAULT 'IDLE',
			challenge       TEXT,
			game_target     INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id               INTEGER PRIMARY KEY,
			reward           INTEGER NOT NULL,
			duration_minutes INTEGER NOT NULL,
			description      TEXT NOT NULL
		)`,

		// Single-row collection; id is fixed at 1.
		`CREATE TABLE IF NOT EXISTS config (
			id             INTEGER PRIMARY KEY CHECK (id = 1),
			admin_password TEXT NOT NULL,
			bonus_min      INTEGER NOT NULL,
			bonus_max      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ts        TEXT NOT NULL,
			type      TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			amount    INTEGER NOT NULL,
			task_id   INTEGER NOT NULL DEFAULT 0,
			balance   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger(user_id, id)`,
	}
}

// Open opens (creating if needed) the store at path and applies migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer keeps WriteAll transactions trivially serialized.
	db.SetMaxOpenConns(1)

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// ─── Users ──────────────────────────────────────────────────────────────────

// ReadUsers loads the whole users collection.
func (d *DB) ReadUsers() ([]domain.UserRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, balance, blocked, admin, last_active, claimed_daily,
		       completed_tasks, mode, challenge, game_target
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserRecord
	for rows.Next() {
		var (
			u              domain.UserRecord
			blocked, admin int
			claimed        int
			lastActive     string
			completed      string
			challenge      sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Balance, &blocked, &admin, &lastActive,
			&claimed, &completed, &u.Mode, &challenge, &u.GameTarget); err != nil {
			return nil, err
		}
		u.Blocked = blocked == 1
		u.Admin = admin == 1
		u.ClaimedDaily = claimed == 1
		if u.LastActive, err = time.Parse(time.RFC3339Nano, lastActive); err != nil {
			return nil, fmt.Errorf("user %s: bad last_active: %w", u.ID, err)
		}
		if err := json.Unmarshal([]byte(completed), &u.CompletedTasks); err != nil {
			return nil, fmt.Errorf("user %s: bad completed_tasks: %w", u.ID, err)
		}
		if challenge.Valid && challenge.String != "" {
			var ch domain.Challenge
			if err := json.Unmarshal([]byte(challenge.String), &ch); err != nil {
				return nil, fmt.Errorf("user %s: bad challenge: %w", u.ID, err)
			}
			u.Challenge = &ch
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// WriteUsers replaces the users collection in one transaction.
func (d *DB) WriteUsers(users []domain.UserRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM users`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO users (id, balance, blocked, admin, last_active,
			claimed_daily, completed_tasks, mode, challenge, game_target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range users {
		completed, err := json.Marshal(u.CompletedTasks)
		if err != nil {
			return err
		}
		if u.CompletedTasks == nil {
			completed = []byte("[]")
		}
		var challenge interface{}
		if u.Challenge != nil {
			raw, err := json.Marshal(u.Challenge)
			if err != nil {
				return err
			}
			challenge = string(raw)
		}
		if _, err := stmt.Exec(u.ID, u.Balance, boolInt(u.Blocked), boolInt(u.Admin),
			u.LastActive.Format(time.RFC3339Nano), boolInt(u.ClaimedDaily),
			string(completed), string(u.Mode), challenge, u.GameTarget); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// ReadTasks loads the whole task catalog.
func (d *DB) ReadTasks() ([]domain.TaskRecord, error) {
	rows, err := d.db.Query(`SELECT id, reward, duration_minutes, description FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.TaskRecord
	for rows.Next() {
		var t domain.TaskRecord
		if err := rows.Scan(&t.ID, &t.Reward, &t.DurationMinutes, &t.Description); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// WriteTasks replaces the task catalog in one transaction.
func (d *DB) WriteTasks(tasks []domain.TaskRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := tx.Exec(
			`INSERT INTO tasks (id, reward, duration_minutes, description) VALUES (?, ?, ?, ?)`,
			t.ID, t.Reward, t.DurationMinutes, t.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ─── Config ─────────────────────────────────────────────────────────────────

// ReadConfig loads the bot config record, or nil when none exists yet.
func (d *DB) ReadConfig() (*domain.BotConfig, error) {
	var cfg domain.BotConfig
	err := d.db.QueryRow(
		`SELECT admin_password, bonus_min, bonus_max FROM config WHERE id = 1`,
	).Scan(&cfg.AdminPassword, &cfg.BonusMin, &cfg.BonusMax)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteConfig replaces the bot config record.
func (d *DB) WriteConfig(cfg domain.BotConfig) error {
	_, err := d.db.Exec(`
		INSERT INTO config (id, admin_password, bonus_min, bonus_max)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			admin_password = excluded.admin_password,
			bonus_min      = excluded.bonus_min,
			bonus_max      = excluded.bonus_max
	`, cfg.AdminPassword, cfg.BonusMin, cfg.BonusMax)
	return err
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// AppendLedger adds a credit audit row.
func (d *DB) AppendLedger(e domain.LedgerEntry) error {
	_, err := d.db.Exec(`
		INSERT INTO ledger (ts, type, user_id, amount, task_id, balance)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Timestamp.Format(time.RFC3339Nano), string(e.Type), e.UserID, e.Amount, e.TaskID, e.Balance)
	return err
}

// ReadLedger returns the newest ledger rows for a user, most recent first.
func (d *DB) ReadLedger(userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(`
		SELECT id, ts, type, user_id, amount, task_id, balance
		FROM ledger WHERE user_id = ? ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e  domain.LedgerEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.UserID, &e.Amount, &e.TaskID, &e.Balance); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
