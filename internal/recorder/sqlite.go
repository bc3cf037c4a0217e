package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"WalletCampaign/internal/model"
)

// SQLiteRecorder persists the run and action journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the report CLI can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaign_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			wallets     INTEGER,
			spins       INTEGER,
			transfers   INTEGER,
			deposits    INTEGER,
			skipped     INTEGER,
			refreshed   INTEGER,
			failed      INTEGER,
			interrupted INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON campaign_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS wallet_actions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			address   TEXT NOT NULL,
			kind      TEXT NOT NULL,
			tx_ref    TEXT,
			amount    TEXT,
			reward    TEXT,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_addr ON wallet_actions(address, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON wallet_actions(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAction(evt *ActionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO wallet_actions
		(run_id, timestamp, address, kind, tx_ref, amount, reward, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.RunID, at.Unix(), evt.Address, evt.Kind,
		evt.TxRef, evt.Amount, evt.Reward, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(sum *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO campaign_runs
		(run_id, started_at, finished_at, wallets, spins, transfers, deposits,
		 skipped, refreshed, failed, interrupted)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		sum.RunID, sum.StartedAt.Unix(), sum.FinishedAt.Unix(),
		sum.Wallets, sum.Spins, sum.Transfers, sum.Deposits,
		sum.Skipped, sum.Refreshed, sum.Failed, sum.Interrupted,
	)
	return err
}

// ActionCounts returns the number of journaled actions per kind for one address.
func (r *SQLiteRecorder) ActionCounts(address string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT kind, COUNT(*) FROM wallet_actions WHERE address = ? GROUP BY kind`, address)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan actions: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
