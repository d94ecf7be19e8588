package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// querier is the subset of *sql.DB and *sql.Tx the repositories use, so every
// query can run either standalone or inside an ambient transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// DB wraps the pool and carries transactions through context so a use case
// can span several repositories atomically without the repositories knowing.
type DB struct {
	db *sql.DB
}

func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// InTx runs fn inside a single transaction. Repository calls made with the
// context fn receives join that transaction; any error rolls everything back.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.db
}

// EnsureSchema creates all tables on startup, serialized across api/worker
// boots by an advisory lock.
func (d *DB) EnsureSchema(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_categories (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	display_order INTEGER NOT NULL DEFAULT 0,
	UNIQUE (tenant_id, code)
);

CREATE TABLE IF NOT EXISTS document_type_specs (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	category_id TEXT NOT NULL REFERENCES document_categories(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_required BOOLEAN NOT NULL DEFAULT FALSE,
	validation_rules JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (category_id, name)
);

CREATE TABLE IF NOT EXISTS loan_applications (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	applicant_name TEXT NOT NULL DEFAULT '',
	loan_amount_cents BIGINT NOT NULL DEFAULT 0,
	loan_purpose TEXT NOT NULL DEFAULT '',
	loan_term_months INTEGER NOT NULL DEFAULT 0,
	interest_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	case_readiness INTEGER NOT NULL DEFAULT 0,
	document_index INTEGER NOT NULL DEFAULT 0,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	submitted_at TIMESTAMPTZ,
	decided_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS staged_uploads (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	declared_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	uploaded_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	loan_application_id TEXT NOT NULL REFERENCES loan_applications(id),
	category_id TEXT NOT NULL REFERENCES document_categories(id),
	category_code TEXT NOT NULL,
	filename TEXT NOT NULL,
	declared_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	diagnostics JSONB NOT NULL DEFAULT '{}'::jsonb,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	uploaded_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_log (
	id TEXT PRIMARY KEY,
	entry_id TEXT NOT NULL REFERENCES ledger_entries(id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	timestamp TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_staged_uploads_status ON staged_uploads(status);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_loan ON ledger_entries(loan_application_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_tenant ON ledger_entries(tenant_id);
CREATE INDEX IF NOT EXISTS idx_processing_log_entry ON processing_log(entry_id);
CREATE INDEX IF NOT EXISTS idx_loan_applications_owner ON loan_applications(tenant_id, owner_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
