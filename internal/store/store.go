// Package store persists verdict records in a SQL database (sqlite or postgres).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrDuplicateID is returned when a record with the same id already exists.
// Records are append-only and never overwritten.
var ErrDuplicateID = errors.New("verdict id already recorded")

// ErrNotFound is returned by Get for an unknown id
var ErrNotFound = errors.New("verdict not found")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func init() {
	// modernc registers as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is the SQL-backed persistence gateway
type Store struct {
	db    *sqlx.DB
	table string
}

// recordRow is the flat row layout of a VerdictRecord
type recordRow struct {
	ID          string  `db:"id"`
	Claim       string  `db:"claim"`
	Verdict     string  `db:"verdict"`
	Confidence  float64 `db:"confidence"`
	Evidence    string  `db:"evidence"`
	Used        string  `db:"used"`
	Language    string  `db:"language"`
	URL         string  `db:"url"`
	Explanation string  `db:"explanation"`
	Model       string  `db:"model"`
	Provider    string  `db:"provider"`
	CreatedAt   int64   `db:"created_at"`
}

const columns = "id, claim, verdict, confidence, evidence, used, language, url, explanation, model, provider, created_at"

// Open connects to the configured database and ensures the schema exists
func Open(ctx context.Context, cfg model.StoreConfig) (*Store, error) {
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	driver, dsn := cfg.Driver, cfg.DSN
	switch driver {
	case "sqlite":
		if !strings.Contains(dsn, "?") && !strings.HasPrefix(dsn, ":memory:") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported store driver %q (supported: sqlite, postgres)", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	s := &Store{db: db, table: cfg.Table}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection; the schema is not touched
func New(db *sqlx.DB, table string) (*Store, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

// Migrate creates the records table and its recency index if missing
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	claim TEXT NOT NULL,
	verdict TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	evidence TEXT NOT NULL,
	used TEXT NOT NULL,
	language TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	explanation TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at DESC)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// Close releases the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Put writes rec once. An existing id yields ErrDuplicateID.
func (s *Store) Put(ctx context.Context, rec *model.VerdictRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row, err := toRow(rec)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (
	:id, :claim, :verdict, :confidence, :evidence, :used, :language, :url, :explanation, :model, :provider, :created_at
) ON CONFLICT (id) DO NOTHING`, s.table, columns)

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateID
	}
	return nil
}

// Get reads one record by id
func (s *Store) Get(ctx context.Context, id string) (*model.VerdictRecord, error) {
	var row recordRow
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, s.table))
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get verdict %s: %w", id, err)
	}
	return fromRow(row)
}

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]model.VerdictRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	var rows []recordRow
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC LIMIT ?`, columns, s.table))
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent verdicts: %w", err)
	}

	records := make([]model.VerdictRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func toRow(rec *model.VerdictRecord) (recordRow, error) {
	evidence := rec.Evidence
	if evidence == nil {
		evidence = []model.EvidenceRef{}
	}
	used := rec.Used
	if used == nil {
		used = []int{}
	}

	ev, err := json.Marshal(evidence)
	if err != nil {
		return recordRow{}, fmt.Errorf("encode evidence: %w", err)
	}
	u, err := json.Marshal(used)
	if err != nil {
		return recordRow{}, fmt.Errorf("encode used: %w", err)
	}

	return recordRow{
		ID:          rec.ID,
		Claim:       rec.Claim,
		Verdict:     string(rec.Verdict),
		Confidence:  rec.Confidence,
		Evidence:    string(ev),
		Used:        string(u),
		Language:    rec.Language,
		URL:         rec.URL,
		Explanation: rec.Explanation,
		Model:       rec.Model,
		Provider:    rec.Provider,
		CreatedAt:   rec.CreatedAt.UTC().UnixMilli(),
	}, nil
}

func fromRow(row recordRow) (*model.VerdictRecord, error) {
	rec := &model.VerdictRecord{
		ID:          row.ID,
		Claim:       row.Claim,
		Verdict:     model.Verdict(row.Verdict),
		Confidence:  row.Confidence,
		Language:    row.Language,
		URL:         row.URL,
		Explanation: row.Explanation,
		Model:       row.Model,
		Provider:    row.Provider,
		CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Evidence), &rec.Evidence); err != nil {
		return nil, fmt.Errorf("decode evidence for %s: %w", row.ID, err)
	}
	if row.Used != "" {
		if err := json.Unmarshal([]byte(row.Used), &rec.Used); err != nil {
			return nil, fmt.Errorf("decode used for %s: %w", row.ID, err)
		}
	}
	return rec, nil
}
