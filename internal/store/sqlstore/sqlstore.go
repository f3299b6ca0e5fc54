// Package sqlstore implements store.Store on database/sql, backed by SQLite
// (mattn/go-sqlite3) or PostgreSQL (pgx stdlib).
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
	"github.com/iwvelando/fpna/internal/store"
	"github.com/iwvelando/fpna/pkg/constants"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQL-backed store.Store.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects to driver (sqlite or postgres) at dsn and applies the schema.
// For sqlite the dsn is a file path; its directory is created on demand.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case constants.StoreDriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite3", dsn)
	case constants.StoreDriverPostgres:
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, postgres: driver == constants.StoreDriverPostgres}
	if !s.postgres {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM "+table).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq for %s: %w", table, err)
	}
	return seq + 1, nil
}

func scanRows(rows *sql.Rows) ([]ledger.Row, error) {
	defer rows.Close()
	out := []ledger.Row{}
	for rows.Next() {
		var r ledger.Row
		if err := rows.Scan(&r.Account, &r.Month, &r.Amount, &r.Dept, &r.Currency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Scenarios

func (s *Store) Scenarios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM scenarios ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Scenario(ctx context.Context, key string) ([]ledger.Row, error) {
	var name string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT name FROM scenarios WHERE name = ?"), key).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", key, err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT account_std, month, amount, dept, currency FROM budget_rows WHERE scenario = ? ORDER BY seq"), key)
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", key, err)
	}
	return scanRows(rows)
}

func (s *Store) PutScenario(ctx context.Context, key string, rows []ledger.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM budget_rows WHERE scenario = ?"), key); err != nil {
			return fmt.Errorf("put scenario %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM scenarios WHERE name = ?"), key); err != nil {
			return fmt.Errorf("put scenario %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO scenarios (name) VALUES (?)"), key); err != nil {
			return fmt.Errorf("put scenario %s: %w", key, err)
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind(
			"INSERT INTO budget_rows (scenario, seq, account_std, month, amount, dept, currency) VALUES (?, ?, ?, ?, ?, ?, ?)"))
		if err != nil {
			return fmt.Errorf("put scenario %s: %w", key, err)
		}
		defer stmt.Close()
		for i, r := range rows {
			if _, err := stmt.ExecContext(ctx, key, i+1, r.Account, r.Month, r.Amount, r.Dept, r.Currency); err != nil {
				return fmt.Errorf("put scenario %s row %d: %w", key, i+1, err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteScenario(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM scenarios WHERE name = ?"), key)
		if err != nil {
			return fmt.Errorf("delete scenario %s: %w", key, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return store.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM budget_rows WHERE scenario = ?"), key); err != nil {
			return fmt.Errorf("delete scenario %s: %w", key, err)
		}
		return nil
	})
}

// Actuals

func (s *Store) Actuals(ctx context.Context) ([]ledger.Row, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT account_std, month, amount, dept, currency FROM actuals ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list actuals: %w", err)
	}
	return scanRows(rows)
}

func (s *Store) AppendActuals(ctx context.Context, rows []ledger.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertActuals(ctx, tx, rows)
	})
}

func (s *Store) ReplaceActuals(ctx context.Context, rows []ledger.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM actuals"); err != nil {
			return fmt.Errorf("replace actuals: %w", err)
		}
		return s.insertActuals(ctx, tx, rows)
	})
}

func (s *Store) insertActuals(ctx context.Context, tx *sql.Tx, rows []ledger.Row) error {
	seq, err := s.nextSeq(ctx, tx, "actuals")
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO actuals (seq, account_std, month, amount, dept, currency) VALUES (?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("insert actuals: %w", err)
	}
	defer stmt.Close()
	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, seq+int64(i), r.Account, r.Month, r.Amount, r.Dept, r.Currency); err != nil {
			return fmt.Errorf("insert actuals row %d: %w", i+1, err)
		}
	}
	return nil
}

// Versions

func (s *Store) SaveVersion(ctx context.Context, v store.Version) error {
	rows := v.Rows
	if rows == nil {
		rows = []ledger.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal version rows: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(
			"UPDATE versions SET saved_at = ?, rows_json = ? WHERE scenario = ? AND name = ?"),
			formatTime(v.SavedAt), string(data), v.Scenario, v.Name)
		if err != nil {
			return fmt.Errorf("save version %s: %w", v.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		seq, err := s.nextSeq(ctx, tx, "versions")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			"INSERT INTO versions (scenario, name, seq, saved_at, rows_json) VALUES (?, ?, ?, ?, ?)"),
			v.Scenario, v.Name, seq, formatTime(v.SavedAt), string(data))
		if err != nil {
			return fmt.Errorf("save version %s: %w", v.Name, err)
		}
		return nil
	})
}

func (s *Store) Versions(ctx context.Context, scenario string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT name FROM versions WHERE scenario = ? ORDER BY seq"), scenario)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Store) Version(ctx context.Context, scenario, name string) (store.Version, error) {
	var savedAt, data string
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT saved_at, rows_json FROM versions WHERE scenario = ? AND name = ?"), scenario, name).Scan(&savedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Version{}, store.ErrNotFound
	}
	if err != nil {
		return store.Version{}, fmt.Errorf("get version %s: %w", name, err)
	}
	v := store.Version{Scenario: scenario, Name: name}
	if v.SavedAt, err = parseTime(savedAt); err != nil {
		return store.Version{}, fmt.Errorf("version %s saved_at: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), &v.Rows); err != nil {
		return store.Version{}, fmt.Errorf("version %s rows: %w", name, err)
	}
	return v, nil
}

// Roster

func (s *Store) Roster(ctx context.Context) ([]roster.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT emp_id, name, dept, start_month, annual_salary, fte,
		raise_month, raise_pct, benefits_pct, taxes_pct, currency FROM roster ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()
	out := []roster.Employee{}
	for rows.Next() {
		var e roster.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Dept, &e.StartMonth, &e.AnnualSalary, &e.FTE,
			&e.RaiseMonth, &e.RaisePct, &e.BenefitsPct, &e.TaxesPct, &e.Currency); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PutRoster(ctx context.Context, employees []roster.Employee) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM roster"); err != nil {
			return fmt.Errorf("put roster: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO roster (seq, emp_id, name, dept, start_month,
			annual_salary, fte, raise_month, raise_pct, benefits_pct, taxes_pct, currency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("put roster: %w", err)
		}
		defer stmt.Close()
		for i, e := range employees {
			if _, err := stmt.ExecContext(ctx, i+1, e.ID, e.Name, e.Dept, e.StartMonth, e.AnnualSalary, e.FTE,
				e.RaiseMonth, e.RaisePct, e.BenefitsPct, e.TaxesPct, e.Currency); err != nil {
				return fmt.Errorf("put roster %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// Rates

func (s *Store) Rates(ctx context.Context) ([]fx.Rate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT base, quote, month, rate FROM fx_rates ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()
	out := []fx.Rate{}
	for rows.Next() {
		var r fx.Rate
		if err := rows.Scan(&r.Base, &r.Quote, &r.Month, &r.Rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PutRates(ctx context.Context, rates []fx.Rate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fx_rates"); err != nil {
			return fmt.Errorf("put rates: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind("INSERT INTO fx_rates (seq, base, quote, month, rate) VALUES (?, ?, ?, ?, ?)"))
		if err != nil {
			return fmt.Errorf("put rates: %w", err)
		}
		defer stmt.Close()
		for i, r := range rates {
			if _, err := stmt.ExecContext(ctx, i+1, r.Base, r.Quote, r.Month, r.Rate); err != nil {
				return fmt.Errorf("put rate %s/%s %s: %w", r.Base, r.Quote, r.Month, err)
			}
		}
		return nil
	})
}

// Audit

func (s *Store) AppendAudit(ctx context.Context, e store.AuditEvent) error {
	detail := e.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx, "audit_log")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			"INSERT INTO audit_log (seq, id, action, detail, username, role, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
			seq, e.ID, e.Action, string(data), e.User, e.Role, formatTime(e.At))
		if err != nil {
			return fmt.Errorf("append audit %s: %w", e.Action, err)
		}
		return nil
	})
}

func (s *Store) Audit(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	query := "SELECT id, action, detail, username, role, created_at FROM audit_log ORDER BY seq DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var newestFirst []store.AuditEvent
	for rows.Next() {
		var (
			e             store.AuditEvent
			detail, atStr string
		)
		if err := rows.Scan(&e.ID, &e.Action, &detail, &e.User, &e.Role, &atStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
			return nil, fmt.Errorf("audit %s detail: %w", e.ID, err)
		}
		if e.At, err = parseTime(atStr); err != nil {
			return nil, fmt.Errorf("audit %s time: %w", e.ID, err)
		}
		newestFirst = append(newestFirst, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]store.AuditEvent, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

// Chat

func (s *Store) AppendMessage(ctx context.Context, m store.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx, "chat_messages")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			"INSERT INTO chat_messages (seq, id, thread_id, user_id, role, body, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
			seq, m.ID, m.ThreadID, m.UserID, m.Role, m.Text, formatTime(m.At))
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

func (s *Store) Messages(ctx context.Context, threadID string) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT id, thread_id, user_id, role, body, created_at FROM chat_messages WHERE thread_id = ? ORDER BY seq"), threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := []store.Message{}
	for rows.Next() {
		var (
			m     store.Message
			atStr string
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.UserID, &m.Role, &m.Text, &atStr); err != nil {
			return nil, err
		}
		if m.At, err = parseTime(atStr); err != nil {
			return nil, fmt.Errorf("message %s time: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ store.Store = (*Store)(nil)
