// Package store defines persistence for actuals, scenarios, versions, the
// roster, FX rates, the audit log and chat messages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
)

// ErrNotFound is returned when a scenario or version does not exist.
var ErrNotFound = errors.New("record not found")

// Version is a named snapshot of a scenario's rows.
type Version struct {
	Scenario string       `json:"scenario"`
	Name     string       `json:"name"`
	SavedAt  time.Time    `json:"saved_at"`
	Rows     []ledger.Row `json:"rows,omitempty"`
}

// AuditEvent records one mutating operation.
type AuditEvent struct {
	ID     string         `json:"id"`
	Action string         `json:"action"`
	Detail map[string]any `json:"detail"`
	User   string         `json:"user"`
	Role   string         `json:"role"`
	At     time.Time      `json:"at"`
}

// Message is one chat message in a thread.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Text     string    `json:"text"`
	At       time.Time `json:"ts"`
}

// Store is implemented by every backend. Rows come back in the order they
// were written.
type Store interface {
	// Scenarios returns the scenario keys in ascending order.
	Scenarios(ctx context.Context) ([]string, error)
	// Scenario returns ErrNotFound for an unknown key.
	Scenario(ctx context.Context, key string) ([]ledger.Row, error)
	// PutScenario replaces every row of the scenario, creating it if needed.
	PutScenario(ctx context.Context, key string, rows []ledger.Row) error
	// DeleteScenario returns ErrNotFound for an unknown key.
	DeleteScenario(ctx context.Context, key string) error

	Actuals(ctx context.Context) ([]ledger.Row, error)
	AppendActuals(ctx context.Context, rows []ledger.Row) error
	ReplaceActuals(ctx context.Context, rows []ledger.Row) error

	// SaveVersion overwrites a version of the same scenario and name in place.
	SaveVersion(ctx context.Context, v Version) error
	// Versions lists version names of a scenario in the order first saved.
	Versions(ctx context.Context, scenario string) ([]string, error)
	// Version returns ErrNotFound for an unknown scenario or name.
	Version(ctx context.Context, scenario, name string) (Version, error)

	Roster(ctx context.Context) ([]roster.Employee, error)
	PutRoster(ctx context.Context, employees []roster.Employee) error

	Rates(ctx context.Context) ([]fx.Rate, error)
	PutRates(ctx context.Context, rates []fx.Rate) error

	AppendAudit(ctx context.Context, e AuditEvent) error
	// Audit returns the latest limit events, oldest first. limit <= 0 means all.
	Audit(ctx context.Context, limit int) ([]AuditEvent, error)

	AppendMessage(ctx context.Context, m Message) error
	// Messages returns a thread's messages in the order written.
	Messages(ctx context.Context, threadID string) ([]Message, error)

	Close() error
}

// Tail returns the last limit elements of s. limit <= 0 returns s.
func Tail[T any](s []T, limit int) []T {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
