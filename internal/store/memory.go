package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
)

// Memory keeps everything in process memory. The mutex guards the maps
// only; read-modify-write sequences across calls are not serialized.
type Memory struct {
	mu        sync.RWMutex
	scenarios map[string][]ledger.Row
	actuals   []ledger.Row
	versions  map[string][]Version
	roster    []roster.Employee
	rates     []fx.Rate
	audit     []AuditEvent
	messages  []Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		scenarios: make(map[string][]ledger.Row),
		versions:  make(map[string][]Version),
	}
}

func (m *Memory) Scenarios(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.scenarios))
	for k := range m.scenarios {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Scenario(_ context.Context, key string) ([]ledger.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.scenarios[key]
	if !ok {
		return nil, ErrNotFound
	}
	return ledger.Clone(rows), nil
}

func (m *Memory) PutScenario(_ context.Context, key string, rows []ledger.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[key] = ledger.Clone(rows)
	return nil
}

func (m *Memory) DeleteScenario(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenarios[key]; !ok {
		return ErrNotFound
	}
	delete(m.scenarios, key)
	return nil
}

func (m *Memory) Actuals(_ context.Context) ([]ledger.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.Clone(m.actuals), nil
}

func (m *Memory) AppendActuals(_ context.Context, rows []ledger.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actuals = append(m.actuals, rows...)
	return nil
}

func (m *Memory) ReplaceActuals(_ context.Context, rows []ledger.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actuals = ledger.Clone(rows)
	return nil
}

func (m *Memory) SaveVersion(_ context.Context, v Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.Rows = ledger.Clone(v.Rows)
	list := m.versions[v.Scenario]
	for i := range list {
		if list[i].Name == v.Name {
			list[i] = v
			return nil
		}
	}
	m.versions[v.Scenario] = append(list, v)
	return nil
}

func (m *Memory) Versions(_ context.Context, scenario string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.versions[scenario]))
	for _, v := range m.versions[scenario] {
		names = append(names, v.Name)
	}
	return names, nil
}

func (m *Memory) Version(_ context.Context, scenario, name string) (Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.versions[scenario] {
		if v.Name == name {
			v.Rows = ledger.Clone(v.Rows)
			return v, nil
		}
	}
	return Version{}, ErrNotFound
}

func (m *Memory) Roster(_ context.Context) ([]roster.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.Employee(nil), m.roster...), nil
}

func (m *Memory) PutRoster(_ context.Context, employees []roster.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = append([]roster.Employee(nil), employees...)
	return nil
}

func (m *Memory) Rates(_ context.Context) ([]fx.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]fx.Rate(nil), m.rates...), nil
}

func (m *Memory) PutRates(_ context.Context, rates []fx.Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append([]fx.Rate(nil), rates...)
	return nil
}

func (m *Memory) AppendAudit(_ context.Context, e AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) Audit(_ context.Context, limit int) ([]AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AuditEvent(nil), Tail(m.audit, limit)...), nil
}

func (m *Memory) AppendMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Memory) Messages(_ context.Context, threadID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Message
	for _, msg := range m.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
