package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/importer"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
	"github.com/iwvelando/fpna/internal/store"
	"go.uber.org/zap"
)

// Roster returns the employee roster.
func (s *Service) Roster(ctx context.Context) ([]roster.Employee, error) {
	emps, err := s.store.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if emps == nil {
		emps = []roster.Employee{}
	}
	return emps, nil
}

// UpsertEmployee adds or replaces an entry by emp_id.
func (s *Service) UpsertEmployee(ctx context.Context, actor auth.Principal, e roster.Employee) ([]roster.Employee, error) {
	if err := e.Validate(); err != nil {
		return nil, invalid(err)
	}
	emps, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}
	emps = roster.Upsert(emps, e)
	if err := s.store.PutRoster(ctx, emps); err != nil {
		return nil, fmt.Errorf("store roster: %w", err)
	}
	s.record(ctx, actor, "roster_upsert", map[string]any{"emp_id": e.ID})
	return emps, nil
}

// RemoveEmployee deletes an entry by emp_id.
func (s *Service) RemoveEmployee(ctx context.Context, actor auth.Principal, id string) error {
	emps, err := s.Roster(ctx)
	if err != nil {
		return err
	}
	emps, found := roster.Remove(emps, id)
	if !found {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	if err := s.store.PutRoster(ctx, emps); err != nil {
		return fmt.Errorf("store roster: %w", err)
	}
	s.record(ctx, actor, "roster_delete", map[string]any{"emp_id": id})
	return nil
}

// BakeRequest expands the roster into payroll rows of a fiscal year.
type BakeRequest struct {
	FiscalYear int    `json:"fiscal_year"`
	Scenario   string `json:"scenario"`
	Apply      bool   `json:"apply"`
}

// BakeResult reports the generated payroll.
type BakeResult struct {
	Scenario    string       `json:"scenario"`
	AppliedRows int          `json:"applied_rows"`
	Applied     bool         `json:"applied"`
	Rows        []ledger.Row `json:"rows"`
}

// Bake expands the roster for FiscalYear. With Apply the scenario's payroll
// rows of that year are replaced by the expansion. A short scenario label is
// qualified with FiscalYear.
func (s *Service) Bake(ctx context.Context, actor auth.Principal, req BakeRequest) (BakeResult, error) {
	key := ledger.ResolveScenario(req.FiscalYear, req.Scenario)
	budget, err := s.Scenario(ctx, key)
	if err != nil {
		return BakeResult{}, err
	}
	emps, err := s.Roster(ctx)
	if err != nil {
		return BakeResult{}, err
	}
	payroll := roster.Expand(emps, req.FiscalYear)
	if payroll == nil {
		payroll = []ledger.Row{}
	}

	res := BakeResult{Scenario: key, AppliedRows: len(payroll), Rows: payroll}
	if req.Apply {
		if err := s.store.PutScenario(ctx, key, roster.ReplacePayroll(budget, req.FiscalYear, payroll)); err != nil {
			return BakeResult{}, fmt.Errorf("store scenario %s: %w", key, err)
		}
		res.Applied = true
		s.record(ctx, actor, "roster_bake", map[string]any{"scenario": key, "rows": len(payroll)})
	}
	s.logger.Info("roster baked",
		zap.String("op", "scenario.Bake"),
		zap.String("scenario", key),
		zap.Int("employees", len(emps)),
		zap.Int("rows", len(payroll)),
		zap.Bool("applied", req.Apply),
	)
	return res, nil
}

// ImportRecords maps QuickBooks rows onto the ledger and appends them to the
// actuals. It returns the number of rows imported.
func (s *Service) ImportRecords(ctx context.Context, actor auth.Principal, records []importer.Record) (int, error) {
	rows, err := importer.FromRecords(records, s.opts.FunctionalCurrency)
	if err != nil {
		return 0, invalid(err)
	}
	return s.appendActuals(ctx, actor, rows)
}

// ImportCSV reads a QuickBooks CSV export and appends it to the actuals.
func (s *Service) ImportCSV(ctx context.Context, actor auth.Principal, r io.Reader) (int, error) {
	rows, err := importer.FromCSV(r, s.opts.FunctionalCurrency)
	if err != nil {
		return 0, invalid(err)
	}
	return s.appendActuals(ctx, actor, rows)
}

func (s *Service) appendActuals(ctx context.Context, actor auth.Principal, rows []ledger.Row) (int, error) {
	if err := s.store.AppendActuals(ctx, rows); err != nil {
		return 0, fmt.Errorf("append actuals: %w", err)
	}
	s.record(ctx, actor, "qb_import", map[string]any{"rows": len(rows)})
	return len(rows), nil
}

// Rates returns the FX table.
func (s *Service) Rates(ctx context.Context) ([]fx.Rate, error) {
	rates, err := s.store.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fx rates: %w", err)
	}
	if rates == nil {
		rates = []fx.Rate{}
	}
	return rates, nil
}

// UpsertRates merges rates into the FX table keyed on base, quote and month.
func (s *Service) UpsertRates(ctx context.Context, actor auth.Principal, rates []fx.Rate) ([]fx.Rate, error) {
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, invalid(err)
		}
	}
	existing, err := s.Rates(ctx)
	if err != nil {
		return nil, err
	}
	merged := fx.Upsert(existing, rates)
	if err := s.store.PutRates(ctx, merged); err != nil {
		return nil, fmt.Errorf("store fx rates: %w", err)
	}
	s.record(ctx, actor, "fx_upsert", map[string]any{"rates": len(rates)})
	return merged, nil
}

// PostMessage stores a chat message, filling its id, time and default role.
func (s *Service) PostMessage(ctx context.Context, m store.Message) (store.Message, error) {
	if strings.TrimSpace(m.ThreadID) == "" {
		return store.Message{}, invalidf("thread_id cannot be empty")
	}
	m.ID = s.newID()
	m.At = s.now().UTC()
	if m.Role == "" {
		m.Role = "user"
	}
	if m.UserID == "" {
		m.UserID = "anon"
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return store.Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// Messages returns a thread's messages in order.
func (s *Service) Messages(ctx context.Context, threadID string) ([]store.Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, invalidf("thread_id cannot be empty")
	}
	msgs, err := s.store.Messages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	return msgs, nil
}

// IsNotFound reports whether err names a missing scenario, version,
// employee or actuals.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScenarioNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrNoActuals)
}
