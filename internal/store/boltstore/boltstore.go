// Package boltstore implements store.Store on a bbolt file with JSON values.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
	"github.com/iwvelando/fpna/internal/store"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	BucketScenarios = "scenarios"
	BucketState     = "state"
	BucketVersions  = "versions"
	BucketAudit     = "audit"
	BucketMessages  = "messages"
)

// Keys in BucketState.
const (
	keyActuals = "actuals"
	keyRoster  = "roster"
	keyRates   = "rates"
)

// Store is a bbolt-backed store.Store.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and initializes buckets.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketScenarios, BucketState, BucketVersions, BucketAudit, BucketMessages} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(bucket, key string, value any) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	return found, err
}

func put(tx *bolt.Tx, bucket string, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return tx.Bucket([]byte(bucket)).Put(key, data)
}

func (s *Store) put(bucket, key string, value any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucket, []byte(key), value)
	})
}

// appendSeq stores value under the bucket's next sequence number.
func (s *Store) appendSeq(bucket string, value any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return put(tx, bucket, itob(seq), value)
	})
}

// Scenarios

func (s *Store) Scenarios(_ context.Context) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketScenarios)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}

func (s *Store) Scenario(_ context.Context, key string) ([]ledger.Row, error) {
	var rows []ledger.Row
	found, err := s.get(BucketScenarios, key, &rows)
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", key, err)
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return rows, nil
}

func (s *Store) PutScenario(_ context.Context, key string, rows []ledger.Row) error {
	if rows == nil {
		rows = []ledger.Row{}
	}
	return s.put(BucketScenarios, key, rows)
}

func (s *Store) DeleteScenario(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketScenarios))
		if b.Get([]byte(key)) == nil {
			return store.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

// Actuals

func (s *Store) Actuals(_ context.Context) ([]ledger.Row, error) {
	var rows []ledger.Row
	if _, err := s.get(BucketState, keyActuals, &rows); err != nil {
		return nil, fmt.Errorf("get actuals: %w", err)
	}
	return rows, nil
}

func (s *Store) AppendActuals(_ context.Context, rows []ledger.Row) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var existing []ledger.Row
		if data := tx.Bucket([]byte(BucketState)).Get([]byte(keyActuals)); data != nil {
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("decode actuals: %w", err)
			}
		}
		return put(tx, BucketState, []byte(keyActuals), append(existing, rows...))
	})
}

func (s *Store) ReplaceActuals(_ context.Context, rows []ledger.Row) error {
	return s.put(BucketState, keyActuals, rows)
}

// Versions

func (s *Store) loadVersions(tx *bolt.Tx, scenario string) ([]store.Version, error) {
	var list []store.Version
	if data := tx.Bucket([]byte(BucketVersions)).Get([]byte(scenario)); data != nil {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode versions of %s: %w", scenario, err)
		}
	}
	return list, nil
}

func (s *Store) SaveVersion(_ context.Context, v store.Version) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		list, err := s.loadVersions(tx, v.Scenario)
		if err != nil {
			return err
		}
		replaced := false
		for i := range list {
			if list[i].Name == v.Name {
				list[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, v)
		}
		return put(tx, BucketVersions, []byte(v.Scenario), list)
	})
}

func (s *Store) Versions(_ context.Context, scenario string) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		list, err := s.loadVersions(tx, scenario)
		for _, v := range list {
			names = append(names, v.Name)
		}
		return err
	})
	return names, err
}

func (s *Store) Version(_ context.Context, scenario, name string) (store.Version, error) {
	var out store.Version
	err := s.db.View(func(tx *bolt.Tx) error {
		list, err := s.loadVersions(tx, scenario)
		if err != nil {
			return err
		}
		for _, v := range list {
			if v.Name == name {
				out = v
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

// Roster and rates

func (s *Store) Roster(_ context.Context) ([]roster.Employee, error) {
	var out []roster.Employee
	if _, err := s.get(BucketState, keyRoster, &out); err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	return out, nil
}

func (s *Store) PutRoster(_ context.Context, employees []roster.Employee) error {
	return s.put(BucketState, keyRoster, employees)
}

func (s *Store) Rates(_ context.Context) ([]fx.Rate, error) {
	var out []fx.Rate
	if _, err := s.get(BucketState, keyRates, &out); err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}
	return out, nil
}

func (s *Store) PutRates(_ context.Context, rates []fx.Rate) error {
	return s.put(BucketState, keyRates, rates)
}

// Audit and chat

func (s *Store) AppendAudit(_ context.Context, e store.AuditEvent) error {
	return s.appendSeq(BucketAudit, e)
}

func (s *Store) Audit(_ context.Context, limit int) ([]store.AuditEvent, error) {
	var newestFirst []store.AuditEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(BucketAudit)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(newestFirst) == limit {
				break
			}
			var e store.AuditEvent
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode audit event: %w", err)
			}
			newestFirst = append(newestFirst, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]store.AuditEvent, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

func (s *Store) AppendMessage(_ context.Context, m store.Message) error {
	return s.appendSeq(BucketMessages, m)
}

func (s *Store) Messages(_ context.Context, threadID string) ([]store.Message, error) {
	out := []store.Message{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketMessages)).ForEach(func(_, v []byte) error {
			var m store.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			if m.ThreadID == threadID {
				out = append(out, m)
			}
			return nil
		})
	})
	return out, err
}

// itob converts a sequence number to a big-endian key so cursors iterate in
// insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ store.Store = (*Store)(nil)
