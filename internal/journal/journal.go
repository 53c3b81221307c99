// Package journal keeps a local bbolt copy of shutdown audit entries.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

var bucketEntries = []byte("entries")

// keySep separates execution id from instance id in entry keys.
const keySep = "/"

// Journal implements shutdown.AuditStore on a bbolt file.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// BatchPut writes all entries in a single transaction.
func (j *Journal) BatchPut(_ context.Context, entries []shutdown.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	err := j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry %s: %w", entry.InstanceID, err)
			}
			if err := b.Put(entryKey(entry.ExecutionID, entry.InstanceID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Execution returns the entries recorded for one execution, ordered by instance id.
// Ids may contain the key separator, so the decoded id is matched exactly.
func (j *Journal) Execution(executionID string) ([]shutdown.LogEntry, error) {
	var entries []shutdown.LogEntry
	prefix := []byte(executionID + keySep)

	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var entry shutdown.LogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			if entry.ExecutionID != executionID {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Recent returns up to limit entries, newest shutdown first. A limit of zero
// or less returns everything.
func (j *Journal) Recent(limit int) ([]shutdown.LogEntry, error) {
	var entries []shutdown.LogEntry

	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var entry shutdown.LogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].ShutdownTimestamp > entries[b].ShutdownTimestamp
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func entryKey(executionID, instanceID string) []byte {
	return []byte(executionID + keySep + instanceID)
}
