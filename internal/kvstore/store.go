// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
	"github.com/tomtom215/coursescope/internal/models"
)

const (
	backendName      = "badger"
	batchKeyPrefix   = "batch:"
	resultKeyPrefix  = "result:"
	standaloneBucket = "standalone"

	maxConflictRetries = 3
)

var _ batch.Store = (*Store)(nil)

// Store implements batch.Store on BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir. An empty dir opens an in-memory
// store.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = badgerLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logging.Info().Str("path", dir).Bool("in_memory", dir == "").Msg("Badger store ready")
	return New(db), nil
}

// New wraps an open Badger database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func batchKey(id string) []byte {
	return []byte(batchKeyPrefix + id)
}

func resultPrefix(batchID *string) string {
	bucket := standaloneBucket
	if batchID != nil {
		bucket = *batchID
	}
	return resultKeyPrefix + bucket + ":"
}

func resultKey(batchID *string, courseID int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", resultPrefix(batchID), courseID))
}

// update runs fn in a read-write transaction, retrying Badger conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		select {
		case <-time.After(time.Millisecond * time.Duration(1<<uint(attempt))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backendName, op, time.Since(start), err)
}

// CreateBatch stores a new batch.
func (s *Store) CreateBatch(ctx context.Context, b *models.AuditBatch) (err error) {
	defer func(start time.Time) { observe("create_batch", start, err) }(time.Now())

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		key := batchKey(b.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("batch %s already exists", b.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get batch: %w", err)
		}
		return txn.Set(key, data)
	})
}

// UpdateBatch replaces the snapshot of an existing batch.
func (s *Store) UpdateBatch(ctx context.Context, b *models.AuditBatch) (err error) {
	defer func(start time.Time) { observe("update_batch", start, err) }(time.Now())

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		key := batchKey(b.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("batch %s: %w", b.ID, models.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetBatch returns one batch.
func (s *Store) GetBatch(_ context.Context, id string) (b *models.AuditBatch, err error) {
	defer func(start time.Time) { observe("get_batch", start, err) }(time.Now())

	var out models.AuditBatch
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(batchKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("batch %s: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	normalizeBatch(&out)
	return &out, nil
}

// ListBatches returns up to limit batches, newest first. A limit <= 0 means
// no limit.
func (s *Store) ListBatches(_ context.Context, limit int) (batches []*models.AuditBatch, err error) {
	defer func(start time.Time) { observe("list_batches", start, err) }(time.Now())

	batches = make([]*models.AuditBatch, 0)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(batchKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var b models.AuditBatch
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			}); err != nil {
				return fmt.Errorf("decode batch %s: %w", it.Item().Key(), err)
			}
			normalizeBatch(&b)
			batches = append(batches, &b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

// DeleteBatch removes a batch and every result under it in one transaction.
func (s *Store) DeleteBatch(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_batch", start, err) }(time.Now())

	return s.update(ctx, func(txn *badger.Txn) error {
		key := batchKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("batch %s: %w", id, models.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}

		var resultKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(resultPrefix(&id))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			resultKeys = append(resultKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range resultKeys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete result: %w", err)
			}
		}
		return txn.Delete(key)
	})
}

// UpsertResult writes the result under its (batch, course) key.
func (s *Store) UpsertResult(ctx context.Context, r *models.CourseAuditResult) (err error) {
	defer func(start time.Time) { observe("upsert_result", start, err) }(time.Now())

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(resultKey(r.BatchID, r.CourseID), data)
	})
}

// GetResults returns a batch's results ordered by course id.
func (s *Store) GetResults(_ context.Context, batchID string) (results []*models.CourseAuditResult, err error) {
	defer func(start time.Time) { observe("get_results", start, err) }(time.Now())

	results = make([]*models.CourseAuditResult, 0)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(resultPrefix(&batchID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r models.CourseAuditResult
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode result %s: %w", it.Item().Key(), err)
			}
			results = append(results, &r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	return results, nil
}

// GetStandaloneResult returns the standalone result for a course.
func (s *Store) GetStandaloneResult(_ context.Context, courseID int64) (r *models.CourseAuditResult, err error) {
	defer func(start time.Time) { observe("get_standalone_result", start, err) }(time.Now())

	var out models.CourseAuditResult
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(nil, courseID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("standalone result for course %d: %w", courseID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(context.Context) error {
	if s.db == nil || s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func normalizeBatch(b *models.AuditBatch) {
	if b.FailedItemIDs == nil {
		b.FailedItemIDs = []int64{}
	}
}
