// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	backupKeyPrefix       = "backup/"
	recoveryKeyPrefix     = "recovery/"
	verificationKeyPrefix = "verification/"
	cleanupKeyPrefix      = "cleanup/"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// Open opens the catalog described by cfg.
func Open(cfg *config.CatalogConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(logging.NewBadgerAdapter())

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Catalog opened")
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// scan calls fn with every value stored under prefix.
func (s *BadgerStore) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveBackup inserts or replaces a backup record.
func (s *BadgerStore) SaveBackup(_ context.Context, rec *models.BackupRecord) error {
	return s.put(backupKeyPrefix+rec.ID, rec)
}

// GetBackup returns ErrNotFound for unknown ids.
func (s *BadgerStore) GetBackup(_ context.Context, id string) (*models.BackupRecord, error) {
	var rec models.BackupRecord
	if err := s.get(backupKeyPrefix+id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) ListBackups(ctx context.Context, filter models.BackupFilter) ([]*models.BackupRecord, error) {
	var out []*models.BackupRecord
	err := s.scan(ctx, backupKeyPrefix, func(val []byte) error {
		var rec models.BackupRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if filter.Matches(&rec) {
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *BadgerStore) SaveRecovery(_ context.Context, rec *models.RecoveryRecord) error {
	return s.put(recoveryKeyPrefix+rec.ID, rec)
}

func (s *BadgerStore) GetRecovery(_ context.Context, id string) (*models.RecoveryRecord, error) {
	var rec models.RecoveryRecord
	if err := s.get(recoveryKeyPrefix+id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) ListRecoveries(ctx context.Context, limit int) ([]*models.RecoveryRecord, error) {
	var out []*models.RecoveryRecord
	err := s.scan(ctx, recoveryKeyPrefix, func(val []byte) error {
		var rec models.RecoveryRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recoveries: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BadgerStore) SaveVerification(_ context.Context, rep *models.VerificationReport) error {
	return s.put(verificationKeyPrefix+rep.BackupID+"/"+rep.ID, rep)
}

func (s *BadgerStore) ListVerifications(ctx context.Context, backupID string) ([]*models.VerificationReport, error) {
	var out []*models.VerificationReport
	err := s.scan(ctx, verificationKeyPrefix+backupID+"/", func(val []byte) error {
		var rep models.VerificationReport
		if err := json.Unmarshal(val, &rep); err != nil {
			return err
		}
		out = append(out, &rep)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *BadgerStore) SaveCleanup(_ context.Context, rec *models.CleanupRecord) error {
	return s.put(cleanupKeyPrefix+rec.ID, rec)
}

func (s *BadgerStore) ListCleanups(ctx context.Context, limit int) ([]*models.CleanupRecord, error) {
	var out []*models.CleanupRecord
	err := s.scan(ctx, cleanupKeyPrefix, func(val []byte) error {
		var rec models.CleanupRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cleanups: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].RanAt.After(out[j].RanAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
