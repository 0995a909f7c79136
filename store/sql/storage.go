package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Storage keeps client state in the client_storage_entries table. It
// satisfies core.KeyValueStorage, so a SessionStore built on it survives
// process restarts.
type Storage struct {
	db   *bun.DB
	repo repository.Repository[*storageEntryRecord]
	now  func() time.Time
}

func NewStorage(db *bun.DB) (*Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*storageEntryRecord](db, storageEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid storage repository wiring: %w", err)
		}
	}
	return &Storage{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, fmt.Errorf("sqlstore: storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("storage_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Value, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: storage key is required")
	}
	now := s.now()

	// One statement, so concurrent first writes of a key cannot both insert.
	_, err := s.db.NewInsert().
		Model(&storageEntryRecord{
			ID:         uuid.NewString(),
			StorageKey: key,
			Value:      value,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).
		On("CONFLICT (storage_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Delete removes all keys in one transaction.
func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	trimmed := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			trimmed = append(trimmed, key)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*storageEntryRecord)(nil)).
			Where("storage_key IN (?)", bun.In(trimmed)).
			Exec(ctx)
		return err
	})
}
