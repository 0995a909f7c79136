package sqlstore

import (
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type storageEntryRecord struct {
	bun.BaseModel `bun:"table:client_storage_entries,alias:cse"`

	ID         string    `bun:"id,pk"`
	StorageKey string    `bun:"storage_key,notnull"`
	Value      string    `bun:"value,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func storageEntryHandlers() repository.ModelHandlers[*storageEntryRecord] {
	return repository.ModelHandlers[*storageEntryRecord]{
		NewRecord: func() *storageEntryRecord {
			return &storageEntryRecord{}
		},
		GetID: func(record *storageEntryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *storageEntryRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "storage_key"
		},
		GetIdentifierValue: func(record *storageEntryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.StorageKey)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
