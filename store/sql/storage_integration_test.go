package sqlstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/migrations"
	sqlstore "github.com/goliatone/go-puthelp/store/sql"
)

func newSQLiteStorage(t *testing.T) (*persistence.Client, *sqlstore.Storage) {
	t.Helper()
	dsn := fmt.Sprintf(
		"file:puthelp-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, storage, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("open sqlite storage: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, storage
}

func TestOpen_AppliesMigrations(t *testing.T) {
	client, _ := newSQLiteStorage(t)

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"client_storage_entries",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "client_storage_entries" {
		t.Fatalf("expected client_storage_entries table, got %q", tableName)
	}
}

func TestOpen_AppliesHostMigrations(t *testing.T) {
	host := fstest.MapFS{
		"00002_host_bookmarks.up.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE IF NOT EXISTS host_bookmarks (id TEXT PRIMARY KEY, content_id INTEGER NOT NULL);"),
		},
		"00002_host_bookmarks.down.sql": &fstest.MapFile{
			Data: []byte("DROP TABLE IF EXISTS host_bookmarks;"),
		},
	}
	skipped := fstest.MapFS{
		"00003_host_audit.up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE host_audit (id UUID PRIMARY KEY, at TIMESTAMPTZ);")},
	}
	client, storage, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    fmt.Sprintf("file:puthelp-host-%d?mode=memory&cache=shared", time.Now().UnixNano()),
		Migrations: []migrations.Source{
			{Dialect: migrations.DialectSQLite, Label: "bookmarks", FS: host},
			{Dialect: migrations.DialectPostgres, Label: "audit", FS: skipped},
		},
	})
	if err != nil {
		t.Fatalf("open with host migrations: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	for _, table := range []string{"client_storage_entries", "host_bookmarks"} {
		var name string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &name); err != nil || name != table {
			t.Fatalf("expected table %s, got %q err=%v", table, name, err)
		}
	}
	if err := storage.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("storage after host migrations: %v", err)
	}
}

func TestOpen_RejectsInvalidHostMigrations(t *testing.T) {
	_, _, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver:     sqlstore.DriverSQLite,
		DSN:        fmt.Sprintf("file:puthelp-bad-host-%d?mode=memory&cache=shared", time.Now().UnixNano()),
		Migrations: []migrations.Source{{Dialect: migrations.DialectSQLite, FS: fstest.MapFS{}}},
	})
	if err == nil {
		t.Fatalf("expected host migration without up files to be rejected")
	}
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	if _, _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DriverSQLite}); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestStorage_SetGetOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	_, storage := newSQLiteStorage(t)

	if _, found, err := storage.Get(ctx, "access_token"); err != nil || found {
		t.Fatalf("expected empty storage, found=%v err=%v", found, err)
	}
	if err := storage.Set(ctx, "access_token", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := storage.Set(ctx, " access_token ", "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, found, err := storage.Get(ctx, "access_token")
	if err != nil || !found || value != "second" {
		t.Fatalf("expected overwritten value, got %q found=%v err=%v", value, found, err)
	}

	if err := storage.Set(ctx, "refresh_token", "r"); err != nil {
		t.Fatalf("set refresh: %v", err)
	}
	if err := storage.Set(ctx, "unrelated", "keep"); err != nil {
		t.Fatalf("set unrelated: %v", err)
	}
	if err := storage.Delete(ctx, "access_token", "refresh_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, key := range []string{"access_token", "refresh_token"} {
		if _, found, _ := storage.Get(ctx, key); found {
			t.Fatalf("expected %s deleted", key)
		}
	}
	if value, found, _ := storage.Get(ctx, "unrelated"); !found || value != "keep" {
		t.Fatalf("expected unrelated key untouched")
	}

	if err := storage.Set(ctx, "  ", "x"); err == nil {
		t.Fatalf("expected empty key rejection")
	}
	if err := storage.Delete(ctx); err != nil {
		t.Fatalf("expected no-op delete, got %v", err)
	}
}

func TestStorage_ConcurrentFirstWritesUpsertOneRow(t *testing.T) {
	ctx := context.Background()
	client, storage := newSQLiteStorage(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = storage.Set(ctx, "access_token", fmt.Sprintf("token-%d", i))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}

	var rows int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM client_storage_entries WHERE storage_key = ?",
		"access_token",
	).Scan(ctx, &rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one row for the key, got %d", rows)
	}
	value, found, err := storage.Get(ctx, "access_token")
	if err != nil || !found {
		t.Fatalf("expected stored value, found=%v err=%v", found, err)
	}
	var matched bool
	for i := 0; i < writers; i++ {
		if value == fmt.Sprintf("token-%d", i) {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("unexpected stored value %q", value)
	}

	if err := storage.Set(ctx, "access_token", "last"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if value, _, _ := storage.Get(ctx, "access_token"); value != "last" {
		t.Fatalf("expected upsert to replace the value, got %q", value)
	}
}

func TestStorage_BacksSessionStoreAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	client, storage := newSQLiteStorage(t)

	first := core.NewSessionStore(storage)
	if err := first.SetCredentials(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	reopened, err := sqlstore.NewStorageFrom(client)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	second := core.NewSessionStore(reopened)
	cred, err := second.Credential(ctx)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred.AccessToken != "access-1" || cred.RefreshToken != "refresh-1" {
		t.Fatalf("expected persisted pair, got %+v", cred)
	}

	if err := second.ClearCredentials(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if access, _ := first.GetAccessToken(ctx); access != "" {
		t.Fatalf("expected cleared credentials to be visible to every store")
	}
}

func TestNewStorageFrom_RejectsUnknownClients(t *testing.T) {
	if _, err := sqlstore.NewStorageFrom(nil); err == nil {
		t.Fatalf("expected nil client error")
	}
	if _, err := sqlstore.NewStorageFrom("not a client"); err == nil {
		t.Fatalf("expected unsupported client error")
	}
}
