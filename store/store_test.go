package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]KV{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := kv.Set(ctx, "a", []byte("one")); err != nil {
				t.Fatal(err)
			}
			if err := kv.Set(ctx, "a", []byte("two")); err != nil {
				t.Fatal(err)
			}
			v, err := kv.Get(ctx, "a")
			if err != nil || string(v) != "two" {
				t.Fatalf("Get = %q, %v", v, err)
			}
			if err := kv.Set(ctx, "empty", nil); err != nil {
				t.Fatal(err)
			}
			if v, err := kv.Get(ctx, "empty"); err != nil || len(v) != 0 {
				t.Errorf("empty value: %q, %v", v, err)
			}
			if err := kv.Delete(ctx, "a"); err != nil {
				t.Fatal(err)
			}
			if err := kv.Delete(ctx, "a"); err != nil {
				t.Errorf("deleting missing key: %v", err)
			}
			if _, err := kv.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestKVConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Go(func() {
					key := fmt.Sprintf("k%d", i)
					if err := kv.Set(ctx, key, []byte(key)); err != nil {
						t.Error(err)
						return
					}
					if v, err := kv.Get(ctx, key); err != nil || string(v) != key {
						t.Errorf("%s: %q, %v", key, v, err)
					}
				})
			}
			wg.Wait()
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set(ctx, "k", []byte{0, 1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	v, err := db.Get(ctx, "k")
	if err != nil || len(v) != 3 || v[2] != 2 {
		t.Errorf("persisted value: %v, %v", v, err)
	}
}

func TestMemoryKeys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"tags/2", "mapping/1", "tags/1"} {
		_ = m.Set(ctx, k, nil)
	}
	got := m.Keys("tags/")
	if len(got) != 2 || got[0] != "tags/1" || got[1] != "tags/2" {
		t.Errorf("Keys = %v", got)
	}
}

func TestSQLitePragmas(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	conn, err := db.pool.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer db.pool.Put(conn)

	var mode string
	err = sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			mode = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
