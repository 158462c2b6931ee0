package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFileRepository_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")
	repo := NewFileRepository(path, zap.NewNop())

	ord := sampleOrder()
	if err := repo.Insert(ctx, ord); err != nil {
		t.Fatal(err)
	}
	if err := repo.Insert(ctx, ord); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := repo.Get(ctx, ord.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Items["latte"] != 3 || !got.TotalAmount.Equal(ord.TotalAmount) {
		t.Fatalf("unexpected order %+v", got)
	}

	later := ord.UpdatedAt.Add(time.Minute)
	updated, err := repo.UpdateStatus(ctx, ord.ID, StatusPreparing, later)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != StatusPreparing || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := repo.UpdateStatus(ctx, "NOPE0000", StatusReady, later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, "NOPE0000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// a second repository on the same file sees the change
	other := NewFileRepository(path, zap.NewNop())
	got, _ = other.Get(ctx, ord.ID)
	if got.Status != StatusPreparing {
		t.Fatalf("status not persisted: %s", got.Status)
	}
}

func TestFileRepository_RoundTripIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	repo := NewFileRepository(path, zap.NewNop())
	ord := sampleOrder()
	repo.Insert(context.Background(), ord)

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	all, err := repo.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveAll(all); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Fatalf("reload and save changed the file:\n%s\n%s", first, second)
	}
}

func TestFileRepository_MalformedLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	if err := os.WriteFile(path, []byte(`{"A1B2": {"id": `), 0o644); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zapcore.ErrorLevel)
	repo := NewFileRepository(path, zap.New(core))

	orders, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("malformed file should not be an error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty collection, got %v", orders)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected the corruption to be logged, got %d entries", logs.Len())
	}

	// missing file is empty too
	missing := NewFileRepository(filepath.Join(t.TempDir(), "none.json"), zap.NewNop())
	if orders, err := missing.LoadAll(); err != nil || len(orders) != 0 {
		t.Fatalf("expected empty collection, got %v, %v", orders, err)
	}
}

func TestFileRepository_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(filepath.Join(dir, "orders.json"), zap.NewNop())
	for _, id := range []string{"AAAA0001", "AAAA0002"} {
		ord := sampleOrder()
		ord.ID = id
		if err := repo.Insert(context.Background(), ord); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "orders.json" && e.Name() != "orders.json.lock" {
			t.Fatalf("unexpected file left behind: %s", e.Name())
		}
	}
	list, _ := repo.List(context.Background(), Filter{})
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
}

func TestFileRepository_UnwritableDir(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing", "orders.json"), zap.NewNop())
	if err := repo.Insert(context.Background(), sampleOrder()); err == nil {
		t.Fatalf("expected a write error")
	}
}

func TestFileRepository_SharedFileKeepsEveryInsert(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")
	server := NewFileRepository(path, zap.NewNop())
	cli := NewFileRepository(path, zap.NewNop())

	seed := sampleOrder()
	seed.ID = "SEED0000"
	if err := server.Insert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ord := sampleOrder()
			ord.ID = fmt.Sprintf("ORD%05d", i)
			errs <- server.Insert(ctx, ord)
		}(i)
		go func(i int) {
			defer wg.Done()
			status := StatusPreparing
			if i%2 == 0 {
				status = StatusReady
			}
			_, err := cli.UpdateStatus(ctx, "SEED0000", status, seed.UpdatedAt.Add(time.Duration(i)*time.Second))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := NewFileRepository(path, zap.NewNop()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != n+1 {
		t.Fatalf("expected %d orders in the file, got %d", n+1, len(all))
	}
}

func TestFileRepository_LockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	holder := NewFileRepository(path, zap.NewNop())
	repo := NewFileRepository(path, zap.NewNop())

	release := make(chan struct{})
	locked := make(chan struct{})
	go holder.withLock(context.Background(), false, func() error {
		close(locked)
		<-release
		return nil
	})
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := repo.Insert(ctx, sampleOrder()); err == nil {
		t.Fatalf("expected insert to give up while the file is locked")
	}
}
