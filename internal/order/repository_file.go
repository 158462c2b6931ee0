package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const lockRetryDelay = 10 * time.Millisecond

// FileRepository keeps every order in one JSON document keyed by order id.
// Each mutation reloads the document and replaces it atomically. Every
// operation holds an advisory lock on <path>.lock, so the server and orderctl
// can share one file.
type FileRepository struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
	lock *flock.Flock
}

func NewFileRepository(path string, log *zap.Logger) *FileRepository {
	return &FileRepository{path: path, log: log, lock: flock.New(path + ".lock")}
}

// withLock runs fn under the in-process mutex and the file lock. A single
// Flock is not safe to share between goroutines, hence the mutex.
func (r *FileRepository) withLock(ctx context.Context, shared bool, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ok bool
	var err error
	if shared {
		ok, err = r.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = r.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", r.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", r.lock.Path())
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.log.Warn("releasing orders file lock", zap.String("path", r.lock.Path()), zap.Error(err))
		}
	}()
	return fn()
}

// LoadAll reads the whole collection. A missing file is an empty collection;
// so is a malformed one, which is logged.
func (r *FileRepository) LoadAll() (map[string]Order, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	orders := map[string]Order{}
	if len(data) == 0 {
		return orders, nil
	}
	if err := json.Unmarshal(data, &orders); err != nil {
		r.log.Error("orders file is malformed, starting from an empty collection",
			zap.String("path", r.path), zap.Error(err))
		return map[string]Order{}, nil
	}
	return orders, nil
}

// SaveAll replaces the file with orders. Readers see either the old or the
// new document, never a partial one.
func (r *FileRepository) SaveAll(orders map[string]Order) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func (r *FileRepository) Insert(ctx context.Context, ord Order) error {
	return r.withLock(ctx, false, func() error {
		orders, err := r.LoadAll()
		if err != nil {
			return err
		}
		if _, ok := orders[ord.ID]; ok {
			return ErrDuplicateID
		}
		orders[ord.ID] = ord.Clone()
		return r.SaveAll(orders)
	})
}

func (r *FileRepository) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.withLock(ctx, true, func() error {
		orders, err := r.LoadAll()
		if err != nil {
			return err
		}
		var ok bool
		if o, ok = orders[id]; !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Order, error) {
	var o Order
	err := r.withLock(ctx, false, func() error {
		orders, err := r.LoadAll()
		if err != nil {
			return err
		}
		var ok bool
		if o, ok = orders[id]; !ok {
			return ErrNotFound
		}
		o.Status = status
		o.UpdatedAt = at
		orders[id] = o
		return r.SaveAll(orders)
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *FileRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	var out []Order
	err := r.withLock(ctx, true, func() error {
		orders, err := r.LoadAll()
		if err != nil {
			return err
		}
		out = make([]Order, 0, len(orders))
		for _, o := range orders {
			if f.match(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}
