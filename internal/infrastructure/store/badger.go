package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"abi_resolver/internal/app/port"

	badgerdb "github.com/dgraph-io/badger/v3"
)

// BadgerStore persists values on local disk.
type BadgerStore struct {
	db     *badgerdb.DB
	logger port.Logger
}

// NewBadgerStore opens (or creates) a database under dir.
// An empty dir opens an in-memory database.
func NewBadgerStore(dir string, logger port.Logger) (*BadgerStore, error) {
	var opts badgerdb.Options
	if dir == "" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create badger dir %s: %w", dir, err)
		}
		opts = badgerdb.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil).
		WithNumCompactors(2).
		WithValueLogFileSize(64 << 20)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	logger.Info("Badger store opened", "dir", dir, "inMemory", dir == "")
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
