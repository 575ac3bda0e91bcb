package session

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerKV is a KV stored in a Badger database directory.
type BadgerKV struct {
	db *badger.DB
}

// OpenBadger opens or creates a database at dir.
func OpenBadger(dir string) (*BadgerKV, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return openBadger(opts)
}

// OpenBadgerInMemory opens a database that lives only as long as the process.
func OpenBadgerInMemory() (*BadgerKV, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerKV, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

func (b *BadgerKV) Close() error {
	return b.db.Close()
}

func (b *BadgerKV) Get(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (b *BadgerKV) Set(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *BadgerKV) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerKV) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Write applies every delete and set in a single transaction.
func (b *BadgerKV) Write(set map[string][]byte, del []string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range del {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, v := range set {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}
