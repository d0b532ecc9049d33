package store

import (
	"sync"

	"github.com/iov-one/dualsign/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDB is a durable storage kept in a leveldb database directory.
type LevelDB struct {
	mu  sync.Mutex
	db  *leveldb.DB
	dir string
}

var _ KVStore = (*LevelDB)(nil)

// OpenLevelDB opens or creates a leveldb database in given directory.
func OpenLevelDB(dir string) (*LevelDB, error) {
	if dir == "" {
		return nil, errors.Wrap(errors.ErrInput, "database directory is required")
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", dir, err)
	}
	return &LevelDB{db: db, dir: dir}, nil
}

// Get returns the value stored under given key, or nil if not found.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	value, err := l.db.Get(key, nil)
	switch {
	case err == nil:
		return value, nil
	case err == leveldb.ErrNotFound:
		return nil, nil
	default:
		return nil, errors.Wrapf(errors.ErrDatabase, "get %q: %s", key, err)
	}
}

// Has returns true if a value is stored under given key.
func (l *LevelDB) Has(key []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.db.Has(key, nil)
	if err != nil {
		return false, errors.Wrapf(errors.ErrDatabase, "has %q: %s", key, err)
	}
	return ok, nil
}

// Set writes the value, replacing any previous one.
func (l *LevelDB) Set(key, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.Put(key, value, nil); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "set %q: %s", key, err)
	}
	return nil
}

// Delete removes the value stored under given key, if any.
func (l *LevelDB) Delete(key []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.Delete(key, nil); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "delete %q: %s", key, err)
	}
	return nil
}

// Close releases the database. The storage must not be used afterwards.
func (l *LevelDB) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.Close(); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "close %q: %s", l.dir, err)
	}
	return nil
}
