package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

const (
	// DefaultFreeListSize is the size we hold for free node in btree
	DefaultFreeListSize = btree.DefaultFreeListSize
)

// MemStore is a btree based, in-memory storage. There is no persistence
// here. It is safe for concurrent use.
type MemStore struct {
	mu sync.RWMutex
	bt *btree.BTree
}

var _ KVStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory storage.
func NewMemStore() *MemStore {
	free := btree.NewFreeList(DefaultFreeListSize)
	return &MemStore{
		bt: btree.NewWithFreeList(2, free),
	}
}

// Get returns a copy of the value stored under given key.
func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := m.bt.Get(bkey{key})
	if res == nil {
		return nil, nil
	}
	return copyBytes(res.(setItem).value), nil
}

// Has returns true if a value is stored under given key.
func (m *MemStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.bt.Has(bkey{key}), nil
}

// Set writes the value, replacing any previous one.
func (m *MemStore) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Callers may reuse their slices.
	m.bt.ReplaceOrInsert(newSetItem(copyBytes(key), copyBytes(value)))
	return nil
}

// Delete removes the value stored under given key, if any.
func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bt.Delete(bkey{key})
	return nil
}

// Keys returns all keys in ascending order.
func (m *MemStore) Keys() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([][]byte, 0, m.bt.Len())
	m.bt.Ascend(func(i btree.Item) bool {
		keys = append(keys, copyBytes(i.(keyer).Key()))
		return true
	})
	return keys
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// we enforce all data in our btree implements keyer so we
// can compare nicely
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item
// and may be used for queries or embedded in data to store
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
