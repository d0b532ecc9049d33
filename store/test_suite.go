package store

import (
	"bytes"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/iov-one/dualsign/dualsigntest/assert"
)

// TestSuite provides many methods that can be called in package-specific test
// code. We just customize the store being tested (pass in constructor), the
// rest of the logic is generic to the KVStore interface.
//
// This removes duplication between btree_test.go and leveldb_test.go, but can
// be used for any implementation of KVStore.
type TestSuite struct {
	makeBase TestStoreConstructor
}

type TestStoreConstructor func() (base KVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{
		makeBase: constructor,
	}
}

// GetSet does basic sanity checks on our storage.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	// make sure the store is empty at start but returns results
	// that are written to it
	k, v := []byte("french"), []byte("fry")
	s.AssertGetHas(t, base, k, nil, false)
	assert.Nil(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	// overwriting replaces the value
	v2 := []byte("toast")
	assert.Nil(t, base.Set(k, v2))
	s.AssertGetHas(t, base, k, v2, true)

	// other keys are not affected
	k3, v3 := []byte("Bayern"), []byte("Munich")
	assert.Nil(t, base.Set(k3, v3))
	s.AssertGetHas(t, base, k, v2, true)
	s.AssertGetHas(t, base, k3, v3, true)

	// delete removes only one key
	assert.Nil(t, base.Delete(k))
	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k3, v3, true)

	// deleting a missing key is not an error
	assert.Nil(t, base.Delete([]byte("missing")))
}

// ValueIsolation checks that a stored value cannot be modified through the
// slice that was used to write it.
func (s *TestSuite) ValueIsolation(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	k, v := []byte("key"), []byte("value")
	assert.Nil(t, base.Set(k, v))
	v[0] = 'X'
	s.AssertGetHas(t, base, k, []byte("value"), true)

	got, err := base.Get(k)
	assert.Nil(t, err)
	got[0] = 'Y'
	s.AssertGetHas(t, base, k, []byte("value"), true)
}

// Concurrent writes and reads random keys from many goroutines.
func (s *TestSuite) Concurrent(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	const Workers = 8
	keys := randKeys(Workers*4, 12)

	var wg sync.WaitGroup
	for w := 0; w < Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, k := range keys[w*4 : (w+1)*4] {
				if err := base.Set(k, k); err != nil {
					t.Errorf("set: %s", err)
				}
				if _, err := base.Get(k); err != nil {
					t.Errorf("get: %s", err)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, k := range keys {
		s.AssertGetHas(t, base, k, k, true)
	}
}

// AssertGetHas makes sure that both Get and Has return expected values.
func (s *TestSuite) AssertGetHas(t testing.TB, kv KVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	if !bytes.Equal(val, got) {
		t.Fatalf("want %q, got %q", val, got)
	}
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

func randKeys(count, length int) [][]byte {
	res := make([][]byte, count)
	for i := 0; i < count; i++ {
		res[i] = randBytes(length)
	}
	return res
}

func randBytes(length int) []byte {
	res := make([]byte, length)
	_, err := rand.Read(res)
	if err != nil {
		panic(err)
	}
	return res
}
