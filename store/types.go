package store

// Storage is a key-value storage. Get returns nil and no error for a missing
// key.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// KVStore is a Storage that can also test for and remove a key.
type KVStore interface {
	Storage
	Has(key []byte) (bool, error)
	Delete(key []byte) error
}
