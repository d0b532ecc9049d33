package multisig

import (
	"encoding/json"
	"sync"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/store"
)

// PendingRequest is the most recent request submitted by the local client.
type PendingRequest struct {
	OwnerAccount string          `json:"ownerAccount"`
	Actions      []client.Action `json:"actions"`
	RequestID    uint64          `json:"requestId"`
}

var (
	fallbackOnce    sync.Once
	fallbackStorage *store.MemStore
)

// fallback returns the process wide in-memory storage used when no storage
// is configured.
func fallback() store.Storage {
	fallbackOnce.Do(func() {
		fallbackStorage = store.NewMemStore()
	})
	return fallbackStorage
}

// RequestStore holds at most one pending request. Every Set overwrites the
// previous one.
type RequestStore struct {
	db store.Storage
}

// NewRequestStore returns a request store using given storage. A nil storage
// selects an in-memory storage shared by the whole process.
func NewRequestStore(db store.Storage) *RequestStore {
	if db == nil {
		db = fallback()
	}
	return &RequestStore{db: db}
}

// Get returns the stored request or nil if none was stored.
func (s *RequestStore) Get() (*PendingRequest, error) {
	raw, err := s.db.Get([]byte(StorageKey))
	if err != nil {
		return nil, errors.Wrap(err, "read pending request")
	}
	if raw == nil {
		return nil, nil
	}
	var r PendingRequest
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidState, "cannot decode pending request: %s", err)
	}
	return &r, nil
}

// Set replaces the stored request.
func (s *RequestStore) Set(r PendingRequest) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot encode pending request: %s", err)
	}
	if err := s.db.Set([]byte(StorageKey), raw); err != nil {
		return errors.Wrap(err, "write pending request")
	}
	return nil
}
