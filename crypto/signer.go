package crypto

import (
	"crypto/sha256"

	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/store"
)

// Signer signs messages on behalf of accounts.
type Signer interface {
	// PublicKey returns the key used to sign for given account.
	PublicKey(accountID, networkID string) (PublicKey, error)
	// SignMessage returns the ed25519 signature of the sha256 hash of
	// given message.
	SignMessage(message []byte, accountID, networkID string) ([]byte, error)
}

// KeyStore keeps secret keys of accounts in a key-value storage.
type KeyStore struct {
	db store.KVStore
}

// NewKeyStore returns a key store that keeps secret keys in given storage.
func NewKeyStore(db store.KVStore) *KeyStore {
	return &KeyStore{db: db}
}

func keyStoreKey(accountID, networkID string) []byte {
	return []byte("key:" + networkID + ":" + accountID)
}

// SetKey stores the key pair of given account.
func (ks *KeyStore) SetKey(networkID, accountID string, key *KeyPair) error {
	return ks.db.Set(keyStoreKey(accountID, networkID), []byte(key.String()))
}

// GetKey returns the key pair of given account. ErrNotFound is returned if no
// key is stored for the account.
func (ks *KeyStore) GetKey(networkID, accountID string) (*KeyPair, error) {
	raw, err := ks.db.Get(keyStoreKey(accountID, networkID))
	if err != nil {
		return nil, errors.Wrap(err, "key store")
	}
	if raw == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no key for %s on %s", accountID, networkID)
	}
	return ParseKeyPair(string(raw))
}

// RemoveKey deletes the key pair of given account.
func (ks *KeyStore) RemoveKey(networkID, accountID string) error {
	return ks.db.Delete(keyStoreKey(accountID, networkID))
}

// KeyStoreSigner signs with the keys found in a KeyStore.
type KeyStoreSigner struct {
	keys *KeyStore
}

var _ Signer = (*KeyStoreSigner)(nil)

// NewKeyStoreSigner returns a signer using keys from given store.
func NewKeyStoreSigner(keys *KeyStore) *KeyStoreSigner {
	return &KeyStoreSigner{keys: keys}
}

// NewInMemorySigner returns a signer holding a single key of one account.
func NewInMemorySigner(networkID, accountID string, key *KeyPair) (*KeyStoreSigner, error) {
	ks := NewKeyStore(store.NewMemStore())
	if err := ks.SetKey(networkID, accountID, key); err != nil {
		return nil, err
	}
	return NewKeyStoreSigner(ks), nil
}

// PublicKey returns the public key of given account.
func (s *KeyStoreSigner) PublicKey(accountID, networkID string) (PublicKey, error) {
	key, err := s.keys.GetKey(networkID, accountID)
	if err != nil {
		return PublicKey{}, err
	}
	return key.PublicKey(), nil
}

// SignMessage signs the sha256 hash of given message with the account key.
func (s *KeyStoreSigner) SignMessage(message []byte, accountID, networkID string) ([]byte, error) {
	key, err := s.keys.GetKey(networkID, accountID)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(message)
	return key.Sign(hash[:]), nil
}
