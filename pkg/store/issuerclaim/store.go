/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
)

const (
	// StoreName is the name of the store holding serialized issuer claims.
	StoreName = "issuerclaim"

	stateTag = "state"
)

var logger = log.New("aries-framework/store/issuerclaim")

// ErrNotFound is returned when no claim is stored under a key.
var ErrNotFound = errors.New("claim not found")

// Entry is a stored claim.
type Entry struct {
	Key        string
	Serialized string
}

// Store persists serialized issuer claims.
type Store struct {
	store storage.Store
}

// New opens the issuer claim store from p.
func New(p storage.Provider) (*Store, error) {
	store, err := p.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("failed to open issuer claim store: %w", err)
	}

	err = p.SetStoreConfig(StoreName, storage.StoreConfiguration{TagNames: []string{stateTag}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store config for issuer claim store: %w", err)
	}

	return &Store{store: store}, nil
}

// NewKey returns the key a new claim is stored under: its source ID while that is free, a uuid otherwise.
func (s *Store) NewKey(sourceID string) string {
	if sourceID == "" {
		return uuid.New().String()
	}

	_, err := s.store.Get(sourceID)
	if errors.Is(err, storage.ErrDataNotFound) {
		return sourceID
	}

	return uuid.New().String()
}

// Put stores a serialized claim under key, tagged with its state.
func (s *Store) Put(key, serialized string) error {
	rec, err := issuerclaim.ParseRecord(serialized)
	if err != nil {
		return fmt.Errorf("put claim [%s]: %w", key, err)
	}

	err = s.store.Put(key, []byte(serialized), storage.Tag{Name: stateTag, Value: strconv.Itoa(int(rec.State))})
	if err != nil {
		return fmt.Errorf("put claim [%s]: %w", key, err)
	}

	logger.Debugf("stored claim [%s] in state %s", key, rec.State)

	return nil
}

// Get returns the serialized claim stored under key.
func (s *Store) Get(key string) (string, error) {
	b, err := s.store.Get(key)
	if errors.Is(err, storage.ErrDataNotFound) {
		return "", fmt.Errorf("get claim [%s]: %w", key, ErrNotFound)
	}

	if err != nil {
		return "", fmt.Errorf("get claim [%s]: %w", key, err)
	}

	return string(b), nil
}

// Delete removes the claim stored under key.
func (s *Store) Delete(key string) error {
	if err := s.store.Delete(key); err != nil {
		return fmt.Errorf("delete claim [%s]: %w", key, err)
	}

	return nil
}

// All returns every stored claim.
func (s *Store) All() ([]Entry, error) {
	return s.query(stateTag)
}

// ByState returns the stored claims in state st.
func (s *Store) ByState(st issuerclaim.State) ([]Entry, error) {
	return s.query(fmt.Sprintf("%s:%d", stateTag, int(st)))
}

func (s *Store) query(expression string) ([]Entry, error) {
	iter, err := s.store.Query(expression)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	defer func() {
		if errClose := iter.Close(); errClose != nil {
			logger.Errorf("failed to close claim iterator: %s", errClose)
		}
	}()

	var entries []Entry

	for {
		more, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("query claims: next: %w", err)
		}

		if !more {
			return entries, nil
		}

		key, err := iter.Key()
		if err != nil {
			return nil, fmt.Errorf("query claims: key: %w", err)
		}

		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("query claims: value: %w", err)
		}

		entries = append(entries, Entry{Key: key, Serialized: string(value)})
	}
}
