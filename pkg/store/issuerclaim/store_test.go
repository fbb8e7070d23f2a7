/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
)

func claimJSON(sourceID string, st issuerclaim.State) string {
	return fmt.Sprintf(`{"source_id":%q,"handle":1,"claim_attributes":"{\"attr\":\"value\"}","msg_uid":"",`+
		`"schema_seq_no":32,"issuer_did":"8XFh8yBzrpJQmNyZzgoTqB","issued_did":"","state":%d,"claim_request":null}`,
		sourceID, int(st))
}

type failingProvider struct {
	storage.Provider
	openErr   error
	configErr error
}

func (p *failingProvider) OpenStore(name string) (storage.Store, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}

	return p.Provider.OpenStore(name)
}

func (p *failingProvider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	if p.configErr != nil {
		return p.configErr
	}

	return p.Provider.SetStoreConfig(name, config)
}

func TestNew(t *testing.T) {
	s, err := New(mem.NewProvider())
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = New(&failingProvider{Provider: mem.NewProvider(), openErr: errors.New("open")})
	require.EqualError(t, err, "failed to open issuer claim store: open")

	_, err = New(&failingProvider{Provider: mem.NewProvider(), configErr: errors.New("config")})
	require.EqualError(t, err, "failed to set store config for issuer claim store: config")
}

func TestStore(t *testing.T) {
	s, err := New(mem.NewProvider())
	require.NoError(t, err)

	t.Run("put get delete", func(t *testing.T) {
		data := claimJSON("c1", issuerclaim.StateInitialized)

		require.NoError(t, s.Put("c1", data))

		got, err := s.Get("c1")
		require.NoError(t, err)
		require.Equal(t, data, got)

		require.NoError(t, s.Delete("c1"))

		_, err = s.Get("c1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects records that do not parse", func(t *testing.T) {
		err := s.Put("bad", `{"state":12}`)
		require.ErrorIs(t, err, issuerclaim.ErrInvalidOption)
	})

	t.Run("query by state", func(t *testing.T) {
		require.NoError(t, s.Put("a", claimJSON("a", issuerclaim.StateInitialized)))
		require.NoError(t, s.Put("b", claimJSON("b", issuerclaim.StateOfferSent)))
		require.NoError(t, s.Put("c", claimJSON("c", issuerclaim.StateOfferSent)))

		all, err := s.All()
		require.NoError(t, err)
		require.Len(t, all, 3)

		offered, err := s.ByState(issuerclaim.StateOfferSent)
		require.NoError(t, err)
		require.Len(t, offered, 2)

		for _, e := range offered {
			require.Contains(t, []string{"b", "c"}, e.Key)
		}

		// a state change moves the record to the new tag
		require.NoError(t, s.Put("a", claimJSON("a", issuerclaim.StateOfferSent)))

		initialized, err := s.ByState(issuerclaim.StateInitialized)
		require.NoError(t, err)
		require.Empty(t, initialized)
	})

	t.Run("new keys", func(t *testing.T) {
		require.Equal(t, "fresh", s.NewKey("fresh"))

		require.NoError(t, s.Put("taken", claimJSON("taken", issuerclaim.StateInitialized)))
		require.NotEqual(t, "taken", s.NewKey("taken"))
		require.NotEmpty(t, s.NewKey(""))
		require.NotEqual(t, s.NewKey(""), s.NewKey(""))
	})
}
