/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

const pwDID = "6vkhW3L28AophhA68SSzRS"

func TestLookup_Create(t *testing.T) {
	lookup := NewLookup()

	t.Run("with pairwise DID and endpoint", func(t *testing.T) {
		h, err := lookup.Create("conn-1", pwDID, "https://agency.example.com")
		require.NoError(t, err)
		require.True(t, lookup.IsValidHandle(h))

		rec, err := lookup.GetConnectionRecord(h)
		require.NoError(t, err)
		require.NotEmpty(t, rec.ConnectionID)
		require.Equal(t, "conn-1", rec.SourceID)

		did, err := lookup.PairwiseDID(h)
		require.NoError(t, err)
		require.Equal(t, pwDID, did)

		ep, err := lookup.Endpoint(h)
		require.NoError(t, err)
		require.Equal(t, "https://agency.example.com", ep)
	})

	t.Run("details set later", func(t *testing.T) {
		h, err := lookup.Create("conn-2", "", "")
		require.NoError(t, err)

		_, err = lookup.PairwiseDID(h)
		require.EqualError(t, err, "connection "+itoa(h)+" has no pairwise DID")

		ep, err := lookup.Endpoint(h)
		require.NoError(t, err)
		require.Empty(t, ep)

		require.NoError(t, lookup.SetPairwiseDID(h, pwDID))
		require.NoError(t, lookup.SetEndpoint(h, "http://localhost:8080"))

		did, err := lookup.PairwiseDID(h)
		require.NoError(t, err)
		require.Equal(t, pwDID, did)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := lookup.Create("bad", "0OIl", "")
		require.ErrorIs(t, err, ErrInvalidDID)

		_, err = lookup.Create("bad", pwDID, "not a url")
		require.ErrorIs(t, err, ErrInvalidEndpoint)

		h, err := lookup.Create("ok", "", "")
		require.NoError(t, err)
		require.ErrorIs(t, lookup.SetPairwiseDID(h, "l0l"), ErrInvalidDID)
		require.ErrorIs(t, lookup.SetEndpoint(h, "/relative"), ErrInvalidEndpoint)
	})
}

func TestLookup_Release(t *testing.T) {
	lookup := NewLookup()

	h, err := lookup.Create("conn", pwDID, "")
	require.NoError(t, err)

	require.NoError(t, lookup.Release(h))
	require.False(t, lookup.IsValidHandle(h))
	require.ErrorIs(t, lookup.Release(h), ErrNotFound)

	_, err = lookup.PairwiseDID(h)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = lookup.Endpoint(h)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, lookup.SetEndpoint(h, "http://localhost"), ErrNotFound)
	require.ErrorIs(t, lookup.SetPairwiseDID(h, pwDID), ErrNotFound)
}

func itoa(h uint32) string {
	return strconv.FormatUint(uint64(h), 10)
}
