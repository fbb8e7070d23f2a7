/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-claim-issuer/pkg/handle"
)

var logger = log.New("aries-framework/store/connection")

var (
	// ErrNotFound is returned when a connection handle does not resolve.
	ErrNotFound = errors.New("connection not found")
	// ErrInvalidDID is returned for a pairwise DID that is not a base58 identifier.
	ErrInvalidDID = errors.New("invalid pairwise DID")
	// ErrInvalidEndpoint is returned for an endpoint that is not an absolute URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// Record contains what the issuer knows about a holder relationship.
type Record struct {
	ConnectionID    string `json:"connection_id"`
	SourceID        string `json:"source_id"`
	MyDID           string `json:"pw_did"`
	ServiceEndPoint string `json:"endpoint"`
}

// Lookup keeps connection records addressed by handle.
type Lookup struct {
	conns *handle.Registry[Record]
}

// NewLookup returns an empty connection lookup.
func NewLookup() *Lookup {
	return &Lookup{conns: handle.New[Record]()}
}

// Create registers a connection and returns its handle. pwDID and endpoint may be set later.
func (c *Lookup) Create(sourceID, pwDID, endpoint string) (uint32, error) {
	if err := validateDID(pwDID); err != nil {
		return 0, err
	}

	if err := validateEndpoint(endpoint); err != nil {
		return 0, err
	}

	h, err := c.conns.Add(Record{
		ConnectionID:    uuid.New().String(),
		SourceID:        sourceID,
		MyDID:           pwDID,
		ServiceEndPoint: endpoint,
	})
	if err != nil {
		return 0, fmt.Errorf("create connection: %w", err)
	}

	logger.Debugf("connection %d created (source_id=[%s] pw_did=[%s])", h, sourceID, pwDID)

	return h, nil
}

// SetPairwiseDID sets the pairwise DID of connection h.
func (c *Lookup) SetPairwiseDID(h uint32, did string) error {
	if err := validateDID(did); err != nil {
		return err
	}

	return c.mutate(h, func(r *Record) {
		r.MyDID = did
	})
}

// SetEndpoint sets the agency endpoint of connection h.
func (c *Lookup) SetEndpoint(h uint32, endpoint string) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}

	return c.mutate(h, func(r *Record) {
		r.ServiceEndPoint = endpoint
	})
}

func (c *Lookup) mutate(h uint32, fn func(r *Record)) error {
	err := c.conns.Mutate(h, func(r *Record) error {
		fn(r)

		return nil
	})
	if errors.Is(err, handle.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}

	return err
}

// IsValidHandle reports whether h names a live connection.
func (c *Lookup) IsValidHandle(h uint32) bool {
	return c.conns.IsValid(h)
}

// GetConnectionRecord returns a copy of connection h.
func (c *Lookup) GetConnectionRecord(h uint32) (*Record, error) {
	rec, err := c.conns.Get(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, h)
	}

	return &rec, nil
}

// PairwiseDID returns the pairwise DID of connection h. A connection without one cannot be messaged.
func (c *Lookup) PairwiseDID(h uint32) (string, error) {
	rec, err := c.GetConnectionRecord(h)
	if err != nil {
		return "", err
	}

	if rec.MyDID == "" {
		return "", fmt.Errorf("connection %d has no pairwise DID", h)
	}

	return rec.MyDID, nil
}

// Endpoint returns the agency endpoint of connection h, "" when none was set.
func (c *Lookup) Endpoint(h uint32) (string, error) {
	rec, err := c.GetConnectionRecord(h)
	if err != nil {
		return "", err
	}

	return rec.ServiceEndPoint, nil
}

// Release removes connection h.
func (c *Lookup) Release(h uint32) error {
	if err := c.conns.Release(h); err != nil {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}

	return nil
}

func validateDID(did string) error {
	if did == "" {
		return nil
	}

	if len(base58.Decode(did)) == 0 {
		return fmt.Errorf("%w: [%s]", ErrInvalidDID, did)
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: [%s]", ErrInvalidEndpoint, endpoint)
	}

	return nil
}
