/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BlindedMasterSecret is the holder's blinded link secret carried by a claim request.
type BlindedMasterSecret struct {
	ProverDID string  `json:"prover_did"`
	U         string  `json:"u"`
	UR        *string `json:"ur"`
}

// ClaimRequest is the holder's request for the offered claim.
type ClaimRequest struct {
	BlindedMS   *BlindedMasterSecret `json:"blinded_ms"`
	IssuerDID   string               `json:"issuer_did"`
	SchemaSeqNo int32                `json:"schema_seq_no"`
}

// ProverDID returns the DID of the requesting holder, or "" when the request has no blinded secret.
func (r *ClaimRequest) ProverDID() string {
	if r == nil || r.BlindedMS == nil {
		return ""
	}

	return r.BlindedMS.ProverDID
}

func (r *ClaimRequest) clone() *ClaimRequest {
	if r == nil {
		return nil
	}

	c := *r

	if r.BlindedMS != nil {
		ms := *r.BlindedMS

		if r.BlindedMS.UR != nil {
			ur := *r.BlindedMS.UR
			ms.UR = &ur
		}

		c.BlindedMS = &ms
	}

	return &c
}

// validateFor checks that the request answers an offer for rec.
func (r *ClaimRequest) validateFor(rec *Record) error {
	if r == nil {
		return ErrNoRequest
	}

	if r.ProverDID() == "" {
		return fmt.Errorf("%w: claim request has no blinded secret with prover DID", ErrInvalidOption)
	}

	if r.IssuerDID != rec.IssuerDID {
		return fmt.Errorf("%w: claim request issuer DID [%s] does not match [%s]",
			ErrInvalidOption, r.IssuerDID, rec.IssuerDID)
	}

	if r.SchemaSeqNo != rec.SchemaSeqNo {
		return fmt.Errorf("%w: claim request schema %d does not match %d",
			ErrInvalidOption, r.SchemaSeqNo, rec.SchemaSeqNo)
	}

	return nil
}

// Record is an issuer claim as owned by the Service. Field order is the serialized field order.
type Record struct {
	SourceID        string        `json:"source_id"`
	Handle          uint32        `json:"handle"`
	ClaimAttributes string        `json:"claim_attributes"`
	MsgUID          string        `json:"msg_uid"`
	SchemaSeqNo     int32         `json:"schema_seq_no"`
	IssuerDID       string        `json:"issuer_did"`
	IssuedDID       string        `json:"issued_did"`
	State           State         `json:"state"`
	ClaimRequest    *ClaimRequest `json:"claim_request"`
}

// Serialize encodes the record in its compact persisted form.
func (r *Record) Serialize() (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("serialize claim %d: %w", r.Handle, err)
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// ParseRecord decodes a serialized record. A missing claim_request is read as none. Records whose
// claim_request does not match their state are rejected.
func ParseRecord(data string) (*Record, error) {
	rec := &Record{}

	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("%w: parse claim: %v", ErrInvalidOption, err)
	}

	if !rec.State.Valid() {
		return nil, fmt.Errorf("%w: parse claim: missing state", ErrInvalidOption)
	}

	// a claim request is attached exactly when the holder's request has been received
	hasRequest := rec.State >= StateRequestReceived
	if hasRequest && rec.ClaimRequest == nil {
		return nil, fmt.Errorf("%w: parse claim: state %s without claim request", ErrInvalidOption, rec.State)
	}

	if !hasRequest && rec.ClaimRequest != nil {
		return nil, fmt.Errorf("%w: parse claim: state %s with claim request", ErrInvalidOption, rec.State)
	}

	if _, err := ParseAttributes(rec.ClaimAttributes); err != nil {
		return nil, fmt.Errorf("parse claim: %w", err)
	}

	return rec, nil
}
