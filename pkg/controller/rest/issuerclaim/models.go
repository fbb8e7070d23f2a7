/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

// CreateRequest model
//
// This is used for creating an issuer claim.
//
// swagger:parameters createClaim
type CreateRequest struct {
	// SourceID is the caller's label for the claim, also the key it is persisted under
	SourceID string `json:"source_id"`
	// SchemaSeqNo is the ledger sequence number of the claim schema
	SchemaSeqNo int32 `json:"schema_seq_no"`
	// IssuerDID is the base58 DID of the issuer
	//
	// required: true
	IssuerDID string `json:"issuer_did"`
	// ClaimData is the JSON object of attribute values, as a string
	//
	// required: true
	ClaimData string `json:"claim_data"`
}

// HandleResponse model
//
// Returned by operations that register a claim or a connection.
//
// swagger:response handleResponse
type HandleResponse struct {
	Handle uint32 `json:"handle"`
}

// ConnectionRequest model
//
// This is used for sending an offer or a claim on a connection.
//
// swagger:parameters sendOffer sendClaim
type ConnectionRequest struct {
	// ConnectionHandle of the connection the message is sent on
	//
	// required: true
	ConnectionHandle uint32 `json:"connection_handle"`
}

// StateResponse model
//
// response of update state action
//
// swagger:response stateResponse
type StateResponse struct {
	State uint32 `json:"state"`
	Name  string `json:"name"`
}

// CreateConnectionRequest model
//
// This is used for registering a pairwise connection.
//
// swagger:parameters createConnection
type CreateConnectionRequest struct {
	SourceID string `json:"source_id"`
	// PairwiseDID is the base58 DID the issuer uses on this connection
	//
	// required: true
	PairwiseDID string `json:"pw_did"`
	// Endpoint overrides the configured agency URL for this connection
	Endpoint string `json:"endpoint,omitempty"`
}
