/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"encoding/json"
	"fmt"
)

const (
	stateNameInitialized     = "initialized"
	stateNameOfferSent       = "offer-sent"
	stateNameRequestReceived = "request-received"
	stateNameClaimSent       = "claim-sent"
)

// State is the lifecycle state of an issuer claim. The numeric values are the serialized form.
type State int

// Claim lifecycle states, in protocol order.
const (
	StateInitialized     State = 1
	StateOfferSent       State = 2
	StateRequestReceived State = 3
	StateClaimSent       State = 4
)

// Name of this state.
func (s State) Name() string {
	switch s {
	case StateInitialized:
		return stateNameInitialized
	case StateOfferSent:
		return stateNameOfferSent
	case StateRequestReceived:
		return stateNameRequestReceived
	case StateClaimSent:
		return stateNameClaimSent
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s State) String() string {
	return s.Name()
}

// Valid reports whether s is one of the four lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateInitialized, StateOfferSent, StateRequestReceived, StateClaimSent:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next directly follows s. States only move forward one step at a time.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateInitialized:
		return next == StateOfferSent
	case StateOfferSent:
		return next == StateRequestReceived
	case StateRequestReceived:
		return next == StateClaimSent
	case StateClaimSent:
		return false
	default:
		return false
	}
}

// UnmarshalJSON rejects codes outside the known lifecycle states.
func (s *State) UnmarshalJSON(data []byte) error {
	var code int

	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("state: %w", err)
	}

	st := State(code)
	if !st.Valid() {
		return fmt.Errorf("state: unknown code %d", code)
	}

	*s = st

	return nil
}
