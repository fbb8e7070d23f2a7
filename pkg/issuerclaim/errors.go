/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import "errors"

var (
	// ErrInvalidOption is returned for missing or malformed input.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidHandle is returned when a claim handle does not resolve to a live record.
	ErrInvalidHandle = errors.New("invalid claim handle")
	// ErrInvalidConnection is returned when a connection handle does not resolve.
	ErrInvalidConnection = errors.New("invalid connection handle")
	// ErrPrecondition is returned when an operation is not allowed in the claim's current state.
	ErrPrecondition = errors.New("precondition failed")
	// ErrSigning is returned when the claim could not be signed.
	ErrSigning = errors.New("claim signing failed")
	// ErrNoRequest is returned when a claim request is needed but none is attached.
	ErrNoRequest = errors.New("no claim request")
	// ErrPollFailed wraps errors from polling the agency for a claim request.
	ErrPollFailed = errors.New("poll for claim request failed")
)
