/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-claim-issuer/pkg/agency"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/command"
	"github.com/hyperledger/aries-claim-issuer/pkg/internal/logutil"
	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
)

var logger = log.New("aries-framework/controller/issuerclaim")

const (
	// InvalidOptionErrorCode is for missing callbacks and malformed input.
	InvalidOptionErrorCode = command.Code(iota + command.IssuerClaim)
	// InvalidClaimHandleErrorCode is for claim handles that do not resolve.
	InvalidClaimHandleErrorCode
	// InvalidConnectionHandleErrorCode is for connection handles that do not resolve.
	InvalidConnectionHandleErrorCode
	// PreconditionFailedErrorCode is for operations not allowed in the claim's current state.
	PreconditionFailedErrorCode
	// ConnectionFailureErrorCode is for agency endpoints that could not be reached.
	ConnectionFailureErrorCode
	// PostFailureErrorCode is for agency endpoints that rejected the message.
	PostFailureErrorCode
	// ReadFailureErrorCode is for agency responses that could not be received.
	ReadFailureErrorCode
	// UnknownErrorCode is for signing failures and unexpected internal errors.
	UnknownErrorCode
)

// constants for issuer claim commands.
const (
	// command name.
	CommandName = "issuerclaim"

	Create      = "Create"
	SendOffer   = "SendOffer"
	UpdateState = "UpdateState"
	SendClaim   = "SendClaim"
	Serialize   = "Serialize"
	Deserialize = "Deserialize"
	Release     = "Release"
	errMsgNoCb  = "missing callback"
	claimHandle = "claimHandle"
	connHandle  = "connectionHandle"
)

// HandleCallback receives the outcome of operations that produce a claim handle. h is 0 on failure.
type HandleCallback func(commandHandle uint32, code command.Code, h uint32)

// StatusCallback receives the outcome of operations without a payload.
type StatusCallback func(commandHandle uint32, code command.Code)

// StateCallback receives the outcome of update-state and the claim's numeric state.
type StateCallback func(commandHandle uint32, code command.Code, state uint32)

// StringCallback receives a serialized claim. s is empty on failure.
type StringCallback func(commandHandle uint32, code command.Code, s string)

// ClaimService is the claim lifecycle the command drives.
type ClaimService interface {
	Create(sourceID string, schemaSeqNo int32, issuerDID, claimData string) (uint32, error)
	IsValidHandle(h uint32) bool
	SendOffer(ctx context.Context, h, conn uint32) error
	UpdateState(ctx context.Context, h uint32) (issuerclaim.State, error)
	SendClaim(ctx context.Context, h, conn uint32) error
	ToString(h uint32) (string, error)
	FromString(data string) (uint32, error)
	Release(h uint32) error
	ReleaseAll()
}

// ConnectionValidator tells whether a connection handle resolves.
type ConnectionValidator interface {
	IsValidHandle(h uint32) bool
}

// Opt configures a Command.
type Opt func(c *Command)

// WithExecutor sets the executor operations run on.
func WithExecutor(e command.Executor) Opt {
	return func(c *Command) {
		c.executor = e
	}
}

// Command is the asynchronous issuer claim API. Every operation validates its input on the calling
// goroutine and returns a status right away. Accepted operations then run on the executor and invoke
// their callback exactly once. Rejected operations never invoke the callback.
type Command struct {
	claims   ClaimService
	conns    ConnectionValidator
	executor command.Executor
	wait     func()
}

// New returns a new issuer claim command.
func New(claims ClaimService, conns ConnectionValidator, opts ...Opt) *Command {
	exec := &command.GoExecutor{}

	c := &Command{
		claims:   claims,
		conns:    conns,
		executor: exec,
		wait:     exec.Wait,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.executor != exec {
		c.wait = func() {}
	}

	return c
}

// Close waits for operations scheduled on the default executor. Operations started after Close fail in their callback.
func (c *Command) Close() {
	c.wait()
}

// Create registers a new claim. The callback receives the new handle.
func (c *Command) Create(cmd uint32, sourceID string, schemaSeqNo int32, issuerDID, claimData string,
	cb HandleCallback) command.Code {
	if cb == nil {
		return c.reject(Create, InvalidOptionErrorCode, errMsgNoCb)
	}

	if issuerDID == "" || claimData == "" {
		return c.reject(Create, InvalidOptionErrorCode, "issuer DID and claim data are required")
	}

	c.spawn(Create, func(once *callOnce) {
		h, err := c.claims.Create(sourceID, schemaSeqNo, issuerDID, claimData)
		if err != nil {
			code := UnknownErrorCode
			if errors.Is(err, issuerclaim.ErrInvalidOption) {
				code = InvalidOptionErrorCode
			}

			code = c.failed(Create, code, err)
			once.do(func() { cb(cmd, code, 0) })

			return
		}

		logutil.LogDebug(logger, CommandName, Create, "success", logutil.HandleKV(claimHandle, h))
		once.do(func() { cb(cmd, command.Success, h) })
	}, func(code command.Code) { cb(cmd, code, 0) })

	return command.Success
}

// SendOffer sends the claim offer on connection conn.
func (c *Command) SendOffer(cmd, h, conn uint32, cb StatusCallback) command.Code {
	if code := c.validate(SendOffer, cb == nil, h, &conn); code != command.Success {
		return code
	}

	c.spawn(SendOffer, func(once *callOnce) {
		err := c.claims.SendOffer(context.Background(), h, conn)
		if err != nil {
			code := c.failed(SendOffer, transportCode(err), err)
			once.do(func() { cb(cmd, code) })

			return
		}

		logutil.LogDebug(logger, CommandName, SendOffer, "success", logutil.HandleKV(claimHandle, h))
		once.do(func() { cb(cmd, command.Success) })
	}, func(code command.Code) { cb(cmd, code) })

	return command.Success
}

// UpdateState polls for the holder's claim request. A failed poll is reported as success with the
// unchanged state.
func (c *Command) UpdateState(cmd, h uint32, cb StateCallback) command.Code {
	if code := c.validate(UpdateState, cb == nil, h, nil); code != command.Success {
		return code
	}

	c.spawn(UpdateState, func(once *callOnce) {
		st, err := c.claims.UpdateState(context.Background(), h)
		if err != nil && !errors.Is(err, issuerclaim.ErrPollFailed) {
			code := c.failed(UpdateState, stateCode(err), err)
			once.do(func() { cb(cmd, code, 0) })

			return
		}

		once.do(func() { cb(cmd, command.Success, uint32(st)) })
	}, func(code command.Code) { cb(cmd, code, 0) })

	return command.Success
}

// SendClaim signs and delivers the claim on connection conn.
func (c *Command) SendClaim(cmd, h, conn uint32, cb StatusCallback) command.Code {
	if code := c.validate(SendClaim, cb == nil, h, &conn); code != command.Success {
		return code
	}

	c.spawn(SendClaim, func(once *callOnce) {
		err := c.claims.SendClaim(context.Background(), h, conn)
		if err != nil {
			code := c.failed(SendClaim, stateCode(err), err)
			once.do(func() { cb(cmd, code) })

			return
		}

		logutil.LogDebug(logger, CommandName, SendClaim, "success", logutil.HandleKV(claimHandle, h))
		once.do(func() { cb(cmd, command.Success) })
	}, func(code command.Code) { cb(cmd, code) })

	return command.Success
}

// Serialize reports the serialized claim.
func (c *Command) Serialize(cmd, h uint32, cb StringCallback) command.Code {
	if code := c.validate(Serialize, cb == nil, h, nil); code != command.Success {
		return code
	}

	c.spawn(Serialize, func(once *callOnce) {
		s, err := c.claims.ToString(h)
		if err != nil {
			code := c.failed(Serialize, stateCode(err), err)
			once.do(func() { cb(cmd, code, "") })

			return
		}

		logger.Debugf("serialized claim %d: %s", h, s)
		once.do(func() { cb(cmd, command.Success, s) })
	}, func(code command.Code) { cb(cmd, code, "") })

	return command.Success
}

// Deserialize registers a serialized claim under a new handle.
func (c *Command) Deserialize(cmd uint32, data string, cb HandleCallback) command.Code {
	if cb == nil {
		return c.reject(Deserialize, InvalidOptionErrorCode, errMsgNoCb)
	}

	if data == "" || !json.Valid([]byte(data)) {
		return c.reject(Deserialize, InvalidOptionErrorCode, "serialized claim is not JSON")
	}

	c.spawn(Deserialize, func(once *callOnce) {
		h, err := c.claims.FromString(data)
		if err != nil {
			code := UnknownErrorCode
			if errors.Is(err, issuerclaim.ErrInvalidOption) {
				code = InvalidOptionErrorCode
			}

			code = c.failed(Deserialize, code, err)
			once.do(func() { cb(cmd, code, 0) })

			return
		}

		once.do(func() { cb(cmd, command.Success, h) })
	}, func(code command.Code) { cb(cmd, code, 0) })

	return command.Success
}

// Release removes claim h synchronously.
func (c *Command) Release(h uint32) command.Code {
	if err := c.claims.Release(h); err != nil {
		return c.reject(Release, InvalidClaimHandleErrorCode, err.Error())
	}

	return command.Success
}

// ReleaseAll removes every claim.
func (c *Command) ReleaseAll() {
	c.claims.ReleaseAll()
}

func (c *Command) validate(action string, noCallback bool, h uint32, conn *uint32) command.Code {
	if noCallback {
		return c.reject(action, InvalidOptionErrorCode, errMsgNoCb)
	}

	if !c.claims.IsValidHandle(h) {
		return c.reject(action, InvalidClaimHandleErrorCode, "invalid claim handle",
			logutil.HandleKV(claimHandle, h))
	}

	if conn != nil && !c.conns.IsValidHandle(*conn) {
		return c.reject(action, InvalidConnectionHandleErrorCode, "invalid connection handle",
			logutil.HandleKV(connHandle, *conn))
	}

	return command.Success
}

func (c *Command) reject(action string, code command.Code, msg string, data ...string) command.Code {
	logutil.LogDebug(logger, CommandName, action, msg, data...)

	return code
}

// callOnce lets a callback fire at most once.
type callOnce struct {
	fired int32
}

func (o *callOnce) do(fn func()) {
	if atomic.CompareAndSwapInt32(&o.fired, 0, 1) {
		fn()
	}
}

// spawn runs op on the executor. If op panics before its callback fired, fail delivers UnknownErrorCode.
func (c *Command) spawn(action string, op func(once *callOnce), fail func(command.Code)) {
	scheduled := c.executor.Go(func() {
		once := &callOnce{}

		defer func() {
			if r := recover(); r != nil {
				logutil.LogError(logger, CommandName, action, fmt.Sprintf("panic: %v", r))
				once.do(func() { fail(UnknownErrorCode) })
			}
		}()

		op(once)
	})
	if !scheduled {
		logutil.LogError(logger, CommandName, action, "executor closed")
		fail(UnknownErrorCode)
	}
}

func (c *Command) failed(action string, code command.Code, err error) command.Code {
	logutil.LogError(logger, CommandName, action, err.Error(),
		logutil.CreateKeyValueString("code", fmt.Sprint(int32(code))))

	return code
}

// transportCode classifies send-offer failures.
func transportCode(err error) command.Code {
	switch {
	case errors.Is(err, agency.ErrConnect):
		return ConnectionFailureErrorCode
	case errors.Is(err, agency.ErrStatus), errors.Is(err, agency.ErrInvalidResponse):
		return PostFailureErrorCode
	case errors.Is(err, agency.ErrRead):
		return ReadFailureErrorCode
	default:
		return stateCode(err)
	}
}

// stateCode classifies failures that are not transport specific. Everything else is unknown.
func stateCode(err error) command.Code {
	switch {
	case errors.Is(err, issuerclaim.ErrInvalidHandle):
		return InvalidClaimHandleErrorCode
	case errors.Is(err, issuerclaim.ErrInvalidConnection):
		return InvalidConnectionHandleErrorCode
	case errors.Is(err, issuerclaim.ErrPrecondition):
		return PreconditionFailedErrorCode
	case errors.Is(err, issuerclaim.ErrInvalidOption):
		return InvalidOptionErrorCode
	default:
		return UnknownErrorCode
	}
}

var errorMessages = map[command.Code]string{
	command.Success:                  "success",
	InvalidOptionErrorCode:           "invalid option",
	InvalidClaimHandleErrorCode:      "invalid claim handle",
	InvalidConnectionHandleErrorCode: "invalid connection handle",
	PreconditionFailedErrorCode:      "operation not allowed in the claim's state",
	ConnectionFailureErrorCode:       "could not connect",
	PostFailureErrorCode:             "POST failed",
	ReadFailureErrorCode:             "could not read response",
	UnknownErrorCode:                 "unknown error",
}

// ErrorMessage describes code.
func ErrorMessage(code command.Code) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return fmt.Sprintf("unknown error code %d", int32(code))
}
