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
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	claimclient "github.com/hyperledger/aries-claim-issuer/pkg/client/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/command"
	cmd "github.com/hyperledger/aries-claim-issuer/pkg/controller/command/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/rest"
	"github.com/hyperledger/aries-claim-issuer/pkg/store/connection"
)

var logger = log.New("aries-framework/rest/issuerclaim")

// constants for issuer claim endpoints.
const (
	OperationID     = "/issuerclaim"
	CreatePath      = OperationID + "/create"
	DeserializePath = OperationID + "/deserialize"
	ClaimPath       = OperationID + "/{handle}"
	SendOfferPath   = ClaimPath + "/send-offer"
	UpdateStatePath = ClaimPath + "/update-state"
	SendClaimPath   = ClaimPath + "/send-claim"

	ConnectionsOperationID = "/connections"
	CreateConnectionPath   = ConnectionsOperationID + "/create"
	ConnectionPath         = ConnectionsOperationID + "/{handle}"
)

const (
	// InvalidConnectionRequestErrorCode is for connection requests with a malformed DID or endpoint.
	InvalidConnectionRequestErrorCode = command.Code(iota + command.Connection)
	// ConnectionNotFoundErrorCode is for connection handles that do not resolve.
	ConnectionNotFoundErrorCode
)

// Operation is the REST controller for issuer claims and the connections they are sent on.
type Operation struct {
	client   *claimclient.Client
	conns    *connection.Lookup
	handlers []rest.Handler
}

// New returns the issuer claim REST controller.
func New(client *claimclient.Client, conns *connection.Lookup) *Operation {
	op := &Operation{
		client: client,
		conns:  conns,
	}

	op.registerHandler()

	return op
}

// GetRESTHandlers get all controller API handlers available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		rest.NewHandler(CreatePath, http.MethodPost, o.Create),
		rest.NewHandler(DeserializePath, http.MethodPost, o.Deserialize),
		rest.NewHandler(SendOfferPath, http.MethodPost, o.SendOffer),
		rest.NewHandler(UpdateStatePath, http.MethodPost, o.UpdateState),
		rest.NewHandler(SendClaimPath, http.MethodPost, o.SendClaim),
		rest.NewHandler(ClaimPath, http.MethodGet, o.Serialize),
		rest.NewHandler(ClaimPath, http.MethodDelete, o.Release),
		rest.NewHandler(CreateConnectionPath, http.MethodPost, o.CreateConnection),
		rest.NewHandler(ConnectionPath, http.MethodDelete, o.ReleaseConnection),
	}
}

// Create swagger:route POST /issuerclaim/create issuerclaim createClaim
//
// Creates an issuer claim in the initialized state.
//
// Responses:
//    default: genericError
//        200: handleResponse
func (o *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	execute(func(w io.Writer, body io.Reader) command.Error {
		var request CreateRequest

		if err := json.NewDecoder(body).Decode(&request); err != nil {
			return command.NewValidationError(cmd.InvalidOptionErrorCode, fmt.Errorf("request decode : %w", err))
		}

		h, err := o.client.Create(req.Context(), request.SourceID, request.SchemaSeqNo, request.IssuerDID,
			request.ClaimData)
		if err != nil {
			return toCommandError(err)
		}

		command.WriteNillableResponse(w, &HandleResponse{Handle: h}, logger)

		return nil
	}, rw, req.Body)
}

// Deserialize swagger:route POST /issuerclaim/deserialize issuerclaim deserializeClaim
//
// Registers a serialized claim under a new handle.
//
// Responses:
//    default: genericError
//        200: handleResponse
func (o *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	execute(func(w io.Writer, body io.Reader) command.Error {
		data, err := io.ReadAll(body)
		if err != nil {
			return command.NewValidationError(cmd.InvalidOptionErrorCode, fmt.Errorf("read request : %w", err))
		}

		h, err := o.client.Deserialize(req.Context(), string(data))
		if err != nil {
			return toCommandError(err)
		}

		command.WriteNillableResponse(w, &HandleResponse{Handle: h}, logger)

		return nil
	}, rw, req.Body)
}

// SendOffer swagger:route POST /issuerclaim/{handle}/send-offer issuerclaim sendOffer
//
// Sends the claim offer on a connection.
//
// Responses:
//    default: genericError
func (o *Operation) SendOffer(rw http.ResponseWriter, req *http.Request) {
	o.onConnection(rw, req, o.client.SendOffer)
}

// SendClaim swagger:route POST /issuerclaim/{handle}/send-claim issuerclaim sendClaim
//
// Signs the claim and sends it on a connection.
//
// Responses:
//    default: genericError
func (o *Operation) SendClaim(rw http.ResponseWriter, req *http.Request) {
	o.onConnection(rw, req, o.client.SendClaim)
}

func (o *Operation) onConnection(rw http.ResponseWriter, req *http.Request,
	fn func(ctx context.Context, h, conn uint32) error) {
	h, ok := getHandle(rw, req, cmd.InvalidClaimHandleErrorCode)
	if !ok {
		return
	}

	execute(func(w io.Writer, body io.Reader) command.Error {
		var request ConnectionRequest

		if err := json.NewDecoder(body).Decode(&request); err != nil {
			return command.NewValidationError(cmd.InvalidOptionErrorCode, fmt.Errorf("request decode : %w", err))
		}

		if err := fn(req.Context(), h, request.ConnectionHandle); err != nil {
			return toCommandError(err)
		}

		command.WriteNillableResponse(w, nil, logger)

		return nil
	}, rw, req.Body)
}

// UpdateState swagger:route POST /issuerclaim/{handle}/update-state issuerclaim updateState
//
// Polls the agency for the holder's claim request.
//
// Responses:
//    default: genericError
//        200: stateResponse
func (o *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	h, ok := getHandle(rw, req, cmd.InvalidClaimHandleErrorCode)
	if !ok {
		return
	}

	execute(func(w io.Writer, _ io.Reader) command.Error {
		st, err := o.client.UpdateState(req.Context(), h)
		if err != nil {
			return toCommandError(err)
		}

		command.WriteNillableResponse(w, &StateResponse{State: uint32(st), Name: st.Name()}, logger)

		return nil
	}, rw, req.Body)
}

// Serialize swagger:route GET /issuerclaim/{handle} issuerclaim serializeClaim
//
// Returns the serialized claim.
//
// Responses:
//    default: genericError
func (o *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	h, ok := getHandle(rw, req, cmd.InvalidClaimHandleErrorCode)
	if !ok {
		return
	}

	execute(func(w io.Writer, _ io.Reader) command.Error {
		s, err := o.client.Serialize(req.Context(), h)
		if err != nil {
			return toCommandError(err)
		}

		if _, err = io.WriteString(w, s); err != nil {
			logger.Errorf("Unable to send response, %s", err)
		}

		return nil
	}, rw, req.Body)
}

// Release swagger:route DELETE /issuerclaim/{handle} issuerclaim releaseClaim
//
// Removes the claim and its persisted copy.
//
// Responses:
//    default: genericError
func (o *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	h, ok := getHandle(rw, req, cmd.InvalidClaimHandleErrorCode)
	if !ok {
		return
	}

	execute(func(w io.Writer, _ io.Reader) command.Error {
		if err := o.client.Release(h); err != nil {
			return toCommandError(err)
		}

		command.WriteNillableResponse(w, nil, logger)

		return nil
	}, rw, req.Body)
}

// CreateConnection swagger:route POST /connections/create connections createConnection
//
// Registers a pairwise connection claims can be sent on.
//
// Responses:
//    default: genericError
//        200: handleResponse
func (o *Operation) CreateConnection(rw http.ResponseWriter, req *http.Request) {
	execute(func(w io.Writer, body io.Reader) command.Error {
		var request CreateConnectionRequest

		if err := json.NewDecoder(body).Decode(&request); err != nil {
			return command.NewValidationError(InvalidConnectionRequestErrorCode,
				fmt.Errorf("request decode : %w", err))
		}

		h, err := o.conns.Create(request.SourceID, request.PairwiseDID, request.Endpoint)
		if err != nil {
			return command.NewValidationError(InvalidConnectionRequestErrorCode, err)
		}

		command.WriteNillableResponse(w, &HandleResponse{Handle: h}, logger)

		return nil
	}, rw, req.Body)
}

// ReleaseConnection swagger:route DELETE /connections/{handle} connections releaseConnection
//
// Removes the connection.
//
// Responses:
//    default: genericError
func (o *Operation) ReleaseConnection(rw http.ResponseWriter, req *http.Request) {
	h, ok := getHandle(rw, req, ConnectionNotFoundErrorCode)
	if !ok {
		return
	}

	execute(func(w io.Writer, _ io.Reader) command.Error {
		if err := o.conns.Release(h); err != nil {
			return command.NewValidationError(ConnectionNotFoundErrorCode, err)
		}

		command.WriteNillableResponse(w, nil, logger)

		return nil
	}, rw, req.Body)
}

// execute runs exec like rest.Execute and answers 404 for handles that do not resolve.
func execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rest.Execute(func(w io.Writer, r io.Reader) command.Error {
		err := exec(w, r)
		if err != nil && notFound(err.Code()) {
			rest.SendHTTPStatusError(rw, http.StatusNotFound, err.Code(), err)

			return nil
		}

		return err
	}, rw, req)
}

func notFound(code command.Code) bool {
	return code == cmd.InvalidClaimHandleErrorCode || code == ConnectionNotFoundErrorCode
}

// toCommandError keeps the client's command errors and reports anything else, a cancelled request
// among them, as unknown.
func toCommandError(err error) command.Error {
	var cmdErr command.Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}

	return command.NewExecuteError(cmd.UnknownErrorCode, err)
}

// getHandle returns the handle path parameter of req.
func getHandle(rw http.ResponseWriter, req *http.Request, code command.Code) (uint32, bool) {
	h, err := strconv.ParseUint(mux.Vars(req)["handle"], 10, 32)
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, code, fmt.Errorf("invalid handle: %w", err))

		return 0, false
	}

	return uint32(h), true
}
