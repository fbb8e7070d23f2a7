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

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-claim-issuer/pkg/agency"
	"github.com/hyperledger/aries-claim-issuer/pkg/handle"
)

const (
	// OfferMsgType is the agency message type of a claim offer.
	OfferMsgType = "claimOffer"
	// ClaimMsgType is the agency message type of a claim delivery.
	ClaimMsgType = "claim"
	// RequestMsgType is the agency message type of a holder's claim request.
	RequestMsgType = "claimReq"

	payloadVersion = "0.1"
)

var logger = log.New("aries-framework/issuerclaim/service")

// Messenger sends claim messages through the agency and polls it for answers.
type Messenger interface {
	Send(ctx context.Context, url, to, msgType string, payload interface{}) (*agency.SendResponse, error)
	Get(ctx context.Context, url, to, uid string) ([]agency.Message, error)
}

// ConnectionLookup resolves connection handles to the pairwise DID and endpoint of the holder.
type ConnectionLookup interface {
	IsValidHandle(h uint32) bool
	PairwiseDID(h uint32) (string, error)
	Endpoint(h uint32) (string, error)
}

// Signer produces the signed claim material for attrs in answer to req.
type Signer interface {
	Sign(attrs Attributes, req *ClaimRequest) (json.RawMessage, error)
}

// Provider contains dependencies for the issuer claim service.
type Provider interface {
	Messenger() Messenger
	Connections() ConnectionLookup
	Signer() Signer
	AgencyURL() string
}

type offerPayload struct {
	MsgType     string          `json:"msg_type"`
	Version     string          `json:"version"`
	ToDID       string          `json:"to_did"`
	FromDID     string          `json:"from_did"`
	ClaimName   string          `json:"claim_name"`
	Claim       json.RawMessage `json:"claim"`
	SchemaSeqNo int32           `json:"schema_seq_no"`
	IssuerDID   string          `json:"issuer_did"`
}

type claimPayload struct {
	MsgType      string          `json:"msg_type"`
	Version      string          `json:"version"`
	ToDID        string          `json:"to_did"`
	FromDID      string          `json:"from_did"`
	Claim        json.RawMessage `json:"claim"`
	SchemaSeqNo  int32           `json:"schema_seq_no"`
	IssuerDID    string          `json:"issuer_did"`
	ClaimOfferID string          `json:"claim_offer_id"`
}

// Service drives issuer claims through their lifecycle. Every claim is owned by the service's registry
// and addressed by handle.
type Service struct {
	claims      *handle.Registry[Record]
	messenger   Messenger
	connections ConnectionLookup
	signer      Signer
	agencyURL   string
}

// New returns the issuer claim service.
func New(p Provider) (*Service, error) {
	if p.Messenger() == nil {
		return nil, errors.New("issuer claim service requires a messenger")
	}

	if p.Connections() == nil {
		return nil, errors.New("issuer claim service requires a connection lookup")
	}

	if p.Signer() == nil {
		return nil, errors.New("issuer claim service requires a signer")
	}

	return &Service{
		claims:      handle.New[Record](),
		messenger:   p.Messenger(),
		connections: p.Connections(),
		signer:      p.Signer(),
		agencyURL:   p.AgencyURL(),
	}, nil
}

// Create registers a new claim in the Initialized state and returns its handle.
func (s *Service) Create(sourceID string, schemaSeqNo int32, issuerDID, claimData string) (uint32, error) {
	if issuerDID == "" || len(base58.Decode(issuerDID)) == 0 {
		return 0, fmt.Errorf("%w: issuer DID [%s] is not a base58 identifier", ErrInvalidOption, issuerDID)
	}

	if _, err := ParseAttributes(claimData); err != nil {
		return 0, err
	}

	return s.add(&Record{
		SourceID:        sourceID,
		ClaimAttributes: claimData,
		SchemaSeqNo:     schemaSeqNo,
		IssuerDID:       issuerDID,
		State:           StateInitialized,
	})
}

func (s *Service) add(rec *Record) (uint32, error) {
	h, err := s.claims.AddFunc(func(h uint32) Record {
		r := *rec
		r.Handle = h

		return r
	})
	if err != nil {
		return 0, fmt.Errorf("create claim: %w", err)
	}

	logger.Debugf("claim %d created (source_id=[%s] state=%s)", h, rec.SourceID, rec.State)

	return h, nil
}

// IsValidHandle reports whether h names a live claim.
func (s *Service) IsValidHandle(h uint32) bool {
	return s.claims.IsValid(h)
}

// GetState returns the current state of claim h.
func (s *Service) GetState(h uint32) (State, error) {
	rec, err := s.claims.Get(h)
	if err != nil {
		return 0, s.handleErr(h, err)
	}

	return rec.State, nil
}

// GetRecord returns a copy of claim h.
func (s *Service) GetRecord(h uint32) (*Record, error) {
	rec, err := s.claims.Get(h)
	if err != nil {
		return nil, s.handleErr(h, err)
	}

	rec.ClaimRequest = rec.ClaimRequest.clone()

	return &rec, nil
}

// GetClaimRequest returns the claim request attached to claim h.
func (s *Service) GetClaimRequest(h uint32) (*ClaimRequest, error) {
	rec, err := s.claims.Get(h)
	if err != nil {
		return nil, s.handleErr(h, err)
	}

	if rec.ClaimRequest == nil {
		return nil, fmt.Errorf("claim %d: %w", h, ErrNoRequest)
	}

	return rec.ClaimRequest.clone(), nil
}

// SendOffer posts the claim offer to the holder on connection conn and moves the claim to OfferSent.
// On failure the claim stays Initialized.
func (s *Service) SendOffer(ctx context.Context, h, conn uint32) error {
	rec, err := s.claims.Get(h)
	if err != nil {
		return s.handleErr(h, err)
	}

	if rec.State != StateInitialized {
		return fmt.Errorf("send claim offer %d: %w: state is %s", h, ErrPrecondition, rec.State)
	}

	pwDID, url, err := s.route(conn)
	if err != nil {
		return fmt.Errorf("send claim offer %d: %w", h, err)
	}

	payload := &offerPayload{
		MsgType:     "CLAIM_OFFER",
		Version:     payloadVersion,
		ToDID:       pwDID,
		FromDID:     rec.IssuerDID,
		ClaimName:   rec.SourceID,
		Claim:       json.RawMessage(rec.ClaimAttributes),
		SchemaSeqNo: rec.SchemaSeqNo,
		IssuerDID:   rec.IssuerDID,
	}

	resp, err := s.messenger.Send(ctx, url, pwDID, OfferMsgType, payload)
	if err != nil {
		logger.Errorf("claim %d: send offer to [%s]: %s", h, url, err)

		return fmt.Errorf("send claim offer %d: %w", h, err)
	}

	err = s.transition(h, StateOfferSent, func(r *Record) error {
		r.MsgUID = resp.UID

		return nil
	})
	if err != nil {
		return fmt.Errorf("send claim offer %d: %w", h, err)
	}

	logger.Infof("claim %d: offer sent to [%s], msg_uid=[%s]", h, pwDID, resp.UID)

	return nil
}

// UpdateState polls the agency for the holder's claim request when the claim is OfferSent.
// It always returns the claim's current state; a failed poll leaves the state unchanged and is
// returned wrapped in ErrPollFailed next to that state.
func (s *Service) UpdateState(ctx context.Context, h uint32) (State, error) {
	rec, err := s.claims.Get(h)
	if err != nil {
		return 0, s.handleErr(h, err)
	}

	if rec.State != StateOfferSent || rec.MsgUID == "" {
		return rec.State, nil
	}

	req, err := s.pollRequest(ctx, &rec)
	if err != nil {
		logger.Warnf("claim %d: %s", h, err)

		return rec.State, fmt.Errorf("claim %d: %w: %v", h, ErrPollFailed, err)
	}

	if req == nil {
		return rec.State, nil
	}

	err = s.attachRequest(h, rec.MsgUID, req)

	switch {
	case err == nil:
		return StateRequestReceived, nil
	case errors.Is(err, ErrInvalidHandle):
		return 0, err
	default:
		// another operation moved the claim while we were polling
		logger.Debugf("claim %d: drop polled claim request: %s", h, err)

		return s.GetState(h)
	}
}

func (s *Service) pollRequest(ctx context.Context, rec *Record) (*ClaimRequest, error) {
	url := s.agencyURL
	if url == "" {
		return nil, fmt.Errorf("%w: no agency endpoint configured", agency.ErrConnect)
	}

	msgs, err := s.messenger.Get(ctx, agency.RouteURL(url), rec.IssuerDID, rec.MsgUID)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		msg := msgs[i]

		if msg.Typ != RequestMsgType || (msg.RefMsgID != "" && msg.RefMsgID != rec.MsgUID) {
			continue
		}

		req, err := decodeClaimRequest(msg.Payload)
		if err != nil {
			logger.Warnf("claim %d: skip message [%s]: %s", rec.Handle, msg.UID, err)

			continue
		}

		if err = req.validateFor(rec); err != nil {
			logger.Warnf("claim %d: skip message [%s]: %s", rec.Handle, msg.UID, err)

			continue
		}

		return req, nil
	}

	return nil, nil
}

func decodeClaimRequest(payload map[string]interface{}) (*ClaimRequest, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: empty claim request payload", ErrInvalidOption)
	}

	req := &ClaimRequest{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  req,
	})
	if err != nil {
		return nil, fmt.Errorf("claim request decoder: %w", err)
	}

	if err = dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: decode claim request: %v", ErrInvalidOption, err)
	}

	return req, nil
}

// SetClaimRequest attaches a claim request obtained out of band to claim h and moves it to RequestReceived.
func (s *Service) SetClaimRequest(h uint32, req *ClaimRequest) error {
	rec, err := s.claims.Get(h)
	if err != nil {
		return s.handleErr(h, err)
	}

	if rec.State != StateOfferSent {
		return fmt.Errorf("set claim request %d: %w: state is %s", h, ErrPrecondition, rec.State)
	}

	if err = req.validateFor(&rec); err != nil {
		return fmt.Errorf("set claim request %d: %w", h, err)
	}

	return s.attachRequest(h, rec.MsgUID, req.clone())
}

func (s *Service) attachRequest(h uint32, msgUID string, req *ClaimRequest) error {
	return s.transition(h, StateRequestReceived, func(r *Record) error {
		if r.MsgUID != msgUID {
			return fmt.Errorf("%w: msg_uid changed to [%s]", ErrPrecondition, r.MsgUID)
		}

		r.ClaimRequest = req
		r.IssuedDID = req.ProverDID()

		return nil
	})
}

// SendClaim signs the claim for the attached request, delivers it on connection conn and moves the claim
// to ClaimSent. On failure the claim stays RequestReceived.
func (s *Service) SendClaim(ctx context.Context, h, conn uint32) error {
	rec, err := s.claims.Get(h)
	if err != nil {
		return s.handleErr(h, err)
	}

	if rec.State != StateRequestReceived {
		return fmt.Errorf("send claim %d: %w: state is %s", h, ErrPrecondition, rec.State)
	}

	if rec.ClaimRequest == nil {
		return fmt.Errorf("send claim %d: %w: %v", h, ErrPrecondition, ErrNoRequest)
	}

	pwDID, url, err := s.route(conn)
	if err != nil {
		return fmt.Errorf("send claim %d: %w", h, err)
	}

	attrs, err := ParseAttributes(rec.ClaimAttributes)
	if err != nil {
		return fmt.Errorf("send claim %d: %w", h, err)
	}

	signed, err := s.signer.Sign(attrs, rec.ClaimRequest)
	if err != nil {
		logger.Errorf("claim %d: sign: %s", h, err)

		return fmt.Errorf("send claim %d: %w: %v", h, ErrSigning, err)
	}

	payload := &claimPayload{
		MsgType:      "CLAIM",
		Version:      payloadVersion,
		ToDID:        pwDID,
		FromDID:      rec.IssuerDID,
		Claim:        signed,
		SchemaSeqNo:  rec.SchemaSeqNo,
		IssuerDID:    rec.IssuerDID,
		ClaimOfferID: rec.MsgUID,
	}

	resp, err := s.messenger.Send(ctx, url, pwDID, ClaimMsgType, payload)
	if err != nil {
		logger.Errorf("claim %d: send claim to [%s]: %s", h, url, err)

		return fmt.Errorf("send claim %d: %w", h, err)
	}

	err = s.transition(h, StateClaimSent, func(r *Record) error {
		r.MsgUID = resp.UID

		return nil
	})
	if err != nil {
		return fmt.Errorf("send claim %d: %w", h, err)
	}

	logger.Infof("claim %d: claim sent to [%s], msg_uid=[%s]", h, pwDID, resp.UID)

	return nil
}

// ToString serializes claim h.
func (s *Service) ToString(h uint32) (string, error) {
	rec, err := s.claims.Get(h)
	if err != nil {
		return "", s.handleErr(h, err)
	}

	return rec.Serialize()
}

// FromString registers the serialized claim under a freshly allocated handle.
func (s *Service) FromString(data string) (uint32, error) {
	rec, err := ParseRecord(data)
	if err != nil {
		return 0, err
	}

	logger.Debugf("restoring claim source_id=[%s] previously %d", rec.SourceID, rec.Handle)

	return s.add(rec)
}

// Release removes claim h.
func (s *Service) Release(h uint32) error {
	if err := s.claims.Release(h); err != nil {
		return s.handleErr(h, err)
	}

	logger.Debugf("claim %d released", h)

	return nil
}

// ReleaseAll removes every claim.
func (s *Service) ReleaseAll() {
	for _, h := range s.claims.Handles() {
		if err := s.claims.Release(h); err != nil {
			logger.Debugf("release claim %d: %s", h, err)
		}
	}
}

// Handles returns the handles of all live claims.
func (s *Service) Handles() []uint32 {
	return s.claims.Handles()
}

// transition moves claim h to next, applying fn to the record under the same lock.
// It fails with ErrPrecondition if the claim is no longer in a state that can move to next.
func (s *Service) transition(h uint32, next State, fn func(r *Record) error) error {
	err := s.claims.Mutate(h, func(r *Record) error {
		if !r.State.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrPrecondition, r.State, next)
		}

		if err := fn(r); err != nil {
			return err
		}

		r.State = next

		return nil
	})

	return s.handleErr(h, err)
}

// route returns the pairwise DID of conn and the agency URL its messages are posted to.
func (s *Service) route(conn uint32) (string, string, error) {
	if !s.connections.IsValidHandle(conn) {
		return "", "", fmt.Errorf("%w: %d", ErrInvalidConnection, conn)
	}

	pwDID, err := s.connections.PairwiseDID(conn)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}

	endpoint, err := s.connections.Endpoint(conn)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}

	if endpoint == "" {
		endpoint = s.agencyURL
	}

	if endpoint == "" {
		return "", "", fmt.Errorf("%w: no agency endpoint for connection %d", agency.ErrConnect, conn)
	}

	return pwDID, agency.RouteURL(endpoint), nil
}

func (s *Service) handleErr(h uint32, err error) error {
	if errors.Is(err, handle.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}

	return err
}
