/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claimsigner signs issued claims with an Ed25519 key derived from a seed.
//
// A signed claim carries, for every attribute, its raw value and an integer encoding of it. The
// signature is a compact JWS over the claim without its signature field.
package claimsigner

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/btcsuite/btcutil/base58"
	"github.com/go-jose/go-jose/v3"
	"golang.org/x/crypto/hkdf"

	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
)

const (
	minSeedSize = 16
	keyInfo     = "aries-claim-issuer/claim-signing-key"
)

// AttributeValue is the raw and encoded form of one claim attribute.
type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// Claim is the signed claim delivered to the holder.
type Claim struct {
	SchemaSeqNo int32                     `json:"schema_seq_no"`
	IssuerDID   string                    `json:"issuer_did"`
	ProverDID   string                    `json:"prover_did"`
	Values      map[string]AttributeValue `json:"values"`
	Signature   string                    `json:"signature,omitempty"`
}

// Signer signs claims with a single Ed25519 key.
type Signer struct {
	public ed25519.PublicKey
	keyID  string
	signer jose.Signer
}

// New derives the signing key from seed. The seed must hold at least 16 bytes.
func New(seed []byte) (*Signer, error) {
	if len(seed) < minSeedSize {
		return nil, fmt.Errorf("signing seed must be at least %d bytes", minSeedSize)
	}

	keySeed := make([]byte, ed25519.SeedSize)

	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(keyInfo)), keySeed); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(keySeed)
	pub, ok := priv.Public().(ed25519.PublicKey)

	if !ok {
		return nil, errors.New("derive signing key: unexpected public key type")
	}

	keyID := base58.Encode(pub)

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.EdDSA,
		Key:       &jose.JSONWebKey{Key: priv, KeyID: keyID, Algorithm: string(jose.EdDSA)},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create JWS signer: %w", err)
	}

	return &Signer{public: pub, keyID: keyID, signer: signer}, nil
}

// PublicKey returns the verification key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.public
}

// KeyID returns the base58 encoded verification key, used as the JWS key ID.
func (s *Signer) KeyID() string {
	return s.keyID
}

// Sign returns the signed claim for attrs in answer to req.
func (s *Signer) Sign(attrs issuerclaim.Attributes, req *issuerclaim.ClaimRequest) (json.RawMessage, error) {
	if req == nil || req.ProverDID() == "" {
		return nil, errors.New("sign claim: claim request without prover DID")
	}

	claim := &Claim{
		SchemaSeqNo: req.SchemaSeqNo,
		IssuerDID:   req.IssuerDID,
		ProverDID:   req.ProverDID(),
		Values:      make(map[string]AttributeValue, len(attrs)),
	}

	for _, name := range attrs.Names() {
		v, err := encodeValue(attrs[name])
		if err != nil {
			return nil, fmt.Errorf("sign claim: attribute %q: %w", name, err)
		}

		claim.Values[name] = v
	}

	payload, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("sign claim: %w", err)
	}

	jws, err := s.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign claim: %w", err)
	}

	claim.Signature, err = jws.CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("sign claim: serialize signature: %w", err)
	}

	out, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("sign claim: %w", err)
	}

	return out, nil
}

// Verify checks the signature of a signed claim against pub and returns the claim.
func Verify(signed []byte, pub ed25519.PublicKey) (*Claim, error) {
	claim := &Claim{}

	if err := json.Unmarshal(signed, claim); err != nil {
		return nil, fmt.Errorf("verify claim: %w", err)
	}

	jws, err := jose.ParseSigned(claim.Signature)
	if err != nil {
		return nil, fmt.Errorf("verify claim: parse signature: %w", err)
	}

	payload, err := jws.Verify(pub)
	if err != nil {
		return nil, fmt.Errorf("verify claim: %w", err)
	}

	unsigned := *claim
	unsigned.Signature = ""

	expected, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("verify claim: %w", err)
	}

	if string(expected) != string(payload) {
		return nil, errors.New("verify claim: signed payload does not match claim")
	}

	return claim, nil
}

func encodeValue(v issuerclaim.Value) (AttributeValue, error) {
	var raw string

	switch val := v.(type) {
	case string:
		raw = val
	case json.Number:
		if _, err := strconv.ParseInt(val.String(), 10, 32); err == nil {
			return AttributeValue{Raw: val.String(), Encoded: val.String()}, nil
		}

		raw = val.String()
	case bool:
		raw = strconv.FormatBool(val)
	case issuerclaim.Attributes:
		b, err := json.Marshal(val)
		if err != nil {
			return AttributeValue{}, err
		}

		raw = string(b)
	default:
		return AttributeValue{}, fmt.Errorf("unsupported value type %T", v)
	}

	sum := sha256.Sum256([]byte(raw))

	return AttributeValue{Raw: raw, Encoded: new(big.Int).SetBytes(sum[:]).String()}, nil
}
