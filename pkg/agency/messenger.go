/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidResponse is returned when the agency answered but the body is not the expected message.
var ErrInvalidResponse = errors.New("invalid agency response")

// Poster posts a serialized message to url.
type Poster interface {
	Post(ctx context.Context, body []byte, url string) ([]byte, error)
}

// Messenger frames claim messages into agency envelopes and interprets the answers.
type Messenger struct {
	poster Poster
}

// NewMessenger returns a Messenger posting through p.
func NewMessenger(p Poster) *Messenger {
	return &Messenger{poster: p}
}

// Send delivers payload of type msgType to the pairwise DID to via the agency at url.
func (m *Messenger) Send(ctx context.Context, url, to, msgType string, payload interface{}) (*SendResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	body, err := json.Marshal(&SendMessage{
		Type:    MsgType{Name: SendMsgType, Ver: msgVersion},
		ID:      uuid.New().String(),
		To:      to,
		MsgType: msgType,
		Payload: raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}

	respBytes, err := m.poster.Post(ctx, body, url)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", msgType, err)
	}

	resp := &SendResponse{}
	if err = json.Unmarshal(respBytes, resp); err != nil {
		return nil, fmt.Errorf("send %s: %w: %v", msgType, ErrInvalidResponse, err)
	}

	if resp.UID == "" {
		return nil, fmt.Errorf("send %s: %w: missing uid", msgType, ErrInvalidResponse)
	}

	return resp, nil
}

// Get polls the agency at url for messages addressed to to that reference uid.
func (m *Messenger) Get(ctx context.Context, url, to, uid string) ([]Message, error) {
	body, err := json.Marshal(&GetMessages{
		Type: MsgType{Name: GetMsgsType, Ver: msgVersion},
		ID:   uuid.New().String(),
		To:   to,
		UID:  uid,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal get messages: %w", err)
	}

	respBytes, err := m.poster.Post(ctx, body, url)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	resp := &MessagesResponse{}
	if err = json.Unmarshal(respBytes, resp); err != nil {
		return nil, fmt.Errorf("get messages: %w: %v", ErrInvalidResponse, err)
	}

	return resp.Msgs, nil
}
