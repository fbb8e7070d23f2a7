/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agency

import (
	"encoding/json"
	"strings"
)

// RoutePath is the agency path every message is posted to.
const RoutePath = "/agency/route"

// message type names understood by the agency.
const (
	SendMsgType = "SEND_MSG"
	GetMsgsType = "GET_MSGS"
	msgVersion  = "1.0"
)

// MsgType identifies an agency envelope.
type MsgType struct {
	Name string `json:"name"`
	Ver  string `json:"ver"`
}

// SendMessage asks the agency to deliver Payload to the pairwise DID To.
type SendMessage struct {
	Type    MsgType         `json:"@type"`
	ID      string          `json:"@id"`
	To      string          `json:"to"`
	MsgType string          `json:"msgType"`
	Payload json.RawMessage `json:"payload"`
}

// SendResponse is the agency acknowledgement of a SendMessage.
type SendResponse struct {
	UID        string `json:"uid"`
	Typ        string `json:"typ"`
	StatusCode string `json:"statusCode"`
}

// GetMessages polls the agency for messages addressed to To that answer the message UID.
type GetMessages struct {
	Type MsgType `json:"@type"`
	ID   string  `json:"@id"`
	To   string  `json:"to"`
	UID  string  `json:"uid,omitempty"`
}

// Message is a single message held by the agency.
type Message struct {
	UID        string                 `json:"uid"`
	Typ        string                 `json:"typ"`
	StatusCode string                 `json:"statusCode"`
	RefMsgID   string                 `json:"refMsgId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// MessagesResponse is the agency answer to GetMessages.
type MessagesResponse struct {
	Msgs []Message `json:"msgs"`
}

// RouteURL returns the URL messages for endpoint are posted to.
func RouteURL(endpoint string) string {
	return strings.TrimSuffix(endpoint, "/") + RoutePath
}
