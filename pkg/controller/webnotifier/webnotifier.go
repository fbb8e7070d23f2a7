/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-claim-issuer/pkg/controller/rest"
)

const (
	notificationSendTimeout = 10 * time.Second

	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message : %w"
)

var logger = log.New("aries-framework/webnotifier")

// Notifier publishes a message under a topic.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// WebNotifier fans notifications out to webhook subscribers and websocket clients.
type WebNotifier struct {
	notifiers []Notifier
	handlers  []rest.Handler
}

// New returns a WebNotifier posting to webhookURLs and serving websocket clients on wsPath.
func New(wsPath string, webhookURLs []string, opts ...WSOpt) *WebNotifier {
	ws := NewWSNotifier(wsPath, opts...)

	return &WebNotifier{
		notifiers: []Notifier{NewHTTPNotifier(webhookURLs), ws},
		handlers:  ws.GetRESTHandlers(),
	}
}

// Notify sends message to every subscriber. The first error encountered is returned.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket subscription handler.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps message in the envelope subscribers receive.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	if !json.Valid(message) {
		return nil, fmt.Errorf("message of topic %s is not JSON", topic)
	}

	return json.Marshal(&topicMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	})
}

// appendError keeps the first error and logs the rest.
func appendError(errList, err error) error {
	if err == nil {
		return errList
	}

	if errList == nil {
		return err
	}

	logger.Warnf("notification error: %s", err)

	return errList
}
