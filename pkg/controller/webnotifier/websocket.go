/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/hyperledger/aries-claim-issuer/pkg/controller/rest"
)

// topicQueryParam restricts a websocket subscription to the given topics. It may be repeated.
const topicQueryParam = "topic"

// wsSubscriber is a websocket client and the topics it subscribed to. No topics means every topic.
type wsSubscriber struct {
	conn   *websocket.Conn
	topics map[string]struct{}
}

func (s *wsSubscriber) wants(topic string) bool {
	if len(s.topics) == 0 {
		return true
	}

	_, ok := s.topics[topic]

	return ok
}

// WSNotifier is a dispatcher capable of notifying multiple subscribers via WebSocket.
type WSNotifier struct {
	subs     []*wsSubscriber
	subsLock sync.RWMutex
	handlers []rest.Handler
	// accept cross-origin subscriptions
	insecure bool
}

// WSOpt configures a WSNotifier.
type WSOpt func(n *WSNotifier)

// WithCrossOrigin lets browsers on other origins subscribe.
func WithCrossOrigin() WSOpt {
	return func(n *WSNotifier) {
		n.insecure = true
	}
}

// NewWSNotifier returns a new instance of an WSNotifier.
func NewWSNotifier(path string, opts ...WSOpt) *WSNotifier {
	n := WSNotifier{}

	for _, opt := range opts {
		opt(&n)
	}

	n.registerHandler(path)

	return &n
}

// Notify sends the given message to the WS clients subscribed to topic.
// If multiple errors are encountered, then the first one is returned.
func (n *WSNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	n.subsLock.RLock()

	var conns []*websocket.Conn

	for _, s := range n.subs {
		if s.wants(topic) {
			conns = append(conns, s.conn)
		}
	}

	n.subsLock.RUnlock()

	if len(conns) == 0 {
		return nil
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	var allErrs error

	for _, conn := range conns {
		allErrs = appendError(allErrs, notifyWS(context.Background(), conn, topicMsg))
	}

	return allErrs
}

func notifyWS(parent context.Context, conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) handleWS(w http.ResponseWriter, r *http.Request) {
	topics := map[string]struct{}{}
	for _, t := range r.URL.Query()[topicQueryParam] {
		if t != "" {
			topics[t] = struct{}{}
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: n.insecure})
	if err != nil {
		logger.Infof("failed to upgrade the websocket notification connection : %v", err)

		return
	}

	logger.Debugf("websocket notification client connected, topics %v", topics)

	sub := &wsSubscriber{conn: conn, topics: topics}

	n.subsLock.Lock()
	n.subs = append(n.subs, sub)
	n.subsLock.Unlock()

	n.monitorWSConn(context.Background(), sub)
}

// monitorWSConn blocks until the client goes away. Subscribers never send, any message closes the connection.
func (n *WSNotifier) monitorWSConn(ctx context.Context, sub *wsSubscriber) {
	_, _, err := sub.conn.Reader(ctx)
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("reading from websocket notification client failed: %v", err)
	}

	if err = sub.conn.Close(websocket.StatusPolicyViolation, "unexpected message"); err != nil {
		logger.Debugf("closing websocket notification client failed: %v", err)
	}

	n.removeSubscriber(sub)
}

func (n *WSNotifier) removeSubscriber(sub *wsSubscriber) {
	logger.Debugf("websocket notification client dropped")

	n.subsLock.Lock()
	defer n.subsLock.Unlock()

	subs := n.subs[:0]

	for _, s := range n.subs {
		if s != sub {
			subs = append(subs, s)
		}
	}

	n.subs = subs
}

func (n *WSNotifier) registerHandler(path string) {
	n.handlers = []rest.Handler{
		rest.NewHandler(path, http.MethodGet, n.handleWS),
	}
}

// GetRESTHandlers returns all REST handlers provided by notifier.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}
