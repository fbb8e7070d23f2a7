/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webhook

import "sync"

// NewMockWebhookNotifier returns mock webhook notifier implementation.
func NewMockWebhookNotifier() *Notifier {
	return &Notifier{}
}

// Notifier is mock implementation of webhook notifier. It records every message it is given.
type Notifier struct {
	NotifyFunc func(topic string, message []byte) error

	mu       sync.Mutex
	received map[string][][]byte
}

// Notify is mock implementation of webhook notifier Notify().
func (n *Notifier) Notify(topic string, message []byte) error {
	n.mu.Lock()

	if n.received == nil {
		n.received = map[string][][]byte{}
	}

	n.received[topic] = append(n.received[topic], message)
	n.mu.Unlock()

	if n.NotifyFunc != nil {
		return n.NotifyFunc(topic, message)
	}

	return nil
}

// Received returns the messages notified under topic.
func (n *Notifier) Received(topic string) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([][]byte(nil), n.received[topic]...)
}
