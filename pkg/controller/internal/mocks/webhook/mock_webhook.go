/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webhook

import "sync"

// Notification is a message delivered to the mock notifier.
type Notification struct {
	Topic   string
	Message []byte
}

// Notifier is a webhook notifier that keeps every notification it receives.
type Notifier struct {
	NotifyFunc func(topic string, message []byte) error
	NotifyErr  error

	mu            sync.Mutex
	notifications []Notification
}

// NewMockWebhookNotifier returns mock webhook notifier implementation.
func NewMockWebhookNotifier() *Notifier {
	return &Notifier{}
}

// Notify records the notification, then answers with NotifyFunc or NotifyErr.
func (n *Notifier) Notify(topic string, message []byte) error {
	n.mu.Lock()
	n.notifications = append(n.notifications, Notification{Topic: topic, Message: message})
	n.mu.Unlock()

	if n.NotifyFunc != nil {
		return n.NotifyFunc(topic, message)
	}

	return n.NotifyErr
}

// Notifications returns the notifications received so far.
func (n *Notifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Notification(nil), n.notifications...)
}

// Received reports whether a notification was delivered on topic.
func (n *Notifier) Received(topic string) bool {
	for _, notification := range n.Notifications() {
		if notification.Topic == topic {
			return true
		}
	}

	return false
}
