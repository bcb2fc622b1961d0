/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webnotifier forwards the state events of the protocol services to webhook subscribers.
package webnotifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
)

const (
	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message : %w"
)

var logger = log.New("aries-framework/webnotifier")

// notifier represents a notification dispatcher.
type notifier interface {
	Notify(topic string, message []byte) error
}

// WebNotifier is a dispatcher capable of notifying multiple subscribers.
type WebNotifier struct {
	notifiers []notifier
}

// New returns a new instance of a WebNotifier notifying the given webhooks.
func New(webhookURLs []string) *WebNotifier {
	var notifiers []notifier

	if len(webhookURLs) > 0 {
		notifiers = append(notifiers, NewHTTPNotifier(webhookURLs))
	}

	return &WebNotifier{notifiers: notifiers}
}

// Notify sends the given message to all of the subscribers.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs []error

	for _, sub := range n.notifiers {
		if err := sub.Notify(topic, message); err != nil {
			allErrs = append(allErrs, err)
		}
	}

	return errors.Join(allErrs...)
}

// topic is the envelope subscribers receive.
type topic struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps the message in the topic envelope subscribers receive.
func PrepareTopicMessage(topicName string, message []byte) ([]byte, error) {
	if !json.Valid(message) {
		return nil, fmt.Errorf("message of topic %s is not valid JSON", topicName)
	}

	return json.Marshal(topic{ID: newID(), Topic: topicName, Message: message})
}
