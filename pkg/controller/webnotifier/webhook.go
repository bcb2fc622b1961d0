/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	notificationSendTimeout = 10 * time.Second
	defaultRetries          = 2
	defaultRetryInterval    = 100 * time.Millisecond
)

// HTTPNotifier posts topic messages to webhook URLs. A subscriber answering with a server error or not
// answering at all is retried; client errors are final.
type HTTPNotifier struct {
	urls          []string
	client        *http.Client
	retries       uint64
	retryInterval time.Duration
}

// NewHTTPNotifier returns a notifier posting to every URL of webhookURLs.
func NewHTTPNotifier(webhookURLs []string) *HTTPNotifier {
	return &HTTPNotifier{
		urls:          webhookURLs,
		client:        &http.Client{Timeout: notificationSendTimeout},
		retries:       defaultRetries,
		retryInterval: defaultRetryInterval,
	}
}

// Notify wraps the message in a topic envelope, see PrepareTopicMessage, and posts it to every subscriber.
// The errors of the failed subscribers are joined.
func (n *HTTPNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return errors.New(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return errors.New(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	var allErrs []error

	for _, webhookURL := range n.urls {
		if err := n.deliver(webhookURL, topicMsg); err != nil {
			allErrs = append(allErrs, err)
		}
	}

	return errors.Join(allErrs...)
}

func (n *HTTPNotifier) deliver(destination string, message []byte) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(n.retryInterval), n.retries)

	return backoff.RetryNotify(func() error {
		return n.post(destination, message)
	}, policy, func(err error, wait time.Duration) {
		logger.Debugf("retrying notification to %s in %s: %s", destination, wait, err)
	})
}

func (n *HTTPNotifier) post(destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(message))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create new http post request for %s: %w", destination, err))
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer closeResponse(resp.Body)

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		logger.Debugf("notification sent to %s", destination)

		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("notification was sent to %s, but %s was received",
			destination, resp.Status))
	}
}

func closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Errorf("failed to close response body: %s", err)
	}
}
