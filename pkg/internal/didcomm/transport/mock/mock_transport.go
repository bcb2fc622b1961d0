/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocktransport

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Delivery is a message the mock transport was asked to send.
type Delivery struct {
	Data        []byte
	Destination string
	MediaType   string
}

// OutboundTransport mock outbound transport structure.
type OutboundTransport struct {
	// Scheme is the endpoint prefix the transport accepts, any endpoint when empty.
	Scheme string
	// Errors are returned by the next Send calls, in order.
	Errors []error

	mu         sync.Mutex
	deliveries []Delivery
}

// NewOutboundTransport new OutboundTransport instance.
func NewOutboundTransport(scheme string, errs ...error) *OutboundTransport {
	return &OutboundTransport{Scheme: scheme, Errors: errs}
}

// Send implementation of OutboundTransport.Send api.
func (transport *OutboundTransport) Send(_ context.Context, data []byte, destination, mediaType string) error {
	if len(data) == 0 || destination == "" {
		return errors.New("data or destination can't be empty")
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()

	transport.deliveries = append(transport.deliveries, Delivery{
		Data:        data,
		Destination: destination,
		MediaType:   mediaType,
	})

	if len(transport.Errors) > 0 {
		err := transport.Errors[0]
		transport.Errors = transport.Errors[1:]

		return err
	}

	return nil
}

// AcceptRecipient accepts the endpoints of the configured scheme.
func (transport *OutboundTransport) AcceptRecipient(destination string) bool {
	return strings.HasPrefix(destination, transport.Scheme)
}

// Deliveries returns every Send attempt so far.
func (transport *OutboundTransport) Deliveries() []Delivery {
	transport.mu.Lock()
	defer transport.mu.Unlock()

	return append([]Delivery(nil), transport.deliveries...)
}
