/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"errors"
)

// ErrRecipientRejected is matched by delivery errors that retrying cannot fix.
var ErrRecipientRejected = errors.New("recipient rejected the message")

// OutboundTransport interface definition for transport layer
// This is the client side of the agent.
type OutboundTransport interface {
	// Send sends a DIDComm message to the destination endpoint with the given media type.
	Send(ctx context.Context, data []byte, destination, mediaType string) error
	// AcceptRecipient checks whether the transport can deliver to the destination endpoint.
	AcceptRecipient(destination string) bool
}

// InboundMessageHandler handles the inbound requests. connectionID identifies the connection
// the payload arrived on.
type InboundMessageHandler func(ctx context.Context, payload []byte, connectionID string) error
