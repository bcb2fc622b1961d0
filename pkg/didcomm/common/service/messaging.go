/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "context"

// Destination identifies where an outbound message goes.
type Destination struct {
	ConnectionID    string `json:"connection_id,omitempty"`
	ServiceEndpoint string `json:"service_endpoint,omitempty"`
}

// InboundMessage is a decoded message received on a connection.
type InboundMessage struct {
	Message      DIDCommMsgMap
	ConnectionID string
}

// OutboundMessage is a message a protocol service wants delivered.
type OutboundMessage struct {
	Message      DIDCommMsgMap
	ConnectionID string
}

// Handler handles inbound messages of the protocols it accepts.
type Handler interface {
	// Name of the protocol family the handler serves.
	Name() string
	// Accept reports whether the handler understands the message type.
	Accept(msgType string) bool
	// HandleInbound processes the message and returns the reply to send, if any.
	HandleInbound(ctx context.Context, msg InboundMessage) (*OutboundMessage, error)
}

// Sender delivers outbound messages to a connection.
type Sender interface {
	Send(ctx context.Context, msg *OutboundMessage) error
}
