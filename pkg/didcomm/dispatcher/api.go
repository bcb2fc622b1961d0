/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher routes inbound DIDComm messages to protocol services and delivers their replies.
package dispatcher

import (
	"errors"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
)

// ErrNoHandler is returned when no protocol service accepts a message type.
var ErrNoHandler = errors.New("no message handlers found")

// ProtocolService is a protocol service the inbound handler can dispatch to.
type ProtocolService interface {
	service.Handler
}

// Outbound delivers messages to connections.
type Outbound interface {
	service.Sender
}
