/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"

// Handler describes middleware interface.
type Handler = exchange.Handler

// Middleware function receives next handler and returns handler that needs to be executed.
type Middleware = exchange.Middleware

// HandlerFunc is a helper type which implements the middleware Handler interface.
type HandlerFunc = exchange.HandlerFunc

// Metadata provides helpful information for the processing.
type Metadata = exchange.Metadata

// State names the middleware can match on.
const (
	StateNameProposalReceived     = string(exchange.StateProposalReceived)
	StateNameRequestReceived      = string(exchange.StateRequestReceived)
	StateNamePresentationReceived = string(exchange.StatePresentationReceived)
	StateNameDone                 = string(exchange.StateDone)
	StateNameAbandoned            = string(exchange.StateAbandoned)
)
