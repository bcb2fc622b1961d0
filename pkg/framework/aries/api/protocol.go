/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"errors"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// ErrSvcNotFound is returned when service not found.
var ErrSvcNotFound = errors.New("service not found")

// Provider interface for protocol ctx.
type Provider interface {
	OutboundDispatcher() dispatcher.Outbound
	Sender() service.Sender
	Service(id string) (interface{}, error)
	StorageProvider() storage.Provider
	CredentialFormats() []issuecredential.FormatService
	ProofFormats() []presentproof.FormatService
	AutoAcceptCredentials() exchange.AutoAccept
	AutoAcceptProofs() exchange.AutoAccept
}

// ProtocolSvcCreator struct sets initialization functions for a protocol service.
type ProtocolSvcCreator struct {
	// Create creates new protocol service.
	Create func(prv Provider) (dispatcher.ProtocolService, error)
	// Init initializes given instance of a protocol service once every service exists. Optional.
	Init func(svc dispatcher.ProtocolService, prv Provider) error
}
