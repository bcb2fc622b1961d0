/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context creates a framework Provider context to add optional (non default) framework services and provides
// simple accessor methods to those same services.
package context

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher/inbound"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// ErrSvcNotFound is returned when service not found.
var ErrSvcNotFound = errors.New("service not found")

// Provider supplies the framework configuration to client objects.
type Provider struct {
	services              []dispatcher.ProtocolService
	storeProvider         storage.Provider
	outboundDispatcher    dispatcher.Outbound
	outboundTransports    []transport.OutboundTransport
	credentialFormats     []issuecredential.FormatService
	proofFormats          []presentproof.FormatService
	autoAcceptCredentials exchange.AutoAccept
	autoAcceptProofs      exchange.AutoAccept
}

// ProviderOption configures the framework.
type ProviderOption func(opts *Provider) error

// New instantiates a new context provider.
func New(opts ...ProviderOption) (*Provider, error) {
	ctxProvider := Provider{}

	for _, opt := range opts {
		err := opt(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("option failed: %w", err)
		}
	}

	return &ctxProvider, nil
}

// OutboundDispatcher returns an outbound dispatcher.
func (p *Provider) OutboundDispatcher() dispatcher.Outbound {
	return p.outboundDispatcher
}

// Sender is the outbound dispatcher seen by protocol services.
func (p *Provider) Sender() service.Sender {
	return p.outboundDispatcher
}

// OutboundTransports returns an outbound transports.
func (p *Provider) OutboundTransports() []transport.OutboundTransport {
	return p.outboundTransports
}

// Service return protocol service.
func (p *Provider) Service(id string) (interface{}, error) {
	for _, v := range p.services {
		if v.Name() == id {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrSvcNotFound, id)
}

// AllServices returns a copy of the Provider's list of ProtocolServices.
func (p *Provider) AllServices() []dispatcher.ProtocolService {
	ret := make([]dispatcher.ProtocolService, len(p.services))

	copy(ret, p.services)

	return ret
}

// StorageProvider return a storage provider.
func (p *Provider) StorageProvider() storage.Provider {
	return p.storeProvider
}

// CredentialFormats returns the credential format services of the issue-credential protocol.
func (p *Provider) CredentialFormats() []issuecredential.FormatService {
	return p.credentialFormats
}

// ProofFormats returns the proof format services of the present-proof protocol.
func (p *Provider) ProofFormats() []presentproof.FormatService {
	return p.proofFormats
}

// AutoAcceptCredentials is the agent policy for credential exchanges.
func (p *Provider) AutoAcceptCredentials() exchange.AutoAccept {
	return p.autoAcceptCredentials
}

// AutoAcceptProofs is the agent policy for proof exchanges.
func (p *Provider) AutoAcceptProofs() exchange.AutoAccept {
	return p.autoAcceptProofs
}

// InboundMessageHandler return an inbound message handler dispatching to the protocol services.
func (p *Provider) InboundMessageHandler() transport.InboundMessageHandler {
	return inbound.NewInboundMessageHandler(p).HandlerFunc()
}

// WithOutboundDispatcher injects an outbound dispatcher into the context.
func WithOutboundDispatcher(ob dispatcher.Outbound) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundDispatcher = ob
		return nil
	}
}

// WithOutboundTransports injects an outbound transports into the context.
func WithOutboundTransports(transports ...transport.OutboundTransport) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundTransports = transports
		return nil
	}
}

// WithProtocolServices injects a protocol services into the context.
func WithProtocolServices(services ...dispatcher.ProtocolService) ProviderOption {
	return func(opts *Provider) error {
		opts.services = services
		return nil
	}
}

// WithStorageProvider injects a storage provider into the context.
func WithStorageProvider(s storage.Provider) ProviderOption {
	return func(opts *Provider) error {
		opts.storeProvider = s
		return nil
	}
}

// WithCredentialFormats injects the credential format services into the context.
func WithCredentialFormats(formats ...issuecredential.FormatService) ProviderOption {
	return func(opts *Provider) error {
		opts.credentialFormats = formats
		return nil
	}
}

// WithProofFormats injects the proof format services into the context.
func WithProofFormats(formats ...presentproof.FormatService) ProviderOption {
	return func(opts *Provider) error {
		opts.proofFormats = formats
		return nil
	}
}

// WithAutoAcceptCredentials sets the agent auto accept policy of credential exchanges.
func WithAutoAcceptCredentials(a exchange.AutoAccept) ProviderOption {
	return func(opts *Provider) error {
		opts.autoAcceptCredentials = a
		return nil
	}
}

// WithAutoAcceptProofs sets the agent auto accept policy of proof exchanges.
func WithAutoAcceptProofs(a exchange.AutoAccept) ProviderOption {
	return func(opts *Provider) error {
		opts.autoAcceptProofs = a
		return nil
	}
}
