/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher/outbound"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/formats/attribute"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/aries/api"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/context"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

var logger = log.New("aries-framework/framework")

// Aries provides access to the context being managed by the framework. The context can be used to create aries clients.
type Aries struct {
	storeProvider         storage.Provider
	storeCacheSize        int
	protocolSvcCreators   []api.ProtocolSvcCreator
	services              []dispatcher.ProtocolService
	outboundDispatcher    dispatcher.Outbound
	outboundTransports    []transport.OutboundTransport
	outboundRetries       *uint64
	outboundRetryInterval time.Duration
	credentialFormats     []issuecredential.FormatService
	proofFormats          []presentproof.FormatService
	credentialStore       *attribute.CredentialStore
	revocationResolver    presentproof.RevocationStatusResolver
	autoAcceptCredentials exchange.AutoAccept
	autoAcceptProofs      exchange.AutoAccept
	id                    string
}

// Option configures the framework.
type Option func(opts *Aries) error

// New initializes the Aries framework based on the set of options provided. This function returns a framework
// which can be used to manage Aries clients by getting the framework context.
func New(opts ...Option) (*Aries, error) {
	frameworkOpts := &Aries{}

	// generate framework configs from options
	for _, option := range opts {
		err := option(frameworkOpts)
		if err != nil {
			closeErr := frameworkOpts.Close()
			return nil, fmt.Errorf("close err: %v Error in option passed to New: %w", closeErr, err)
		}
	}

	// generate a random framework ID
	frameworkOpts.id = uuid.New().String()

	// get the default framework options
	err := defFrameworkOpts(frameworkOpts)
	if err != nil {
		return nil, fmt.Errorf("default option initialization failed: %w", err)
	}

	return initializeServices(frameworkOpts)
}

func initializeServices(frameworkOpts *Aries) (*Aries, error) {
	// Order of initializing service is important
	// Create outbound dispatcher
	if err := createOutboundDispatcher(frameworkOpts); err != nil {
		return nil, err
	}

	// Load services
	if err := loadServices(frameworkOpts); err != nil {
		return nil, err
	}

	logger.Infof("framework %s started with %d protocol services", frameworkOpts.id, len(frameworkOpts.services))

	return frameworkOpts, nil
}

// WithOutboundTransports injects an outbound transports to the Aries framework.
func WithOutboundTransports(outboundTransports ...transport.OutboundTransport) Option {
	return func(opts *Aries) error {
		opts.outboundTransports = append(opts.outboundTransports, outboundTransports...)
		return nil
	}
}

// WithOutboundRetry sets how often a failed delivery is retried and the wait between attempts.
func WithOutboundRetry(maxRetries uint64, interval time.Duration) Option {
	return func(opts *Aries) error {
		opts.outboundRetries = &maxRetries
		opts.outboundRetryInterval = interval

		return nil
	}
}

// WithStoreProvider injects a storage provider to the Aries framework.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Aries) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithStoreCache puts an LRU read cache of the given size in front of the storage provider.
func WithStoreCache(size int) Option {
	return func(opts *Aries) error {
		if size < 0 {
			return fmt.Errorf("invalid store cache size %d", size)
		}

		opts.storeCacheSize = size

		return nil
	}
}

// WithProtocols injects a protocol service to the Aries framework.
func WithProtocols(protocolSvcCreator ...api.ProtocolSvcCreator) Option {
	return func(opts *Aries) error {
		opts.protocolSvcCreators = append(opts.protocolSvcCreators, protocolSvcCreator...)
		return nil
	}
}

// WithCredentialFormats injects the credential format services. The attribute format is used when none is given.
func WithCredentialFormats(formats ...issuecredential.FormatService) Option {
	return func(opts *Aries) error {
		opts.credentialFormats = append(opts.credentialFormats, formats...)
		return nil
	}
}

// WithProofFormats injects the proof format services. The attribute format is used when none is given.
func WithProofFormats(formats ...presentproof.FormatService) Option {
	return func(opts *Aries) error {
		opts.proofFormats = append(opts.proofFormats, formats...)
		return nil
	}
}

// WithRevocationResolver sets how the default proof format looks up the revocation status of credentials.
func WithRevocationResolver(resolver presentproof.RevocationStatusResolver) Option {
	return func(opts *Aries) error {
		opts.revocationResolver = resolver
		return nil
	}
}

// WithAutoAcceptCredentials sets the agent auto accept policy of credential exchanges.
func WithAutoAcceptCredentials(policy string) Option {
	return func(opts *Aries) error {
		a, err := exchange.ParseAutoAccept(policy)
		if err != nil {
			return err
		}

		opts.autoAcceptCredentials = a

		return nil
	}
}

// WithAutoAcceptProofs sets the agent auto accept policy of proof exchanges.
func WithAutoAcceptProofs(policy string) Option {
	return func(opts *Aries) error {
		a, err := exchange.ParseAutoAccept(policy)
		if err != nil {
			return err
		}

		opts.autoAcceptProofs = a

		return nil
	}
}

// Context provides a handle to the framework context.
func (a *Aries) Context() (*context.Provider, error) {
	return context.New(
		context.WithOutboundDispatcher(a.outboundDispatcher),
		context.WithOutboundTransports(a.outboundTransports...),
		context.WithProtocolServices(a.services...),
		context.WithStorageProvider(a.storeProvider),
		context.WithCredentialFormats(a.credentialFormats...),
		context.WithProofFormats(a.proofFormats...),
		context.WithAutoAcceptCredentials(a.autoAcceptCredentials),
		context.WithAutoAcceptProofs(a.autoAcceptProofs),
	)
}

// CredentialStore returns the store of the credentials this agent holds and the presentations it accepted.
func (a *Aries) CredentialStore() *attribute.CredentialStore {
	return a.credentialStore
}

// Close frees resources being maintained by the framework.
func (a *Aries) Close() error {
	if a.storeProvider != nil {
		err := a.storeProvider.Close()
		if err != nil {
			return fmt.Errorf("failed to close the store: %w", err)
		}
	}

	return nil
}

func createOutboundDispatcher(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithOutboundTransports(frameworkOpts.outboundTransports...),
		context.WithStorageProvider(frameworkOpts.storeProvider),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	var opts []outbound.Opt

	if frameworkOpts.outboundRetries != nil {
		opts = append(opts, outbound.WithRetry(*frameworkOpts.outboundRetries, frameworkOpts.outboundRetryInterval))
	}

	frameworkOpts.outboundDispatcher, err = outbound.NewOutbound(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to init outbound dispatcher: %w", err)
	}

	return nil
}

func loadServices(frameworkOpts *Aries) error {
	ctx, err := frameworkOpts.Context()
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	for _, v := range frameworkOpts.protocolSvcCreators {
		svc, svcErr := v.Create(ctx)
		if svcErr != nil {
			return fmt.Errorf("new protocol service failed: %w", svcErr)
		}

		frameworkOpts.services = append(frameworkOpts.services, svc)
		// after service was successfully created we need to add it to the context
		if e := context.WithProtocolServices(frameworkOpts.services...)(ctx); e != nil {
			return e
		}
	}

	for i, v := range frameworkOpts.protocolSvcCreators {
		if v.Init == nil {
			continue
		}

		if e := v.Init(frameworkOpts.services[i], ctx); e != nil {
			return e
		}
	}

	return nil
}
