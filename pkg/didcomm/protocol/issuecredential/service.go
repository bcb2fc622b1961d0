/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential is the issue-credential protocol service, versions 1.0, 2.0 and 3.0.
package issuecredential

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// Name defines the protocol name.
const Name = exchange.CredentialProtocol

var logger = log.New("aries-framework/issuecredential/service")

// Provider contains dependencies for the issue-credential protocol.
type Provider interface {
	StorageProvider() storage.Provider
	Sender() service.Sender
	CredentialFormats() []FormatService
	// AutoAcceptCredentials is the agent default policy, empty when not set.
	AutoAcceptCredentials() exchange.AutoAccept
}

// Service for the issue-credential protocol.
type Service struct {
	*exchange.Protocol
}

// New returns the issue-credential service.
func New(p Provider, opts ...exchange.Option) (*Service, error) {
	repo, err := exchange.NewStorageRepository(p.StorageProvider())
	if err != nil {
		return nil, fmt.Errorf("new record repository: %w", err)
	}

	messages, err := exchange.NewMessageStore(p.StorageProvider())
	if err != nil {
		return nil, fmt.Errorf("new message store: %w", err)
	}

	registry, err := NewRegistry(p.CredentialFormats()...)
	if err != nil {
		return nil, fmt.Errorf("credential formats: %w", err)
	}

	opts = append([]exchange.Option{exchange.WithAutoAccept(p.AutoAcceptCredentials())}, opts...)
	engine := exchange.NewEngine(exchange.NewCredentialFamily(), exchange.NewCodecs(exchange.NewCredentialNaming()),
		registry, repo, messages, opts...)

	logger.Debugf("issue-credential service with %d formats", len(p.CredentialFormats()))

	return &Service{Protocol: exchange.NewProtocol(engine, p.Sender())}, nil
}

// SendProposal starts an exchange as holder by proposing a credential on a connection.
func (s *Service) SendProposal(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error) {
	return s.send(ctx, exchange.OpCreateProposal, opts)
}

// SendOffer starts an exchange as issuer by offering a credential on a connection.
func (s *Service) SendOffer(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error) {
	return s.send(ctx, exchange.OpCreateOffer, opts)
}

// CreateOffer creates a connectionless offer. The returned message is delivered out of band.
func (s *Service) CreateOffer(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record,
	service.DIDCommMsgMap, error) {
	if opts == nil {
		opts = &exchange.CreateOptions{}
	}

	connectionless := *opts
	connectionless.ConnectionID = ""

	return s.Start(ctx, exchange.OpCreateOffer, &connectionless)
}

// SendRequest starts an exchange as holder by requesting a credential on a connection.
func (s *Service) SendRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error) {
	return s.send(ctx, exchange.OpCreateRequest, opts)
}

// AcceptProposal answers a received proposal with an offer.
func (s *Service) AcceptProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptProposal, recordID, opts)
}

// NegotiateProposal answers a received proposal with a counter offer.
func (s *Service) NegotiateProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpNegotiateProposal, recordID, opts)
}

// AcceptOffer answers a received offer with a request.
func (s *Service) AcceptOffer(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error) {
	return s.Respond(ctx, exchange.OpAcceptOffer, recordID, opts)
}

// NegotiateOffer answers a received offer with a counter proposal.
func (s *Service) NegotiateOffer(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpNegotiateOffer, recordID, opts)
}

// AcceptRequest issues the requested credential.
func (s *Service) AcceptRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptRequest, recordID, opts)
}

// AcceptCredential acknowledges a received credential and completes the exchange.
func (s *Service) AcceptCredential(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptIssue, recordID, opts)
}

// Records lists the issue-credential records matching the filter.
func (s *Service) Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error) {
	return s.Engine().Records(ctx, filter)
}

// GetRecord returns an issue-credential record.
func (s *Service) GetRecord(ctx context.Context, recordID string) (*exchange.Record, error) {
	return s.Engine().GetRecord(ctx, recordID)
}

// DeleteRecord removes a record and its messages.
func (s *Service) DeleteRecord(ctx context.Context, recordID string) error {
	return s.Engine().DeleteRecord(ctx, recordID)
}

// FormatData returns the attachment payloads of the record, by stage then format key.
func (s *Service) FormatData(ctx context.Context, recordID string) (map[exchange.Stage]map[string]interface{},
	error) {
	return s.Engine().FormatData(ctx, recordID)
}

// FindProposalMessage returns the proposal of the record.
func (s *Service) FindProposalMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return findMessage(ctx, s.Engine(), recordID, exchange.StageProposal)
}

// FindOfferMessage returns the offer of the record.
func (s *Service) FindOfferMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return findMessage(ctx, s.Engine(), recordID, exchange.StageOffer)
}

// FindRequestMessage returns the request of the record.
func (s *Service) FindRequestMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return findMessage(ctx, s.Engine(), recordID, exchange.StageRequest)
}

// FindCredentialMessage returns the issue-credential message of the record.
func (s *Service) FindCredentialMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return findMessage(ctx, s.Engine(), recordID, exchange.StageIssue)
}

func (s *Service) send(ctx context.Context, op exchange.Operation, opts *exchange.CreateOptions) (*exchange.Record,
	error) {
	if opts == nil || opts.ConnectionID == "" {
		return nil, fmt.Errorf("%w: %s requires a connection", exchange.ErrPrecondition, op)
	}

	rec, _, err := s.Start(ctx, op, opts)

	return rec, err
}

// findMessage prefers the message we sent, then the one we received.
func findMessage(ctx context.Context, engine *exchange.Engine, recordID string,
	stage exchange.Stage) (*exchange.StageMessage, error) {
	msg, err := engine.FindMessage(ctx, recordID, stage, exchange.Sender)
	if errors.Is(err, exchange.ErrMessageNotFound) {
		return engine.FindMessage(ctx, recordID, stage, exchange.Receiver)
	}

	return msg, err
}
