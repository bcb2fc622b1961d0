/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof is the present-proof protocol service, versions 1.0, 2.0 and 3.0.
package presentproof

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
const Name = exchange.ProofProtocol

var logger = log.New("aries-framework/presentproof/service")

// Provider contains dependencies for the present-proof protocol.
type Provider interface {
	StorageProvider() storage.Provider
	Sender() service.Sender
	ProofFormats() []FormatService
	// AutoAcceptProofs is the agent default policy, empty when not set.
	AutoAcceptProofs() exchange.AutoAccept
}

// Service for the present-proof protocol.
type Service struct {
	*exchange.Protocol
}

// New returns the present-proof service.
func New(p Provider, opts ...exchange.Option) (*Service, error) {
	repo, err := exchange.NewStorageRepository(p.StorageProvider())
	if err != nil {
		return nil, fmt.Errorf("new record repository: %w", err)
	}

	messages, err := exchange.NewMessageStore(p.StorageProvider())
	if err != nil {
		return nil, fmt.Errorf("new message store: %w", err)
	}

	registry, err := NewRegistry(p.ProofFormats()...)
	if err != nil {
		return nil, fmt.Errorf("proof formats: %w", err)
	}

	opts = append([]exchange.Option{exchange.WithAutoAccept(p.AutoAcceptProofs())}, opts...)
	engine := exchange.NewEngine(exchange.NewProofFamily(), exchange.NewCodecs(exchange.NewProofNaming()),
		registry, repo, messages, opts...)

	logger.Debugf("present-proof service with %d formats", len(p.ProofFormats()))

	return &Service{Protocol: exchange.NewProtocol(engine, p.Sender())}, nil
}

// SendProposal starts an exchange as prover by proposing a presentation on a connection.
func (s *Service) SendProposal(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error) {
	return s.send(ctx, exchange.OpCreateProposal, opts)
}

// SendRequest starts an exchange as verifier by requesting a presentation on a connection.
func (s *Service) SendRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error) {
	return s.send(ctx, exchange.OpCreateRequest, opts)
}

// CreateRequest creates a connectionless request. The returned message is delivered out of band.
func (s *Service) CreateRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record,
	service.DIDCommMsgMap, error) {
	if opts == nil {
		opts = &exchange.CreateOptions{}
	}

	connectionless := *opts
	connectionless.ConnectionID = ""

	return s.Start(ctx, exchange.OpCreateRequest, &connectionless)
}

// AcceptProposal answers a received proposal with a request.
func (s *Service) AcceptProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptProposal, recordID, opts)
}

// NegotiateProposal answers a received proposal with a counter request.
func (s *Service) NegotiateProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpNegotiateProposal, recordID, opts)
}

// AcceptRequest answers a received request with a presentation.
func (s *Service) AcceptRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptRequest, recordID, opts)
}

// NegotiateRequest answers a received request with a counter proposal.
func (s *Service) NegotiateRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpNegotiateRequest, recordID, opts)
}

// AcceptPresentation acknowledges a verified presentation and completes the exchange.
func (s *Service) AcceptPresentation(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record,
	error) {
	return s.Respond(ctx, exchange.OpAcceptIssue, recordID, opts)
}

// Records lists the present-proof records matching the filter.
func (s *Service) Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error) {
	return s.Engine().Records(ctx, filter)
}

// GetRecord returns a present-proof record.
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
	return s.findMessage(ctx, recordID, exchange.StageProposal)
}

// FindRequestMessage returns the request of the record.
func (s *Service) FindRequestMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return s.findMessage(ctx, recordID, exchange.StageRequest)
}

// FindPresentationMessage returns the presentation of the record.
func (s *Service) FindPresentationMessage(ctx context.Context, recordID string) (*exchange.StageMessage, error) {
	return s.findMessage(ctx, recordID, exchange.StageIssue)
}

func (s *Service) send(ctx context.Context, op exchange.Operation, opts *exchange.CreateOptions) (*exchange.Record,
	error) {
	if opts == nil || opts.ConnectionID == "" {
		return nil, fmt.Errorf("%w: %s requires a connection", exchange.ErrPrecondition, op)
	}

	rec, _, err := s.Start(ctx, op, opts)

	return rec, err
}

func (s *Service) findMessage(ctx context.Context, recordID string, stage exchange.Stage) (*exchange.StageMessage,
	error) {
	msg, err := s.Engine().FindMessage(ctx, recordID, stage, exchange.Sender)
	if errors.Is(err, exchange.ErrMessageNotFound) {
		return s.Engine().FindMessage(ctx, recordID, stage, exchange.Receiver)
	}

	return msg, err
}
