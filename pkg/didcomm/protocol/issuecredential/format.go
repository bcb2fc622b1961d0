/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

// FormatService handles the attachments of one credential format.
//
// Accept methods receive the attachment of the message being accepted. Process and ShouldAutoRespondTo methods
// of an answer receive the attachment of the message it answers, nil when we did not send one.
type FormatService interface {
	FormatKey() string
	SupportsFormat(format string) bool

	CreateProposal(ctx context.Context, rec *exchange.Record, input interface{}) (*exchange.FormatOutput, error)
	ProcessProposal(ctx context.Context, rec *exchange.Record, proposal *decorator.AttachmentV2) error
	AcceptProposal(ctx context.Context, rec *exchange.Record, proposal *decorator.AttachmentV2,
		input interface{}) (*exchange.FormatOutput, error)

	CreateOffer(ctx context.Context, rec *exchange.Record, input interface{}) (*exchange.FormatOutput, error)
	ProcessOffer(ctx context.Context, rec *exchange.Record, offer *decorator.AttachmentV2) error
	AcceptOffer(ctx context.Context, rec *exchange.Record, offer *decorator.AttachmentV2,
		input interface{}) (*exchange.FormatOutput, error)

	CreateRequest(ctx context.Context, rec *exchange.Record, input interface{}) (*exchange.FormatOutput, error)
	ProcessRequest(ctx context.Context, rec *exchange.Record, request, offer *decorator.AttachmentV2) error
	AcceptRequest(ctx context.Context, rec *exchange.Record, request *decorator.AttachmentV2,
		input interface{}) (*exchange.FormatOutput, error)

	ProcessCredential(ctx context.Context, rec *exchange.Record, credential, request *decorator.AttachmentV2) error

	ShouldAutoRespondToProposal(ctx context.Context, rec *exchange.Record, proposal,
		offer *decorator.AttachmentV2) (bool, error)
	ShouldAutoRespondToOffer(ctx context.Context, rec *exchange.Record, offer,
		proposal *decorator.AttachmentV2) (bool, error)
	ShouldAutoRespondToRequest(ctx context.Context, rec *exchange.Record, request,
		offer *decorator.AttachmentV2) (bool, error)
	ShouldAutoRespondToCredential(ctx context.Context, rec *exchange.Record, credential,
		request *decorator.AttachmentV2) (bool, error)
}

// NewRegistry adapts the credential format services for the engine.
func NewRegistry(services ...FormatService) (*exchange.Registry, error) {
	adapted := make([]exchange.FormatService, len(services))
	for i, svc := range services {
		adapted[i] = Adapt(svc)
	}

	return exchange.NewRegistry(adapted...)
}

// Adapt exposes a credential format service through the stage based engine contract.
func Adapt(svc FormatService) exchange.FormatService {
	return &formatAdapter{svc: svc}
}

type formatAdapter struct {
	svc FormatService
}

func (a *formatAdapter) FormatKey() string {
	return a.svc.FormatKey()
}

func (a *formatAdapter) SupportsFormat(format string) bool {
	return a.svc.SupportsFormat(format)
}

func (a *formatAdapter) Create(ctx context.Context, stage exchange.Stage, rec *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	switch stage {
	case exchange.StageProposal:
		return a.svc.CreateProposal(ctx, rec, input)
	case exchange.StageOffer:
		return a.svc.CreateOffer(ctx, rec, input)
	case exchange.StageRequest:
		return a.svc.CreateRequest(ctx, rec, input)
	default:
		return nil, unsupportedStage("create", stage)
	}
}

func (a *formatAdapter) Process(ctx context.Context, stage exchange.Stage, rec *exchange.Record, att,
	predecessor *decorator.AttachmentV2) (bool, error) {
	var err error

	switch stage {
	case exchange.StageProposal:
		err = a.svc.ProcessProposal(ctx, rec, att)
	case exchange.StageOffer:
		err = a.svc.ProcessOffer(ctx, rec, att)
	case exchange.StageRequest:
		err = a.svc.ProcessRequest(ctx, rec, att, predecessor)
	case exchange.StageIssue:
		err = a.svc.ProcessCredential(ctx, rec, att, predecessor)
	default:
		err = unsupportedStage("process", stage)
	}

	return err == nil, err
}

func (a *formatAdapter) Accept(ctx context.Context, stage exchange.Stage, rec *exchange.Record,
	predecessor *decorator.AttachmentV2, input interface{}) (*exchange.FormatOutput, error) {
	switch stage {
	case exchange.StageProposal:
		return a.svc.AcceptProposal(ctx, rec, predecessor, input)
	case exchange.StageOffer:
		return a.svc.AcceptOffer(ctx, rec, predecessor, input)
	case exchange.StageRequest:
		return a.svc.AcceptRequest(ctx, rec, predecessor, input)
	default:
		return nil, unsupportedStage("accept", stage)
	}
}

func (a *formatAdapter) ShouldAutoRespond(ctx context.Context, stage exchange.Stage, rec *exchange.Record, received,
	predecessor *decorator.AttachmentV2) (bool, error) {
	switch stage {
	case exchange.StageProposal:
		return a.svc.ShouldAutoRespondToProposal(ctx, rec, received, predecessor)
	case exchange.StageOffer:
		return a.svc.ShouldAutoRespondToOffer(ctx, rec, received, predecessor)
	case exchange.StageRequest:
		return a.svc.ShouldAutoRespondToRequest(ctx, rec, received, predecessor)
	case exchange.StageIssue:
		return a.svc.ShouldAutoRespondToCredential(ctx, rec, received, predecessor)
	default:
		return false, unsupportedStage("auto respond to", stage)
	}
}

func unsupportedStage(action string, stage exchange.Stage) error {
	return fmt.Errorf("%w: cannot %s stage %s", exchange.ErrUnknownOperation, action, stage)
}
