/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attribute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

// CredentialFormat is the issue-credential side of the format.
type CredentialFormat struct {
	issuer string
}

// CredentialOption configures a CredentialFormat.
type CredentialOption func(f *CredentialFormat)

// WithIssuer sets the issuer written into issued credentials.
func WithIssuer(issuer string) CredentialOption {
	return func(f *CredentialFormat) {
		f.issuer = issuer
	}
}

// NewCredentialFormat returns the credential format service.
func NewCredentialFormat(opts ...CredentialOption) *CredentialFormat {
	f := &CredentialFormat{}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FormatKey implements issuecredential.FormatService.
func (f *CredentialFormat) FormatKey() string {
	return Key
}

// SupportsFormat implements issuecredential.FormatService.
func (f *CredentialFormat) SupportsFormat(format string) bool {
	return format == Format
}

// CreateProposal proposes the attributes of the input.
func (f *CredentialFormat) CreateProposal(_ context.Context, _ *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	return attributesOutput(input, true)
}

// ProcessProposal checks the proposal payload.
func (f *CredentialFormat) ProcessProposal(_ context.Context, _ *exchange.Record,
	proposal *decorator.AttachmentV2) error {
	_, err := attributesOf(proposal)

	return err
}

// AcceptProposal offers the proposed attributes, or the ones of the input when given.
func (f *CredentialFormat) AcceptProposal(_ context.Context, _ *exchange.Record, proposal *decorator.AttachmentV2,
	input interface{}) (*exchange.FormatOutput, error) {
	if input != nil {
		return attributesOutput(input, true)
	}

	attrs, err := attributesOf(proposal)
	if err != nil {
		return nil, err
	}

	return output(&attributesPayload{Attributes: attrs}, previewOf(attrs)), nil
}

// CreateOffer offers the attributes of the input.
func (f *CredentialFormat) CreateOffer(_ context.Context, _ *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	return attributesOutput(input, true)
}

// ProcessOffer checks the offer payload.
func (f *CredentialFormat) ProcessOffer(_ context.Context, _ *exchange.Record, offer *decorator.AttachmentV2) error {
	_, err := attributesOf(offer)

	return err
}

// AcceptOffer requests the offered attributes.
func (f *CredentialFormat) AcceptOffer(_ context.Context, _ *exchange.Record, offer *decorator.AttachmentV2,
	_ interface{}) (*exchange.FormatOutput, error) {
	attrs, err := attributesOf(offer)
	if err != nil {
		return nil, err
	}

	return output(&attributesPayload{Attributes: attrs}, nil), nil
}

// CreateRequest requests the attributes of the input.
func (f *CredentialFormat) CreateRequest(_ context.Context, _ *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	return attributesOutput(input, false)
}

// ProcessRequest checks that the request asks for what was offered.
func (f *CredentialFormat) ProcessRequest(_ context.Context, _ *exchange.Record, request,
	offer *decorator.AttachmentV2) error {
	requested, err := attributesOf(request)
	if err != nil {
		return err
	}

	if offer == nil {
		return nil
	}

	offered, err := attributesOf(offer)
	if err != nil {
		return err
	}

	if !maps.Equal(requested, offered) {
		return fmt.Errorf("%w: request does not match the offer", ErrInvalidPayload)
	}

	return nil
}

// AcceptRequest issues a credential with the requested attributes.
func (f *CredentialFormat) AcceptRequest(_ context.Context, rec *exchange.Record, request *decorator.AttachmentV2,
	_ interface{}) (*exchange.FormatOutput, error) {
	attrs, err := attributesOf(request)
	if err != nil {
		return nil, err
	}

	digest, err := Digest(attrs)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		ID:         "urn:uuid:" + uuid.New().String(),
		Issuer:     f.issuer,
		Attributes: attrs,
		Digest:     digest,
	}

	logger.Debugf("issuing credential %s for exchange %s", cred.ID, rec.ID)

	return output(cred, nil), nil
}

// ProcessCredential checks the credential digest and that it carries the requested attributes.
func (f *CredentialFormat) ProcessCredential(_ context.Context, _ *exchange.Record, credential,
	request *decorator.AttachmentV2) error {
	cred, err := credentialOf(credential)
	if err != nil {
		return err
	}

	if request == nil {
		return nil
	}

	requested, err := attributesOf(request)
	if err != nil {
		return err
	}

	if !maps.Equal(requested, cred.Attributes) {
		return fmt.Errorf("%w: credential %s does not carry the requested attributes", ErrInvalidPayload, cred.ID)
	}

	return nil
}

// ShouldAutoRespondToProposal approves a proposal of the attributes we offered.
func (f *CredentialFormat) ShouldAutoRespondToProposal(_ context.Context, _ *exchange.Record, proposal,
	offer *decorator.AttachmentV2) (bool, error) {
	return sameStrings(proposal, offer, "attributes")
}

// ShouldAutoRespondToOffer approves an offer of the attributes we proposed.
func (f *CredentialFormat) ShouldAutoRespondToOffer(_ context.Context, _ *exchange.Record, offer,
	proposal *decorator.AttachmentV2) (bool, error) {
	return sameStrings(offer, proposal, "attributes")
}

// ShouldAutoRespondToRequest approves a request of the attributes we offered.
func (f *CredentialFormat) ShouldAutoRespondToRequest(_ context.Context, _ *exchange.Record, request,
	offer *decorator.AttachmentV2) (bool, error) {
	return sameStrings(request, offer, "attributes")
}

// ShouldAutoRespondToCredential approves a credential of the attributes we requested.
func (f *CredentialFormat) ShouldAutoRespondToCredential(_ context.Context, _ *exchange.Record, credential,
	request *decorator.AttachmentV2) (bool, error) {
	return sameStrings(credential, request, "attributes")
}

func attributesOutput(input interface{}, withPreview bool) (*exchange.FormatOutput, error) {
	in := &CredentialInput{}
	if err := decodeInput(input, in); err != nil {
		return nil, err
	}

	if len(in.Attributes) == 0 {
		return nil, fmt.Errorf("%w: no attributes", ErrNoInput)
	}

	var preview []exchange.PreviewAttribute
	if withPreview {
		preview = previewOf(in.Attributes)
	}

	return output(&attributesPayload{Attributes: in.Attributes}, preview), nil
}

func credentialOf(att *decorator.AttachmentV2) (*Credential, error) {
	raw, err := payload(att)
	if err != nil {
		return nil, err
	}

	return parseCredential(raw)
}

func parseCredential(raw []byte) (*Credential, error) {
	cred := &Credential{}
	if err := json.Unmarshal(raw, cred); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}

	if cred.ID == "" || len(cred.Attributes) == 0 {
		return nil, fmt.Errorf("%w: credential without id or attributes", ErrInvalidPayload)
	}

	if err := cred.Verify(); err != nil {
		return nil, err
	}

	return cred, nil
}
