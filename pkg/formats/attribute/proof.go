/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attribute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

// RevocationChecker tells whether a credential was revoked. Failing with exchange.ErrRevocationNotImplemented
// means the status is unknown.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
}

type unknownRevocation struct{}

func (unknownRevocation) IsRevoked(context.Context, string) (bool, error) {
	return false, exchange.ErrRevocationNotImplemented
}

// ProofFormat is the present-proof side of the format.
type ProofFormat struct {
	credentials *CredentialStore
	revocation  RevocationChecker
}

// NewProofFormat returns the proof format service. credentials is where a prover looks for credentials to
// present, revocation may be nil.
func NewProofFormat(credentials *CredentialStore, revocation RevocationChecker) *ProofFormat {
	if revocation == nil {
		revocation = unknownRevocation{}
	}

	return &ProofFormat{credentials: credentials, revocation: revocation}
}

// FormatKey implements presentproof.FormatService.
func (f *ProofFormat) FormatKey() string {
	return Key
}

// SupportsFormat implements presentproof.FormatService.
func (f *ProofFormat) SupportsFormat(format string) bool {
	return format == Format
}

// CreateProposal proposes the requested attributes of the input.
func (f *ProofFormat) CreateProposal(_ context.Context, _ *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	return requestOutput(input)
}

// ProcessProposal checks the proposal payload.
func (f *ProofFormat) ProcessProposal(_ context.Context, _ *exchange.Record, proposal *decorator.AttachmentV2) error {
	_, err := requestedOf(proposal)

	return err
}

// AcceptProposal requests what was proposed, or what the input asks for when given.
func (f *ProofFormat) AcceptProposal(_ context.Context, _ *exchange.Record, proposal *decorator.AttachmentV2,
	input interface{}) (*exchange.FormatOutput, error) {
	if input != nil {
		return requestOutput(input)
	}

	requested, err := requestedOf(proposal)
	if err != nil {
		return nil, err
	}

	return output(&requestPayload{Requested: requested}, nil), nil
}

// CreateRequest requests the attributes of the input.
func (f *ProofFormat) CreateRequest(_ context.Context, _ *exchange.Record,
	input interface{}) (*exchange.FormatOutput, error) {
	return requestOutput(input)
}

// ProcessRequest checks the request payload.
func (f *ProofFormat) ProcessRequest(_ context.Context, _ *exchange.Record, request *decorator.AttachmentV2) error {
	_, err := requestedOf(request)

	return err
}

// AcceptRequest presents the first stored credential satisfying the request, or the one the input selects.
func (f *ProofFormat) AcceptRequest(ctx context.Context, rec *exchange.Record, request *decorator.AttachmentV2,
	input interface{}) (*exchange.FormatOutput, error) {
	requested, err := requestedOf(request)
	if err != nil {
		return nil, err
	}

	if f.credentials == nil {
		return nil, fmt.Errorf("%w: no credential store", ErrNoMatchingCredential)
	}

	candidates, err := f.candidates(ctx, input)
	if err != nil {
		return nil, err
	}

	for _, cred := range candidates {
		revealed, err := reveal(cred, requested)
		if err != nil {
			logger.Debugf("credential %s does not satisfy request of %s: %s", cred.ID, rec.ID, err)

			continue
		}

		return output(&Presentation{Revealed: revealed, Credential: cred}, nil), nil
	}

	return nil, ErrNoMatchingCredential
}

// ProcessPresentation verifies the credential digest, the revealed values and the revocation status.
func (f *ProofFormat) ProcessPresentation(ctx context.Context, _ *exchange.Record, presentation,
	request *decorator.AttachmentV2) (bool, error) {
	raw, err := payload(presentation)
	if err != nil {
		return false, err
	}

	pres := &Presentation{}
	if err = json.Unmarshal(raw, pres); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}

	if pres.Credential == nil {
		return false, fmt.Errorf("%w: presentation without credential", ErrInvalidPayload)
	}

	if err = pres.Credential.Verify(); err != nil {
		return false, err
	}

	if request != nil {
		requested, err := requestedOf(request)
		if err != nil {
			return false, err
		}

		expected, err := reveal(pres.Credential, requested)
		if err != nil {
			return false, err
		}

		for name, value := range expected {
			if got, ok := pres.Revealed[name]; !ok || got != value {
				return false, fmt.Errorf("attribute %s is not revealed from the credential", name)
			}
		}
	}

	revoked, err := f.revocation.IsRevoked(ctx, pres.Credential.ID)

	switch {
	case errors.Is(err, exchange.ErrRevocationNotImplemented):
		logger.Debugf("revocation status of %s is unknown", pres.Credential.ID)
	case err != nil:
		return false, fmt.Errorf("revocation status of %s: %w", pres.Credential.ID, err)
	case revoked:
		return false, fmt.Errorf("credential %s is revoked", pres.Credential.ID)
	}

	return true, nil
}

// ShouldAutoRespondToProposal approves a proposal asking for what we requested.
func (f *ProofFormat) ShouldAutoRespondToProposal(_ context.Context, _ *exchange.Record, proposal,
	request *decorator.AttachmentV2) (bool, error) {
	return sameStrings(proposal, request, "requested")
}

// ShouldAutoRespondToRequest approves a request asking for what we proposed.
func (f *ProofFormat) ShouldAutoRespondToRequest(_ context.Context, _ *exchange.Record, request,
	proposal *decorator.AttachmentV2) (bool, error) {
	return sameStrings(request, proposal, "requested")
}

// ShouldAutoRespondToPresentation approves any presentation, it was verified when processed.
func (f *ProofFormat) ShouldAutoRespondToPresentation(context.Context, *exchange.Record, *decorator.AttachmentV2,
	*decorator.AttachmentV2) (bool, error) {
	return true, nil
}

func (f *ProofFormat) candidates(ctx context.Context, input interface{}) ([]*Credential, error) {
	if input != nil {
		in := &PresentationInput{}
		if err := decodeInput(input, in); err != nil {
			return nil, err
		}

		if in.CredentialID != "" {
			cred, err := f.credentials.Get(ctx, in.CredentialID)
			if err != nil {
				return nil, err
			}

			return []*Credential{cred}, nil
		}
	}

	return f.credentials.List(ctx)
}

// reveal evaluates every requested path against the credential.
func reveal(cred *Credential, requested map[string]string) (map[string]string, error) {
	doc, err := cred.document()
	if err != nil {
		return nil, err
	}

	revealed := make(map[string]string, len(requested))

	for name, path := range requested {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		revealed[name] = fmt.Sprint(value)
	}

	return revealed, nil
}

func requestedOf(att *decorator.AttachmentV2) (map[string]string, error) {
	requested, err := stringMap(att, "requested")
	if err != nil {
		return nil, err
	}

	return requested, validatePaths(requested)
}

func requestOutput(input interface{}) (*exchange.FormatOutput, error) {
	in := &ProofInput{}
	if err := decodeInput(input, in); err != nil {
		return nil, err
	}

	if len(in.Requested) == 0 {
		return nil, fmt.Errorf("%w: nothing requested", ErrNoInput)
	}

	if err := validatePaths(in.Requested); err != nil {
		return nil, err
	}

	return output(&requestPayload{Requested: in.Requested}, nil), nil
}

func validatePaths(requested map[string]string) error {
	for name, path := range requested {
		if _, err := jsonpath.New(path); err != nil {
			return fmt.Errorf("%w: path of %s: %s", ErrInvalidPayload, name, err)
		}
	}

	return nil
}
