/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

const (
	// CredentialProtocol is the name of the issue-credential family.
	CredentialProtocol = "issue-credential"
	// ProofProtocol is the name of the present-proof family.
	ProofProtocol = "present-proof"
)

// NewCredentialFamily returns the issue-credential state table.
func NewCredentialFamily() *Family {
	return &Family{
		Name:  CredentialProtocol,
		Roles: []Role{RoleIssuer, RoleHolder},
		Transitions: map[Operation]Transition{
			OpCreateProposal: {
				Name: "CreateProposal", Kind: KindCreate, Role: RoleHolder, Stage: StageProposal,
				AllowNew: true, To: StateProposalSent,
			},
			OpProcessProposal: {
				Name: "ProcessProposal", Kind: KindProcess, Role: RoleIssuer, Stage: StageProposal,
				From: []State{StateOfferSent}, AllowNew: true, To: StateProposalReceived,
			},
			OpAcceptProposal: {
				Name: "AcceptProposal", Kind: KindAccept, Role: RoleIssuer, Stage: StageProposal, Produces: StageOffer,
				From: []State{StateProposalReceived}, To: StateOfferSent,
			},
			OpNegotiateProposal: {
				Name: "NegotiateProposal", Kind: KindNegotiate, Role: RoleIssuer, Stage: StageProposal,
				Produces: StageOffer, From: []State{StateProposalReceived}, To: StateOfferSent, NeedsConnection: true,
			},
			OpCreateOffer: {
				Name: "CreateOffer", Kind: KindCreate, Role: RoleIssuer, Stage: StageOffer,
				AllowNew: true, To: StateOfferSent,
			},
			OpProcessOffer: {
				Name: "ProcessOffer", Kind: KindProcess, Role: RoleHolder, Stage: StageOffer,
				From: []State{StateProposalSent}, AllowNew: true, To: StateOfferReceived,
			},
			OpAcceptOffer: {
				Name: "AcceptOffer", Kind: KindAccept, Role: RoleHolder, Stage: StageOffer, Produces: StageRequest,
				From: []State{StateOfferReceived}, To: StateRequestSent,
			},
			OpNegotiateOffer: {
				Name: "NegotiateOffer", Kind: KindNegotiate, Role: RoleHolder, Stage: StageOffer,
				Produces: StageProposal, From: []State{StateOfferReceived}, To: StateProposalSent, NeedsConnection: true,
			},
			OpCreateRequest: {
				Name: "CreateRequest", Kind: KindCreate, Role: RoleHolder, Stage: StageRequest,
				AllowNew: true, To: StateRequestSent,
			},
			OpProcessRequest: {
				Name: "ProcessRequest", Kind: KindProcess, Role: RoleIssuer, Stage: StageRequest,
				From: []State{StateOfferSent}, AllowNew: true, To: StateRequestReceived,
			},
			OpAcceptRequest: {
				Name: "AcceptRequest", Kind: KindAccept, Role: RoleIssuer, Stage: StageRequest, Produces: StageIssue,
				From: []State{StateRequestReceived}, To: StateCredentialIssued,
			},
			OpProcessIssue: {
				Name: "ProcessCredential", Kind: KindProcess, Role: RoleHolder, Stage: StageIssue,
				From: []State{StateRequestSent}, To: StateCredentialReceived,
			},
			OpAcceptIssue: {
				Name: "AcceptCredential", Kind: KindComplete, Role: RoleHolder, Stage: StageIssue, Produces: StageAck,
				From: []State{StateCredentialReceived}, To: StateDone,
			},
			OpProcessAck: {
				Name: "ProcessAck", Kind: KindProcess, Role: RoleIssuer, Stage: StageAck,
				From: []State{StateCredentialIssued}, To: StateDone,
			},
		},
		Responds: map[Stage]Stage{
			StageProposal: StageOffer,
			StageOffer:    StageProposal,
			StageRequest:  StageOffer,
			StageIssue:    StageRequest,
			StageAck:      StageIssue,
		},
		StrictStages:   map[Stage]bool{StageRequest: true, StageIssue: true},
		ComparePreview: true,
	}
}

// NewProofFamily returns the present-proof state table.
func NewProofFamily() *Family {
	return &Family{
		Name:  ProofProtocol,
		Roles: []Role{RoleVerifier, RoleProver},
		Transitions: map[Operation]Transition{
			OpCreateProposal: {
				Name: "CreateProposal", Kind: KindCreate, Role: RoleProver, Stage: StageProposal,
				AllowNew: true, To: StateProposalSent,
			},
			OpProcessProposal: {
				Name: "ProcessProposal", Kind: KindProcess, Role: RoleVerifier, Stage: StageProposal,
				From: []State{StateRequestSent}, AllowNew: true, To: StateProposalReceived,
			},
			OpAcceptProposal: {
				Name: "AcceptProposal", Kind: KindAccept, Role: RoleVerifier, Stage: StageProposal,
				Produces: StageRequest, From: []State{StateProposalReceived}, To: StateRequestSent,
			},
			OpNegotiateProposal: {
				Name: "NegotiateProposal", Kind: KindNegotiate, Role: RoleVerifier, Stage: StageProposal,
				Produces: StageRequest, From: []State{StateProposalReceived}, To: StateRequestSent, NeedsConnection: true,
			},
			OpCreateRequest: {
				Name: "CreateRequest", Kind: KindCreate, Role: RoleVerifier, Stage: StageRequest,
				AllowNew: true, To: StateRequestSent,
			},
			OpProcessRequest: {
				Name: "ProcessRequest", Kind: KindProcess, Role: RoleProver, Stage: StageRequest,
				From: []State{StateProposalSent}, AllowNew: true, To: StateRequestReceived,
			},
			OpAcceptRequest: {
				Name: "AcceptRequest", Kind: KindAccept, Role: RoleProver, Stage: StageRequest, Produces: StageIssue,
				From: []State{StateRequestReceived}, To: StatePresentationSent,
			},
			OpNegotiateRequest: {
				Name: "NegotiateRequest", Kind: KindNegotiate, Role: RoleProver, Stage: StageRequest,
				Produces: StageProposal, From: []State{StateRequestReceived}, To: StateProposalSent, NeedsConnection: true,
			},
			OpProcessIssue: {
				Name: "ProcessPresentation", Kind: KindProcess, Role: RoleVerifier, Stage: StageIssue,
				From: []State{StateRequestSent}, To: StatePresentationReceived,
			},
			OpAcceptIssue: {
				Name: "AcceptPresentation", Kind: KindComplete, Role: RoleVerifier, Stage: StageIssue,
				Produces: StageAck, From: []State{StatePresentationReceived}, To: StateDone,
			},
			OpProcessAck: {
				Name: "ProcessAck", Kind: KindProcess, Role: RoleProver, Stage: StageAck,
				From: []State{StatePresentationSent}, To: StateDone,
			},
		},
		Responds: map[Stage]Stage{
			StageProposal: StageRequest,
			StageRequest:  StageProposal,
			StageIssue:    StageRequest,
			StageAck:      StageIssue,
		},
		StrictStages:       map[Stage]bool{StageIssue: true},
		VerifyIssue:        true,
		RequireWillConfirm: true,
	}
}

// NewCredentialNaming returns the issue-credential wire names.
func NewCredentialNaming() Naming {
	return Naming{
		Protocol: CredentialProtocol,
		StageTypes: map[Stage]string{
			StageProposal: "propose-credential",
			StageOffer:    "offer-credential",
			StageRequest:  "request-credential",
			StageIssue:    "issue-credential",
		},
		AttachKeys: map[Stage]string{
			StageProposal: "filters~attach",
			StageOffer:    "offers~attach",
			StageRequest:  "requests~attach",
			StageIssue:    "credentials~attach",
		},
		PreviewType:   "credential-preview",
		PreviewStages: map[Stage]bool{StageProposal: true, StageOffer: true},
	}
}

// NewProofNaming returns the present-proof wire names.
func NewProofNaming() Naming {
	return Naming{
		Protocol: ProofProtocol,
		StageTypes: map[Stage]string{
			StageProposal: "propose-presentation",
			StageRequest:  "request-presentation",
			StageIssue:    "presentation",
		},
		AttachKeys: map[Stage]string{
			StageProposal: "proposals~attach",
			StageRequest:  "request_presentations~attach",
			StageIssue:    "presentations~attach",
		},
	}
}
