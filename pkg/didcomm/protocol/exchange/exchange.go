/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package exchange is the protocol engine shared by the issue-credential and present-proof families.
//
// A Family describes the state graph of one protocol as a table of transitions. The Engine drives an
// exchange Record through that table, delegating the payloads of every stage message to the registered
// format services through the Coordinator, and wire encoding to one Codec per protocol version.
package exchange

import (
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

// Stage is the logical step of an exchange a message belongs to.
type Stage string

const (
	// StageProposal is the propose-credential / propose-presentation step.
	StageProposal Stage = "proposal"
	// StageOffer is the offer-credential step.
	StageOffer Stage = "offer"
	// StageRequest is the request-credential / request-presentation step.
	StageRequest Stage = "request"
	// StageIssue is the issue-credential / presentation step.
	StageIssue Stage = "issue"
	// StageAck acknowledges the issue step.
	StageAck Stage = "ack"
	// StageProblemReport reports a failure and abandons the exchange.
	StageProblemReport Stage = "problem-report"
)

// Role of the agent in an exchange.
type Role string

const (
	// RoleIssuer issues credentials.
	RoleIssuer Role = "issuer"
	// RoleHolder receives credentials.
	RoleHolder Role = "holder"
	// RoleProver presents proofs.
	RoleProver Role = "prover"
	// RoleVerifier requests and verifies proofs.
	RoleVerifier Role = "verifier"
)

// State of an exchange record.
type State string

// States of both families. Not every family uses every state.
const (
	StateProposalSent         State = "proposal-sent"
	StateProposalReceived     State = "proposal-received"
	StateOfferSent            State = "offer-sent"
	StateOfferReceived        State = "offer-received"
	StateRequestSent          State = "request-sent"
	StateRequestReceived      State = "request-received"
	StateCredentialIssued     State = "credential-issued"
	StateCredentialReceived   State = "credential-received"
	StatePresentationSent     State = "presentation-sent"
	StatePresentationReceived State = "presentation-received"
	StateDone                 State = "done"
	StateAbandoned            State = "abandoned"
)

// IsTerminal reports whether no transition leaves the state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateAbandoned
}

// Version of the wire protocol.
type Version string

// Supported wire versions.
const (
	V1 Version = "v1"
	V2 Version = "v2"
	V3 Version = "v3"
)

// ParseVersion parses v1, v2 or v3.
func ParseVersion(v string) (Version, error) {
	switch Version(v) {
	case V1, V2, V3:
		return Version(v), nil
	default:
		return "", fmt.Errorf("unsupported protocol version %q", v)
	}
}

// AutoAccept is the policy deciding whether an inbound message is answered without the application.
type AutoAccept string

// Auto accept policies.
const (
	AutoAcceptAlways          AutoAccept = "always"
	AutoAcceptNever           AutoAccept = "never"
	AutoAcceptContentApproved AutoAccept = "content-approved"
)

// ParseAutoAccept parses an auto accept policy. The empty string means "not set".
func ParseAutoAccept(v string) (AutoAccept, error) {
	switch AutoAccept(v) {
	case "", AutoAcceptAlways, AutoAcceptNever, AutoAcceptContentApproved:
		return AutoAccept(v), nil
	default:
		return "", fmt.Errorf("unsupported auto accept policy %q", v)
	}
}

// PreviewAttribute is one entry of a credential preview.
type PreviewAttribute struct {
	Name     string `json:"name"`
	MimeType string `json:"mime-type,omitempty"`
	Value    string `json:"value"`
}

// FormatSpec pairs an attachment id with its format identifier (v1/v2 `formats` entries).
type FormatSpec struct {
	AttachID string `json:"attach_id"`
	Format   string `json:"format"`
}

// Record is the persisted state of one protocol instance.
type Record struct {
	ID                   string             `json:"id"`
	ThreadID             string             `json:"thread_id"`
	ParentThreadID       string             `json:"parent_thread_id,omitempty"`
	ConnectionID         string             `json:"connection_id,omitempty"`
	Protocol             string             `json:"protocol"`
	Version              Version            `json:"version"`
	Role                 Role               `json:"role"`
	State                State              `json:"state"`
	AutoAccept           AutoAccept         `json:"auto_accept,omitempty"`
	IsVerified           *bool              `json:"is_verified,omitempty"`
	ErrorMessage         string             `json:"error_message,omitempty"`
	CredentialAttributes []PreviewAttribute `json:"credential_attributes,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	c := *r

	if r.IsVerified != nil {
		verified := *r.IsVerified
		c.IsVerified = &verified
	}

	c.CredentialAttributes = append([]PreviewAttribute(nil), r.CredentialAttributes...)

	return &c
}

// StageMessage is the version independent form of a protocol message.
// Codecs translate it to and from the wire.
type StageMessage struct {
	ID             string                   `json:"id"`
	Type           string                   `json:"type"`
	Stage          Stage                    `json:"stage"`
	Version        Version                  `json:"version"`
	ThreadID       string                   `json:"thread_id"`
	ParentThreadID string                   `json:"parent_thread_id,omitempty"`
	Comment        string                   `json:"comment,omitempty"`
	GoalCode       string                   `json:"goal_code,omitempty"`
	WillConfirm    bool                     `json:"will_confirm,omitempty"`
	Formats        []FormatSpec             `json:"formats,omitempty"`
	Attachments    []decorator.AttachmentV2 `json:"attachments,omitempty"`
	Preview        []PreviewAttribute       `json:"preview,omitempty"`
	Status         string                   `json:"status,omitempty"`
	Code           string                   `json:"code,omitempty"`
}

// Attachment returns a copy of the attachment with the given id.
func (m *StageMessage) Attachment(id string) *decorator.AttachmentV2 {
	for i := range m.Attachments {
		if m.Attachments[i].ID == id {
			att := m.Attachments[i]

			return &att
		}
	}

	return nil
}

// FormatOf returns the format of the attachment, from its own tag or from the formats list.
func (m *StageMessage) FormatOf(att *decorator.AttachmentV2) string {
	if att.Format != "" {
		return att.Format
	}

	for _, f := range m.Formats {
		if f.AttachID == att.ID {
			return f.Format
		}
	}

	return ""
}

// FormatOutput is what a format service contributes to an outgoing stage message.
type FormatOutput struct {
	Format    string
	MediaType string
	Data      decorator.AttachmentData
	// Preview is merged into the message credential preview.
	Preview []PreviewAttribute
}

// Inbound is a decoded message received on a connection.
type Inbound struct {
	Message      *StageMessage
	ConnectionID string
}
