/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Operation names an entry of a family state table.
type Operation string

// Operations shared by the families. A family only defines the ones its protocol has.
const (
	OpCreateProposal    Operation = "CreateProposal"
	OpProcessProposal   Operation = "ProcessProposal"
	OpAcceptProposal    Operation = "AcceptProposal"
	OpNegotiateProposal Operation = "NegotiateProposal"
	OpCreateOffer       Operation = "CreateOffer"
	OpProcessOffer      Operation = "ProcessOffer"
	OpAcceptOffer       Operation = "AcceptOffer"
	OpNegotiateOffer    Operation = "NegotiateOffer"
	OpCreateRequest     Operation = "CreateRequest"
	OpProcessRequest    Operation = "ProcessRequest"
	OpAcceptRequest     Operation = "AcceptRequest"
	OpNegotiateRequest  Operation = "NegotiateRequest"
	OpProcessIssue      Operation = "ProcessIssue"
	OpAcceptIssue       Operation = "AcceptIssue"
	OpProcessAck        Operation = "ProcessAck"
)

// Kind of a transition.
type Kind int

const (
	// KindCreate starts a new record with an outbound message.
	KindCreate Kind = iota
	// KindProcess consumes an inbound message.
	KindProcess
	// KindAccept answers the last received message from its attachments.
	KindAccept
	// KindNegotiate answers the last received message with a fresh counter message.
	KindNegotiate
	// KindComplete finishes the exchange with an ack.
	KindComplete
)

// Transition is one row of a family state table.
type Transition struct {
	// Name is used in errors and logs, e.g. "ProcessPresentation".
	Name string
	Kind Kind
	Role Role
	// Stage is the stage of the produced message for create, of the consumed message otherwise.
	Stage Stage
	// Produces is the stage of the outbound message of accept, negotiate and complete.
	Produces Stage
	From     []State
	// AllowNew lets the transition create the record.
	AllowNew        bool
	To              State
	NeedsConnection bool
}

// Family is the state table and policies of one protocol.
type Family struct {
	Name        string
	Roles       []Role
	Transitions map[Operation]Transition
	// Responds maps a received stage to the stage we sent that it answers.
	Responds map[Stage]Stage
	// StrictStages must carry an attachment for every format of the message they answer.
	StrictStages map[Stage]bool
	// ComparePreview makes content approval compare credential previews of proposals and offers.
	ComparePreview bool
	// VerifyIssue abandons the exchange when an issue stage payload is invalid.
	VerifyIssue bool
	// RequireWillConfirm only approves an issue stage when our request asked for confirmation.
	RequireWillConfirm bool
}

// Transition looks up an operation.
func (f *Family) Transition(op Operation) (Transition, error) {
	t, ok := f.Transitions[op]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s does not define %s", ErrUnknownOperation, f.Name, op)
	}

	return t, nil
}

// ProcessFor returns the operation consuming messages of the stage.
func (f *Family) ProcessFor(stage Stage) (Operation, Transition, error) {
	for op, t := range f.Transitions {
		if t.Kind == KindProcess && t.Stage == stage {
			return op, t, nil
		}
	}

	return "", Transition{}, fmt.Errorf("%w: %s has no process operation for stage %s", ErrUnknownOperation, f.Name, stage)
}

// AcceptFor returns the accept or complete operation answering a record of the role in the state.
func (f *Family) AcceptFor(state State, role Role) (Operation, Transition, bool) {
	for _, op := range f.operations() {
		t := f.Transitions[op]
		if (t.Kind == KindAccept || t.Kind == KindComplete) && t.Role == role && t.allows(state) {
			return op, t, true
		}
	}

	return "", Transition{}, false
}

// HasRole reports whether the role takes part in the family.
func (f *Family) HasRole(role Role) bool {
	return slices.Contains(f.Roles, role)
}

// States lists every state reachable in the family, in table order of first appearance, plus abandoned.
func (f *Family) States() []State {
	var states []State

	add := func(s State) {
		if s != "" && !slices.Contains(states, s) {
			states = append(states, s)
		}
	}

	for _, op := range f.operations() {
		t := f.Transitions[op]
		for _, s := range t.From {
			add(s)
		}

		add(t.To)
	}

	add(StateAbandoned)

	return states
}

// operations returns the family operations in a stable order.
func (f *Family) operations() []Operation {
	ops := make([]Operation, 0, len(f.Transitions))
	for op := range f.Transitions {
		ops = append(ops, op)
	}

	slices.Sort(ops)

	return ops
}

func (t Transition) allows(s State) bool {
	return slices.Contains(t.From, s)
}
