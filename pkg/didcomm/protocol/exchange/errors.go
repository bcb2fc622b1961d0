/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateAssertion is matched by every *StateAssertionError.
	ErrStateAssertion = errors.New("state assertion failed")
	// ErrUnsupportedFormat is returned when no registered format service can handle a payload.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnresolvedFormatAttachment is matched by every *UnresolvedFormatAttachmentError.
	ErrUnresolvedFormatAttachment = errors.New("unresolved format attachment")
	// ErrVerificationFailure is matched by every *VerificationError.
	ErrVerificationFailure = errors.New("verification failure")
	// ErrPrecondition is returned when an operation is called without what it needs.
	ErrPrecondition = errors.New("precondition failed")
	// ErrRecordNotFound is returned when no exchange record matches.
	ErrRecordNotFound = errors.New("exchange record not found")
	// ErrDuplicateRecord is returned when a record for the same thread, connection and role exists.
	ErrDuplicateRecord = errors.New("duplicate exchange record")
	// ErrMessageNotFound is returned when no stage message is stored for a record.
	ErrMessageNotFound = errors.New("stage message not found")
	// ErrRevocationNotImplemented is returned by the default revocation status resolver.
	ErrRevocationNotImplemented = errors.New("revocation status not implemented")
	// ErrUnknownOperation is returned when an operation is not part of the family state table.
	ErrUnknownOperation = errors.New("unknown operation")
)

// StateAssertionError reports an operation attempted from a state (or version) it does not accept.
type StateAssertionError struct {
	Operation string
	Expected  []State
	Actual    State
	// Reason is set when the assertion is not about the state, e.g. a protocol version mismatch.
	Reason string
}

func (e *StateAssertionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	}

	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}

	actual := string(e.Actual)
	if actual == "" {
		actual = "<none>"
	}

	return fmt.Sprintf("%s: record is in state %s, expected one of [%s]",
		e.Operation, actual, strings.Join(expected, ", "))
}

// Is makes errors.Is(err, ErrStateAssertion) hold.
func (e *StateAssertionError) Is(target error) bool {
	return target == ErrStateAssertion
}

// UnresolvedFormatAttachmentError lists the formats of services that took part in the previous
// message but did not find their attachment in the response.
type UnresolvedFormatAttachmentError struct {
	Formats []string
}

func (e *UnresolvedFormatAttachmentError) Error() string {
	return fmt.Sprintf("no attachment found for formats [%s]", strings.Join(e.Formats, ", "))
}

// Is makes errors.Is(err, ErrUnresolvedFormatAttachment) hold.
func (e *UnresolvedFormatAttachmentError) Is(target error) bool {
	return target == ErrUnresolvedFormatAttachment
}

// VerificationError is returned when a presentation does not verify.
// The record is already abandoned and the problem report is ready to be sent.
type VerificationError struct {
	Record        *Record
	ProblemReport *StageMessage
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification of exchange %s failed: %s", e.Record.ID, e.Record.ErrorMessage)
}

// Is makes errors.Is(err, ErrVerificationFailure) hold.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailure
}
