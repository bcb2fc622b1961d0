/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

// Type classifies a command error. REST controllers map it to the HTTP status of the response.
type Type int32

const (
	// ValidationError is returned for malformed or incomplete arguments.
	ValidationError Type = iota
	// ExecuteError is returned when the protocol service fails.
	ExecuteError
	// NotFoundError is returned when the addressed exchange or connection does not exist.
	NotFoundError
)

// Code identifies a command error. Each controller owns the codes of its Group.
type Code int32

// UnknownStatus is the code of errors raised outside any controller.
const UnknownStatus Code = 0

// Group is the first code of a controller. Groups are a thousand codes apart.
type Group int32

// Controller groups.
const (
	Common          Group = 1000
	IssueCredential Group = 8000
	PresentProof    Group = 9000
	Connection      Group = 15000
)

// Error is a failed command. The nil value represents success.
type Error interface {
	error
	Code() Code
	Type() Type
}

// NewValidationError returns a command error for invalid arguments.
func NewValidationError(code Code, err error) Error {
	return &commandError{err: err, code: code, errType: ValidationError}
}

// NewExecuteError returns a command error for a failed execution.
func NewExecuteError(code Code, err error) Error {
	return &commandError{err: err, code: code, errType: ExecuteError}
}

// NewNotFoundError returns a command error for a missing record.
func NewNotFoundError(code Code, err error) Error {
	return &commandError{err: err, code: code, errType: NotFoundError}
}

type commandError struct {
	err     error
	code    Code
	errType Type
}

func (c *commandError) Error() string { return c.err.Error() }

func (c *commandError) Unwrap() error { return c.err }

func (c *commandError) Code() Code { return c.code }

func (c *commandError) Type() Type { return c.errType }
