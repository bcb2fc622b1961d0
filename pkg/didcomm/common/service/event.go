/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "errors"

var (
	// ErrNilChannel is returned when a nil channel is registered or unregistered.
	ErrNilChannel = errors.New("nil channel")
	// ErrChannelRegistered is returned when an action channel is already registered.
	ErrChannelRegistered = errors.New("channel is already registered for the action event")
	// ErrInvalidChannel is returned when an unknown action channel is unregistered.
	ErrInvalidChannel = errors.New("invalid channel passed to unregister the action event")
)

// StateMsgType tells whether a state message is sent before or after a transition is saved.
type StateMsgType int

// State message types.
const (
	PreState StateMsgType = iota
	PostState
)

// String returns the name of the message type.
func (t StateMsgType) String() string {
	if t == PreState {
		return "pre_state"
	}

	return "post_state"
}

// StateMsg reports a transition of an exchange record.
type StateMsg struct {
	ProtocolName string
	Type         StateMsgType
	StateID      string
	// Msg is nil when the transition was not triggered by a message.
	Msg        DIDCommMsgMap
	Properties EventProperties
}

// DIDCommAction asks the application to answer a message the service does not answer by itself.
// Exactly one of Continue or Stop is expected to be called.
type DIDCommAction struct {
	ProtocolName string
	Message      DIDCommMsgMap
	// Continue answers the message. args carries the options of the answer, or Empty.
	Continue func(args interface{})
	// Stop declines the message, err is the reason sent to the other party.
	Stop       func(err error)
	Properties EventProperties
}

// EventProperties are the serializable details of an event, such as the record and thread ids.
type EventProperties interface {
	All() map[string]interface{}
}

// Event is implemented by the services that raise action and state events.
type Event interface {
	RegisterActionEvent(ch chan<- DIDCommAction) error
	UnregisterActionEvent(ch chan<- DIDCommAction) error
	RegisterMsgEvent(ch chan<- StateMsg) error
	UnregisterMsgEvent(ch chan<- StateMsg) error
}

// AutoExecuteActionEvent continues every action received on ch until ch is closed. Run it in a goroutine:
//
//	actions := make(chan service.DIDCommAction)
//	err = svc.RegisterActionEvent(actions)
//	go service.AutoExecuteActionEvent(actions)
func AutoExecuteActionEvent(ch chan DIDCommAction) {
	for action := range ch {
		action.Continue(&Empty{})
	}
}

// Empty is the argument of Continue when there are no options.
type Empty struct{}
