/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "sync"

// Action holds the one channel the application answers protocol messages on.
type Action struct {
	mu    sync.RWMutex
	event chan<- DIDCommAction
}

// ActionEvent returns the registered channel, or nil.
func (a *Action) ActionEvent() chan<- DIDCommAction {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.event
}

// Trigger hands the action to the application. It returns false when no channel is registered, in which case
// the message stays pending until it is answered through the service API.
func (a *Action) Trigger(action DIDCommAction) bool {
	ch := a.ActionEvent()
	if ch == nil {
		return false
	}

	ch <- action

	return true
}

// RegisterActionEvent sets the action channel. Only one channel can be registered at a time.
func (a *Action) RegisterActionEvent(ch chan<- DIDCommAction) error {
	if ch == nil {
		return ErrNilChannel
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.event != nil {
		return ErrChannelRegistered
	}

	a.event = ch

	return nil
}

// UnregisterActionEvent removes ch, which must be the registered channel.
func (a *Action) UnregisterActionEvent(ch chan<- DIDCommAction) error {
	if ch == nil {
		return ErrNilChannel
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.event != ch {
		return ErrInvalidChannel
	}

	a.event = nil

	return nil
}
