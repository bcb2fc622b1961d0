/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "sync"

// Message fans state messages out to the registered channels. The channel list is replaced on every
// change, so Notify never holds the lock while a receiver is slow.
type Message struct {
	mu     sync.Mutex
	events []chan<- StateMsg
}

// MsgEvents returns the registered channels.
func (m *Message) MsgEvents() []chan<- StateMsg {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.events
}

// RegisterMsgEvent adds ch to the receivers of state messages. Unlike action events, no answer is expected.
func (m *Message) RegisterMsgEvent(ch chan<- StateMsg) error {
	if ch == nil {
		return ErrNilChannel
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]chan<- StateMsg, 0, len(m.events)+1)
	m.events = append(append(events, m.events...), ch)

	return nil
}

// UnregisterMsgEvent removes every registration of ch.
func (m *Message) UnregisterMsgEvent(ch chan<- StateMsg) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []chan<- StateMsg

	for _, registered := range m.events {
		if registered != ch {
			events = append(events, registered)
		}
	}

	m.events = events

	return nil
}

// Notify delivers msg to every registered channel, in registration order.
func (m *Message) Notify(msg StateMsg) {
	for _, ch := range m.MsgEvents() {
		ch <- msg
	}
}
