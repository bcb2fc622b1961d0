/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
)

const (
	preState  = "pre_state"
	postState = "post_state"
)

// StateMsg is the notification payload of a state event.
type StateMsg struct {
	ProtocolName string                 `json:"protocol_name"`
	StateID      string                 `json:"state_id"`
	Type         string                 `json:"type"`
	Message      service.DIDCommMsgMap  `json:"message,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// Observer forwards events to a notifier.
type Observer struct {
	notifier notifier
}

// NewObserver returns an observer publishing to the notifier.
func NewObserver(notifier notifier) *Observer {
	return &Observer{notifier: notifier}
}

// RegisterStateMsg publishes the state events read from ch under topic until ch is closed.
func (o *Observer) RegisterStateMsg(topic string, ch <-chan service.StateMsg) {
	go func() {
		for msg := range ch {
			o.notify(topic, toStateMsg(msg))
		}
	}()
}

func (o *Observer) notify(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("observer marshal %s: %v", topic, err)

		return
	}

	if err = o.notifier.Notify(topic, payload); err != nil {
		logger.Errorf("observer notify %s: %v", topic, err)
	}
}

func toStateMsg(msg service.StateMsg) StateMsg {
	typ := postState
	if msg.Type == service.PreState {
		typ = preState
	}

	var props map[string]interface{}
	if msg.Properties != nil {
		props = msg.Properties.All()
	}

	return StateMsg{
		ProtocolName: msg.ProtocolName,
		StateID:      msg.StateID,
		Type:         typ,
		Message:      msg.Msg.Clone(),
		Properties:   props,
	}
}

func newID() string {
	return uuid.New().String()
}
