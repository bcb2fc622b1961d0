/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import "context"

// Handler describes middleware interface.
type Handler interface {
	Handle(metadata Metadata) error
}

// Middleware function receives next handler and returns handler that needs to be executed.
type Middleware func(next Handler) Handler

// HandlerFunc is a helper type which implements the middleware Handler interface.
type HandlerFunc func(metadata Metadata) error

// Handle implements function to satisfy the Handler interface.
func (hf HandlerFunc) Handle(metadata Metadata) error {
	return hf(metadata)
}

// Metadata provides helpful information for the processing.
type Metadata interface {
	Context() context.Context
	// Record is the exchange record the message belongs to.
	Record() *Record
	// Message is the received message that leads to the state, nil when there is none.
	Message() *StageMessage
	// StateName is the state being entered.
	StateName() string
	// Properties holds the event properties and the ones given to the operation.
	Properties() map[string]interface{}
}

// nolint:gochecknoglobals
var initialHandler = HandlerFunc(func(_ Metadata) error {
	return nil
})

type metadata struct {
	ctx        context.Context
	record     *Record
	message    *StageMessage
	stateName  string
	properties map[string]interface{}
}

func newMetadata(ctx context.Context, rec *Record, msg *StageMessage, state State,
	props map[string]interface{}) *metadata {
	all := NewProperties(rec, nil).All()
	for k, v := range props {
		all[k] = v
	}

	return &metadata{ctx: ctx, record: rec, message: msg, stateName: string(state), properties: all}
}

func (m *metadata) Context() context.Context {
	return m.ctx
}

func (m *metadata) Record() *Record {
	return m.record
}

func (m *metadata) Message() *StageMessage {
	return m.message
}

func (m *metadata) StateName() string {
	return m.stateName
}

func (m *metadata) Properties() map[string]interface{} {
	return m.properties
}
