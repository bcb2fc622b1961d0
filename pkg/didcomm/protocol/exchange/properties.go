/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

const (
	recordIDPropKey     = "record_id"
	threadIDPropKey     = "thread_id"
	connectionIDPropKey = "connection_id"
	rolePropKey         = "role"
	errorPropKey        = "error"
)

// Properties are attached to the state and action events of an exchange.
type Properties struct {
	record *Record
	err    error
}

// NewProperties returns the event properties of a record.
func NewProperties(rec *Record, err error) *Properties {
	return &Properties{record: rec, err: err}
}

// Record of the event.
func (p *Properties) Record() *Record {
	return p.record
}

// RecordID of the event.
func (p *Properties) RecordID() string {
	return p.record.ID
}

// Err is the error that stopped the exchange, if any.
func (p *Properties) Err() error {
	return p.err
}

// All implements service.EventProperties.
func (p *Properties) All() map[string]interface{} {
	props := map[string]interface{}{
		recordIDPropKey: p.record.ID,
		threadIDPropKey: p.record.ThreadID,
		rolePropKey:     string(p.record.Role),
	}

	if p.record.ConnectionID != "" {
		props[connectionIDPropKey] = p.record.ConnectionID
	}

	if p.err != nil {
		props[errorPropKey] = p.err.Error()
	}

	return props
}
