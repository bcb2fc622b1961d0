/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// StateNameCompleted is the state of a connection messages can be delivered on.
const StateNameCompleted = "completed"

// NewRecorder returns new connection recorder.
// Recorder is read-write connection store which provides
// write features on top query features from Lookup.
func NewRecorder(p provider) (*Recorder, error) {
	lookup, err := NewLookup(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create new connection recorder : %w", err)
	}

	return &Recorder{lookup}, nil
}

// Recorder is read-write connection store.
type Recorder struct {
	*Lookup
}

// SaveConnectionRecord saves given connection records in underlying store. A record without an ID gets one.
func (c *Recorder) SaveConnectionRecord(record *Record) error {
	if err := isValidConnection(record); err != nil {
		return fmt.Errorf("validation failed while saving connection record: %w", err)
	}

	if record.ConnectionID == "" {
		record.ConnectionID = uuid.New().String()
	}

	if record.State == "" {
		record.State = StateNameCompleted
	}

	return marshalAndSave(getConnectionKeyPrefix()(record.ConnectionID), record, c.store,
		storage.Tag{Name: connIDKeyPrefix})
}

// RemoveConnection removes the connection record.
func (c *Recorder) RemoveConnection(connectionID string) error {
	if connectionID == "" {
		return errors.New(errMsgInvalidKey)
	}

	if _, err := c.GetConnectionRecord(connectionID); err != nil {
		return err
	}

	if err := c.store.Delete(getConnectionKeyPrefix()(connectionID)); err != nil {
		return fmt.Errorf("remove connection %s: %w", connectionID, err)
	}

	return nil
}

func marshalAndSave(k string, v interface{}, store storage.Store, tags ...storage.Tag) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save connection record: %w", err)
	}

	return store.Put(k, bytes, tags...)
}

// isValidConnection validates connection record.
func isValidConnection(r *Record) error {
	if r == nil {
		return errors.New("connection record is nil")
	}

	endpoint, err := url.Parse(r.ServiceEndPoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return fmt.Errorf("invalid service endpoint %q", r.ServiceEndPoint)
	}

	return nil
}
