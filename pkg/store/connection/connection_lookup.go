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
	"strings"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	// Namespace is namespace of connection store name.
	Namespace        = "connections"
	keyPattern       = "%s_%s"
	connIDKeyPrefix  = "conn"
	keySeparator     = "_"
	errMsgInvalidKey = "invalid key"
)

// ErrConnectionNotFound is returned when no record exists for a connection ID.
var ErrConnectionNotFound = errors.New("connection not found")

var logger = log.New("aries-framework/store/connection")

// KeyPrefix is prefix builder for storage keys.
type KeyPrefix func(...string) string

type provider interface {
	StorageProvider() storage.Provider
}

// Record contains what the agent knows about a connection: who is on the other end and where
// messages for it are delivered.
type Record struct {
	ConnectionID    string   `json:"connection_id"`
	State           string   `json:"state,omitempty"`
	TheirLabel      string   `json:"their_label,omitempty"`
	TheirDID        string   `json:"their_did,omitempty"`
	MyDID           string   `json:"my_did,omitempty"`
	ServiceEndPoint string   `json:"service_endpoint"`
	RecipientKeys   []string `json:"recipient_keys,omitempty"`
}

// NewLookup returns new connection lookup instance.
// Lookup is read only connection store. It provides connection record related query features.
func NewLookup(p provider) (*Lookup, error) {
	store, err := p.StorageProvider().OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open permanent store to create new connection lookup: %w", err)
	}

	err = p.StorageProvider().SetStoreConfig(Namespace, storage.StoreConfiguration{TagNames: []string{connIDKeyPrefix}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store config in permanent store: %w", err)
	}

	return &Lookup{store: store}, nil
}

// Lookup takes care of connection related persistence features.
type Lookup struct {
	store storage.Store
}

// GetConnectionRecord return connection record based on the connection ID.
func (c *Lookup) GetConnectionRecord(connectionID string) (*Record, error) {
	if connectionID == "" {
		return nil, errors.New(errMsgInvalidKey)
	}

	var rec Record

	err := getAndUnmarshal(getConnectionKeyPrefix()(connectionID), &rec, c.store)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// QueryConnectionRecords returns all connection records found in underlying store.
func (c *Lookup) QueryConnectionRecords() ([]*Record, error) {
	itr, err := c.store.Query(connIDKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query permanent store: %w", err)
	}

	defer storage.Close(itr, logger)

	var records []*Record

	more, err := itr.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to get next set of data from permanent storage iterator: %w", err)
	}

	for more {
		value, err := itr.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to get value from iterator: %w", err)
		}

		var record Record

		if err = json.Unmarshal(value, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
		}

		records = append(records, &record)

		more, err = itr.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to get next set of data from permanent storage iterator: %w", err)
		}
	}

	return records, nil
}

func getAndUnmarshal(key string, target interface{}, store storage.Store) error {
	bytes, err := store.Get(key)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, target)
}

// getConnectionKeyPrefix key prefix for connection record persisted.
func getConnectionKeyPrefix() KeyPrefix {
	return func(key ...string) string {
		return fmt.Sprintf(keyPattern, connIDKeyPrefix, strings.Join(key, keySeparator))
	}
}
