/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage defines the key-value store contract used to persist exchange records and stage messages.
package storage

import (
	"errors"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

var (
	// ErrStoreNotFound is returned when a store is not found.
	ErrStoreNotFound = errors.New("store not found")
	// ErrDataNotFound is returned when data is not found.
	ErrDataNotFound = errors.New("data not found")
	// ErrDuplicateKey is returned by Store.Batch when a put marked IsNewKey hits an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// StoreConfiguration represents the configuration of a store.
// TagNames lists the tag names a store can be queried by.
type StoreConfiguration struct {
	TagNames []string `json:"tagNames,omitempty"`
}

// QueryOptions represents options for a Query call.
type QueryOptions struct {
	// PageSize is a hint for how many results the iterator fetches at a time.
	PageSize int
}

// QueryOption sets an option for a Query call.
type QueryOption func(opts *QueryOptions)

// WithPageSize sets the page size hint of a query.
func WithPageSize(size int) QueryOption {
	return func(opts *QueryOptions) {
		opts.PageSize = size
	}
}

// Tag represents a Name + Value pair that can be associated with a key + value pair for querying later.
// Neither Name nor Value may contain a ':' character.
type Tag struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// PutOptions represents options for a Put Operation.
type PutOptions struct {
	// IsNewKey asks the store to fail with ErrDuplicateKey if the key already exists.
	IsNewKey bool `json:"isNewKey,omitempty"`
}

// Operation represents an operation to be performed in the Batch method.
// A nil Value means delete.
type Operation struct {
	Key        string      `json:"key,omitempty"`
	Value      []byte      `json:"value,omitempty"`
	Tags       []Tag       `json:"tags,omitempty"`
	PutOptions *PutOptions `json:"putOptions,omitempty"`
}

// Provider represents a storage provider.
type Provider interface {
	// OpenStore opens a store with the given name and returns a handle.
	// Opening an existing store returns the same data.
	OpenStore(name string) (Store, error)

	// SetStoreConfig sets the configuration on a store. The store must be opened first.
	SetStoreConfig(name string, config StoreConfiguration) error

	// GetStoreConfig gets the current store configuration.
	GetStoreConfig(name string) (StoreConfiguration, error)

	// Close closes all stores created under this store provider.
	Close() error
}

// Store represents a storage database.
type Store interface {
	// Put stores the key + value pair along with the (optional) tags.
	Put(key string, value []byte, tags ...Tag) error

	// Get fetches the value associated with the given key.
	// If key cannot be found, then an error wrapping ErrDataNotFound will be returned.
	Get(key string) ([]byte, error)

	// GetTags fetches all tags associated with the given key.
	GetTags(key string) ([]Tag, error)

	// Query returns all data that satisfies the expression.
	// Expression format is TagName:TagValue, and expressions can be joined with &&.
	// If TagValue is not provided, all data with a tag named TagName is returned.
	Query(expression string, options ...QueryOption) (Iterator, error)

	// Delete deletes the key + value pair (and all tags) associated with key.
	Delete(key string) error

	// Batch performs multiple Put and/or Delete operations in order.
	Batch(operations []Operation) error

	// Close closes this store object.
	Close() error
}

// Iterator allows for iteration over a collection of entries in a store.
type Iterator interface {
	// Next moves the pointer to the next entry in the iterator. It returns false if there are no more entries.
	Next() (bool, error)

	// Key returns the key of the current entry.
	Key() (string, error)

	// Value returns the value of the current entry.
	Value() ([]byte, error)

	// Tags returns the tags associated with the key of the current entry.
	Tags() ([]Tag, error)

	// Close closes this iterator object.
	Close() error
}

// Close closes iterator and logs a failure.
func Close(iterator Iterator, logger log.Logger) {
	if err := iterator.Close(); err != nil {
		logger.Errorf("failed to close iterator: %s", err.Error())
	}
}
