/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is an in-memory spi/storage provider. It backs tests and the agent's "mem" database type.
package mem

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	spi "github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	invalidTagName  = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue = `"%s" is an invalid tag value since it contains one or more ':' characters`
)

var (
	errEmptyKey                     = errors.New("key cannot be empty")
	errInvalidQueryExpressionFormat = errors.New("invalid expression format. " +
		"it must be in the following format: TagName:TagValue")
	errIteratorExhausted = errors.New("iterator is exhausted")
)

// Provider is an in-memory implementation of spi.Provider.
type Provider struct {
	dbs  map[string]*memStore
	lock sync.RWMutex
}

// NewProvider instantiates a new in-memory storage Provider.
func NewProvider() *Provider {
	return &Provider{dbs: make(map[string]*memStore)}
}

// OpenStore opens a store with the given name, creating it on first use. Names are case insensitive.
func (p *Provider) OpenStore(name string) (spi.Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store name cannot be empty")
	}

	storeName := strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if store, ok := p.dbs[storeName]; ok {
		return store, nil
	}

	store := &memStore{name: storeName, db: make(map[string]dbEntry), close: p.removeStore}
	p.dbs[storeName] = store

	return store, nil
}

// SetStoreConfig sets the configuration on an open store.
func (p *Provider) SetStoreConfig(name string, config spi.StoreConfiguration) error {
	for _, tagName := range config.TagNames {
		if strings.Contains(tagName, ":") {
			return fmt.Errorf(invalidTagName, tagName)
		}
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	store, ok := p.dbs[strings.ToLower(name)]
	if !ok {
		return spi.ErrStoreNotFound
	}

	store.config = config

	return nil
}

// GetStoreConfig gets the configuration of an open store.
func (p *Provider) GetStoreConfig(name string) (spi.StoreConfiguration, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	store, ok := p.dbs[strings.ToLower(name)]
	if !ok {
		return spi.StoreConfiguration{}, spi.ErrStoreNotFound
	}

	return store.config, nil
}

// Close drops every store created by this provider.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.dbs = make(map[string]*memStore)

	return nil
}

func (p *Provider) removeStore(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.dbs, name)
}

type dbEntry struct {
	value []byte
	tags  []spi.Tag
}

type memStore struct {
	sync.RWMutex
	name   string
	db     map[string]dbEntry
	config spi.StoreConfiguration
	close  func(name string)
}

func (m *memStore) Put(key string, value []byte, tags ...spi.Tag) error {
	if err := validateEntry(key, value, tags); err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()

	m.db[key] = newEntry(value, tags)

	return nil
}

func (m *memStore) Get(key string) ([]byte, error) {
	entry, err := m.entry(key)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), entry.value...), nil
}

func (m *memStore) GetTags(key string) ([]spi.Tag, error) {
	entry, err := m.entry(key)
	if err != nil {
		return nil, err
	}

	return append([]spi.Tag(nil), entry.tags...), nil
}

func (m *memStore) entry(key string) (dbEntry, error) {
	if key == "" {
		return dbEntry{}, errEmptyKey
	}

	m.RLock()
	defer m.RUnlock()

	entry, ok := m.db[key]
	if !ok {
		return dbEntry{}, spi.ErrDataNotFound
	}

	return entry, nil
}

// Query supports TagName and TagName:TagValue terms joined with &&.
// Results are ordered by key.
func (m *memStore) Query(expression string, _ ...spi.QueryOption) (spi.Iterator, error) {
	filters, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}

	m.RLock()
	defer m.RUnlock()

	it := &memIterator{}

	for key, entry := range m.db {
		if matchesAll(entry.tags, filters) {
			it.keys = append(it.keys, key)
		}
	}

	sort.Strings(it.keys)

	for _, key := range it.keys {
		it.entries = append(it.entries, m.db[key])
	}

	return it, nil
}

func (m *memStore) Delete(key string) error {
	if key == "" {
		return errEmptyKey
	}

	m.Lock()
	defer m.Unlock()

	delete(m.db, key)

	return nil
}

// Batch applies all operations atomically. A put marked IsNewKey on an existing key fails the whole batch
// with spi.ErrDuplicateKey and nothing is written.
func (m *memStore) Batch(operations []spi.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	m.Lock()
	defer m.Unlock()

	for _, op := range operations {
		if op.Key == "" {
			return errEmptyKey
		}

		if op.Value == nil {
			continue
		}

		if err := validateEntry(op.Key, op.Value, op.Tags); err != nil {
			return err
		}

		if op.PutOptions != nil && op.PutOptions.IsNewKey {
			if _, exists := m.db[op.Key]; exists {
				return fmt.Errorf("key %s: %w", op.Key, spi.ErrDuplicateKey)
			}
		}
	}

	for _, op := range operations {
		if op.Value == nil {
			delete(m.db, op.Key)

			continue
		}

		m.db[op.Key] = newEntry(op.Value, op.Tags)
	}

	return nil
}

// Close removes the store and its data from the provider.
func (m *memStore) Close() error {
	m.close(m.name)

	return nil
}

func newEntry(value []byte, tags []spi.Tag) dbEntry {
	return dbEntry{
		value: append([]byte(nil), value...),
		tags:  append([]spi.Tag(nil), tags...),
	}
}

func validateEntry(key string, value []byte, tags []spi.Tag) error {
	if key == "" {
		return errEmptyKey
	}

	if value == nil {
		return errors.New("value cannot be nil")
	}

	for _, tag := range tags {
		if strings.Contains(tag.Name, ":") {
			return fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, ":") {
			return fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	return nil
}

// tagFilter matches a tag by name, and by value unless anyValue is set.
type tagFilter struct {
	name     string
	value    string
	anyValue bool
}

func parseExpression(expression string) ([]tagFilter, error) {
	if expression == "" {
		return nil, errInvalidQueryExpressionFormat
	}

	var filters []tagFilter

	for _, term := range strings.Split(expression, "&&") {
		parts := strings.Split(term, ":")

		switch len(parts) {
		case 1:
			filters = append(filters, tagFilter{name: parts[0], anyValue: true})
		case 2: //nolint:gomnd
			filters = append(filters, tagFilter{name: parts[0], value: parts[1]})
		default:
			return nil, errInvalidQueryExpressionFormat
		}
	}

	return filters, nil
}

func matchesAll(tags []spi.Tag, filters []tagFilter) bool {
	for _, f := range filters {
		found := false

		for _, tag := range tags {
			if tag.Name == f.name && (f.anyValue || tag.Value == f.value) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// memIterator is a snapshot of the entries matched by a query.
type memIterator struct {
	index   int
	keys    []string
	entries []dbEntry
}

func (m *memIterator) Next() (bool, error) {
	if m.index >= len(m.keys) {
		m.index = len(m.keys) + 1

		return false, nil
	}

	m.index++

	return true, nil
}

func (m *memIterator) current() (int, error) {
	if m.index == 0 || m.index > len(m.keys) {
		return 0, errIteratorExhausted
	}

	return m.index - 1, nil
}

func (m *memIterator) Key() (string, error) {
	i, err := m.current()
	if err != nil {
		return "", err
	}

	return m.keys[i], nil
}

func (m *memIterator) Value() ([]byte, error) {
	i, err := m.current()
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), m.entries[i].value...), nil
}

func (m *memIterator) Tags() ([]spi.Tag, error) {
	i, err := m.current()
	if err != nil {
		return nil, err
	}

	return append([]spi.Tag(nil), m.entries[i].tags...), nil
}

func (m *memIterator) Close() error {
	return nil
}
