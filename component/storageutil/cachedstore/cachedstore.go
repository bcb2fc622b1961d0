/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cachedstore puts an LRU read cache in front of any spi/storage provider.
// Writes go to the underlying store first and then refresh the cache. Queries always hit the underlying store.
// A cache miss fills the cache while holding off writes to the store, so a fill never outlives a newer write.
package cachedstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bluele/gcache"

	spi "github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// DefaultCacheSize is the number of entries kept per store when no size is given.
const DefaultCacheSize = 1000

type cachedEntry struct {
	value []byte
	tags  []spi.Tag
}

// Provider wraps a main provider with per-store LRU caches.
type Provider struct {
	main   spi.Provider
	size   int
	stores map[string]*store
	lock   sync.Mutex
}

// NewProvider returns a caching provider over main. A non-positive size uses DefaultCacheSize.
func NewProvider(main spi.Provider, size int) *Provider {
	if size <= 0 {
		size = DefaultCacheSize
	}

	return &Provider{main: main, size: size, stores: map[string]*store{}}
}

// OpenStore opens the store in the main provider and attaches a cache to it.
func (p *Provider) OpenStore(name string) (spi.Store, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	key := strings.ToLower(name)

	if s, ok := p.stores[key]; ok {
		return s, nil
	}

	mainStore, err := p.main.OpenStore(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open store in main provider: %w", err)
	}

	s := &store{
		main:  mainStore,
		cache: gcache.New(p.size).LRU().Build(),
		close: func() {
			p.lock.Lock()
			delete(p.stores, key)
			p.lock.Unlock()
		},
	}
	p.stores[key] = s

	return s, nil
}

// SetStoreConfig delegates to the main provider.
func (p *Provider) SetStoreConfig(name string, config spi.StoreConfiguration) error {
	return p.main.SetStoreConfig(name, config)
}

// GetStoreConfig delegates to the main provider.
func (p *Provider) GetStoreConfig(name string) (spi.StoreConfiguration, error) {
	return p.main.GetStoreConfig(name)
}

// Close drops all caches and closes the main provider.
func (p *Provider) Close() error {
	p.lock.Lock()
	for _, s := range p.stores {
		s.cache.Purge()
	}

	p.stores = map[string]*store{}
	p.lock.Unlock()

	return p.main.Close()
}

type store struct {
	main  spi.Store
	cache gcache.Cache
	close func()
	// fills hold the read side, writes the write side.
	mu sync.RWMutex
}

func (s *store) Put(key string, value []byte, tags ...spi.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.main.Put(key, value, tags...); err != nil {
		return err
	}

	return s.cache.Set(key, &cachedEntry{value: append([]byte(nil), value...), tags: append([]spi.Tag(nil), tags...)})
}

func (s *store) Get(key string) ([]byte, error) {
	entry, err := s.load(key)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), entry.value...), nil
}

func (s *store) GetTags(key string) ([]spi.Tag, error) {
	entry, err := s.load(key)
	if err != nil {
		return nil, err
	}

	return append([]spi.Tag(nil), entry.tags...), nil
}

func (s *store) load(key string) (*cachedEntry, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	if v, err := s.cache.Get(key); err == nil {
		entry, ok := v.(*cachedEntry)
		if ok {
			return entry, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.main.Get(key)
	if err != nil {
		return nil, err
	}

	tags, err := s.main.GetTags(key)
	if err != nil {
		return nil, err
	}

	entry := &cachedEntry{value: value, tags: tags}

	if err := s.cache.Set(key, entry); err != nil {
		return nil, fmt.Errorf("cache %s: %w", key, err)
	}

	return entry, nil
}

func (s *store) Query(expression string, options ...spi.QueryOption) (spi.Iterator, error) {
	return s.main.Query(expression, options...)
}

func (s *store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.main.Delete(key); err != nil {
		return err
	}

	s.cache.Remove(key)

	return nil
}

func (s *store) Batch(operations []spi.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.main.Batch(operations); err != nil {
		return err
	}

	for _, op := range operations {
		s.cache.Remove(op.Key)
	}

	return nil
}

func (s *store) Close() error {
	s.cache.Purge()
	s.close()

	return s.main.Close()
}
