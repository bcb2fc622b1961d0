/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package leveldb is a durable spi/storage provider on top of goleveldb.
//
// Every store is its own LevelDB database under <dbPath>-<storeName>. Values are kept as JSON
// entries with their tags, and each tag is mirrored into an index key so tag queries are prefix scans.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	pathPattern = "%s-%s"

	invalidTagName               = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue              = `"%s" is an invalid tag value since it contains one or more ':' characters`
	invalidQueryExpressionFormat = `"%s" is not in a valid expression format. ` +
		"it must be in the following format: TagName:TagValue"

	sep         = "\x00"
	valuePrefix = "v" + sep
	tagPrefix   = "t" + sep
	configKey   = "c" + sep + "config"
)

var errBlankKey = errors.New("key cannot be blank")

// Provider is a LevelDB implementation of storage.Provider.
type Provider struct {
	dbPath string
	dbs    map[string]*store
	lock   sync.RWMutex
}

type dbEntry struct {
	Value []byte        `json:"value,omitempty"`
	Tags  []storage.Tag `json:"tags,omitempty"`
}

// NewProvider instantiates a Provider rooted at dbPath.
func NewProvider(dbPath string) *Provider {
	return &Provider{dbs: make(map[string]*store), dbPath: dbPath}
}

// OpenStore opens, creating if needed, the database for the given store name.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if name == "" {
		return nil, errors.New("store name cannot be blank")
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if s, ok := p.dbs[name]; ok {
		return s, nil
	}

	db, err := leveldb.OpenFile(fmt.Sprintf(pathPattern, p.dbPath, name), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store %s: %w", name, err)
	}

	s := &store{db: db, name: name, close: p.removeStore}
	p.dbs[name] = s

	return s, nil
}

// SetStoreConfig persists the store configuration inside the store database.
func (p *Provider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	for _, tagName := range config.TagNames {
		if strings.Contains(tagName, ":") {
			return fmt.Errorf(invalidTagName, tagName)
		}
	}

	s, err := p.openStore(name)
	if err != nil {
		return err
	}

	configBytes, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal store configuration: %w", err)
	}

	return s.db.Put([]byte(configKey), configBytes, nil)
}

// GetStoreConfig returns the persisted store configuration.
func (p *Provider) GetStoreConfig(name string) (storage.StoreConfiguration, error) {
	s, err := p.openStore(name)
	if err != nil {
		return storage.StoreConfiguration{}, err
	}

	configBytes, err := s.db.Get([]byte(configKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return storage.StoreConfiguration{}, nil
	}

	if err != nil {
		return storage.StoreConfiguration{}, fmt.Errorf(`failed to get store configuration for "%s": %w`, name, err)
	}

	var config storage.StoreConfiguration

	if err = json.Unmarshal(configBytes, &config); err != nil {
		return storage.StoreConfiguration{}, fmt.Errorf("failed to unmarshal store configuration: %w", err)
	}

	return config, nil
}

// Close closes every store opened by this provider.
func (p *Provider) Close() error {
	p.lock.RLock()

	open := make([]*store, 0, len(p.dbs))
	for _, s := range p.dbs {
		open = append(open, s)
	}

	p.lock.RUnlock()

	for _, s := range open {
		if err := s.Close(); err != nil {
			return fmt.Errorf(`failed to close open store with name "%s": %w`, s.name, err)
		}
	}

	return nil
}

func (p *Provider) openStore(name string) (*store, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	s, ok := p.dbs[strings.ToLower(name)]
	if !ok {
		return nil, storage.ErrStoreNotFound
	}

	return s, nil
}

func (p *Provider) removeStore(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.dbs, name)
}

type store struct {
	// lock serialises writers so index maintenance and IsNewKey checks see a stable view.
	lock  sync.Mutex
	db    *leveldb.DB
	name  string
	close func(name string)
}

func (s *store) Put(key string, value []byte, tags ...storage.Tag) error {
	if value == nil {
		return errors.New("value cannot be nil")
	}

	return s.Batch([]storage.Operation{{Key: key, Value: value, Tags: tags}})
}

func (s *store) Get(key string) ([]byte, error) {
	entry, err := s.entry(key)
	if err != nil {
		return nil, err
	}

	return entry.Value, nil
}

func (s *store) GetTags(key string) ([]storage.Tag, error) {
	entry, err := s.entry(key)
	if err != nil {
		return nil, err
	}

	return entry.Tags, nil
}

func (s *store) entry(key string) (*dbEntry, error) {
	if key == "" {
		return nil, errBlankKey
	}

	raw, err := s.db.Get([]byte(valuePrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrDataNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get DB entry: %w", err)
	}

	entry := &dbEntry{}
	if err = json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retrieved DB entry: %w", err)
	}

	return entry, nil
}

// Query scans the index of the first term and filters the rest against each entry's tags.
func (s *store) Query(expression string, _ ...storage.QueryOption) (storage.Iterator, error) {
	if expression == "" {
		return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
	}

	terms := strings.Split(expression, "&&")
	filters := make([]storage.Tag, 0, len(terms))

	for _, term := range terms {
		parts := strings.Split(term, ":")
		if len(parts) > 2 || parts[0] == "" { //nolint:gomnd
			return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
		}

		f := storage.Tag{Name: parts[0]}
		if len(parts) == 2 { //nolint:gomnd
			f.Value = parts[1]
		}

		filters = append(filters, f)
	}

	keys, err := s.scanIndex(filters[0])
	if err != nil {
		return nil, err
	}

	it := &iterator{store: s}

	for _, key := range keys {
		entry, err := s.entry(key)
		if errors.Is(err, storage.ErrDataNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if matchesAll(entry.Tags, filters[1:]) {
			it.keys = append(it.keys, key)
			it.entries = append(it.entries, entry)
		}
	}

	return it, nil
}

func (s *store) scanIndex(filter storage.Tag) ([]string, error) {
	prefix := tagPrefix + filter.Name + sep
	if filter.Value != "" {
		prefix += filter.Value + sep
	}

	dbIt := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer dbIt.Release()

	seen := map[string]struct{}{}

	var keys []string

	for dbIt.Next() {
		rest := strings.TrimPrefix(string(dbIt.Key()), prefix)

		if filter.Value == "" {
			// rest is <value><sep><key>
			i := strings.Index(rest, sep)
			if i < 0 {
				continue
			}

			rest = rest[i+len(sep):]
		}

		if _, ok := seen[rest]; !ok {
			seen[rest] = struct{}{}
			keys = append(keys, rest)
		}
	}

	if err := dbIt.Error(); err != nil {
		return nil, fmt.Errorf("scan tag index: %w", err)
	}

	sort.Strings(keys)

	return keys, nil
}

func (s *store) Delete(key string) error {
	if key == "" {
		return errBlankKey
	}

	return s.Batch([]storage.Operation{{Key: key}})
}

// Batch writes all operations as one atomic LevelDB batch, keeping the tag index in step.
func (s *store) Batch(operations []storage.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	batch := new(leveldb.Batch)
	// pending tracks keys written earlier in this batch so later operations see them.
	pending := map[string]*dbEntry{}

	for _, op := range operations {
		if err := s.stage(batch, pending, op); err != nil {
			return err
		}
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	return nil
}

func (s *store) stage(batch *leveldb.Batch, pending map[string]*dbEntry, op storage.Operation) error {
	if op.Key == "" {
		return errBlankKey
	}

	previous, ok := pending[op.Key]
	if !ok {
		entry, err := s.entry(op.Key)
		if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
			return err
		}

		previous = entry
	}

	if op.Value != nil && op.PutOptions != nil && op.PutOptions.IsNewKey && previous != nil {
		return fmt.Errorf("key %s: %w", op.Key, storage.ErrDuplicateKey)
	}

	if previous != nil {
		for _, tag := range previous.Tags {
			batch.Delete(indexKey(tag, op.Key))
		}
	}

	if op.Value == nil {
		batch.Delete([]byte(valuePrefix + op.Key))
		pending[op.Key] = nil

		return nil
	}

	for _, tag := range op.Tags {
		if strings.Contains(tag.Name, ":") {
			return fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, ":") {
			return fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	entry := &dbEntry{Value: op.Value, Tags: op.Tags}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal new DB entry: %w", err)
	}

	batch.Put([]byte(valuePrefix+op.Key), raw)

	for _, tag := range op.Tags {
		batch.Put(indexKey(tag, op.Key), nil)
	}

	pending[op.Key] = entry

	return nil
}

func (s *store) Close() error {
	s.close(s.name)

	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}

	return nil
}

func indexKey(tag storage.Tag, key string) []byte {
	return []byte(tagPrefix + tag.Name + sep + tag.Value + sep + key)
}

func matchesAll(tags []storage.Tag, filters []storage.Tag) bool {
	for _, f := range filters {
		found := false

		for _, tag := range tags {
			if tag.Name == f.Name && (f.Value == "" || tag.Value == f.Value) {
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

type iterator struct {
	store   *store
	keys    []string
	entries []*dbEntry
	index   int
}

func (i *iterator) Next() (bool, error) {
	if i.index >= len(i.keys) {
		return false, nil
	}

	i.index++

	return true, nil
}

func (i *iterator) current() (int, error) {
	if i.index == 0 || i.index > len(i.keys) {
		return 0, errors.New("iterator is exhausted")
	}

	return i.index - 1, nil
}

func (i *iterator) Key() (string, error) {
	n, err := i.current()
	if err != nil {
		return "", err
	}

	return i.keys[n], nil
}

func (i *iterator) Value() ([]byte, error) {
	n, err := i.current()
	if err != nil {
		return nil, err
	}

	return i.entries[n].Value, nil
}

func (i *iterator) Tags() ([]storage.Tag, error) {
	n, err := i.current()
	if err != nil {
		return nil, err
	}

	return i.entries[n].Tags, nil
}

func (i *iterator) Close() error {
	return nil
}
