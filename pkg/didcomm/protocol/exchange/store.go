/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	// RecordStoreName is the store exchange records are kept in.
	RecordStoreName = "exchange_records"
	// MessageStoreName is the store stage messages are kept in.
	MessageStoreName = "exchange_messages"

	recordKeyPrefix = "record_"
	indexKeyPrefix  = "thread_"
	messageKeyFmt   = "message_%s_%s_%s"

	tagThreadID   = "thid"
	tagConnection = "connection"
	tagRole       = "role"
	tagState      = "state"
	tagProtocol   = "protocol"
	tagRecordID   = "record"
)

// MessageRole tells whether a stored stage message was sent or received by this agent.
type MessageRole string

const (
	// Sender marks messages this agent produced.
	Sender MessageRole = "sender"
	// Receiver marks messages this agent consumed.
	Receiver MessageRole = "receiver"
)

// RecordFilter narrows Repository.Query. Empty fields match anything.
type RecordFilter struct {
	Protocol string
	ThreadID string
	Role     Role
	State    State
}

// Repository persists exchange records.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	// FindByThreadAndConnection returns the record of the role for the thread. A record that was
	// created without a connection matches any connection.
	FindByThreadAndConnection(ctx context.Context, threadID, connectionID string, role Role) (*Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter RecordFilter) ([]*Record, error)
}

// StorageRepository is a Repository over an spi/storage provider.
type StorageRepository struct {
	store storage.Store
	now   func() time.Time
}

// NewStorageRepository opens the record store of the provider.
func NewStorageRepository(p storage.Provider) (*StorageRepository, error) {
	store, err := p.OpenStore(RecordStoreName)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	err = p.SetStoreConfig(RecordStoreName, storage.StoreConfiguration{
		TagNames: []string{tagThreadID, tagConnection, tagRole, tagState, tagProtocol},
	})
	if err != nil {
		return nil, fmt.Errorf("set record store config: %w", err)
	}

	return &StorageRepository{store: store, now: time.Now}, nil
}

// Save stores a new record. It fails with ErrDuplicateRecord when the id or the
// (thread, connection, role) key is taken.
func (r *StorageRepository) Save(_ context.Context, rec *Record) error {
	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	rec.UpdatedAt = now

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = r.store.Batch([]storage.Operation{
		{
			Key:        recordKeyPrefix + rec.ID,
			Value:      raw,
			Tags:       recordTags(rec),
			PutOptions: &storage.PutOptions{IsNewKey: true},
		},
		{
			Key:        indexKey(rec),
			Value:      []byte(rec.ID),
			PutOptions: &storage.PutOptions{IsNewKey: true},
		},
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("%w: thread %s role %s", ErrDuplicateRecord, rec.ThreadID, rec.Role)
	}

	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	return nil
}

// Update overwrites an existing record and moves its index when the connection got bound.
func (r *StorageRepository) Update(ctx context.Context, rec *Record) error {
	stored, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}

	rec.UpdatedAt = r.now().UTC()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ops := []storage.Operation{{Key: recordKeyPrefix + rec.ID, Value: raw, Tags: recordTags(rec)}}

	if oldKey, newKey := indexKey(stored), indexKey(rec); oldKey != newKey {
		ops = append(ops,
			storage.Operation{Key: oldKey},
			storage.Operation{Key: newKey, Value: []byte(rec.ID), PutOptions: &storage.PutOptions{IsNewKey: true}},
		)
	}

	err = r.store.Batch(ops)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("%w: thread %s role %s", ErrDuplicateRecord, rec.ThreadID, rec.Role)
	}

	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	return nil
}

// FindByThreadAndConnection implements Repository.
func (r *StorageRepository) FindByThreadAndConnection(ctx context.Context, threadID, connectionID string,
	role Role) (*Record, error) {
	records, err := r.Query(ctx, RecordFilter{ThreadID: threadID, Role: role})
	if err != nil {
		return nil, err
	}

	var unbound *Record

	for _, rec := range records {
		if rec.ConnectionID == connectionID {
			return rec, nil
		}

		if rec.ConnectionID == "" && unbound == nil {
			unbound = rec
		}
	}

	if unbound != nil {
		return unbound, nil
	}

	return nil, fmt.Errorf("%w: thread %s role %s", ErrRecordNotFound, threadID, role)
}

// GetByID implements Repository.
func (r *StorageRepository) GetByID(_ context.Context, id string) (*Record, error) {
	raw, err := r.store.Get(recordKeyPrefix + id)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	return rec, nil
}

// Delete removes the record and its index entry.
func (r *StorageRepository) Delete(ctx context.Context, id string) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return r.store.Batch([]storage.Operation{{Key: recordKeyPrefix + rec.ID}, {Key: indexKey(rec)}})
}

// Query implements Repository.
func (r *StorageRepository) Query(_ context.Context, filter RecordFilter) ([]*Record, error) {
	iter, err := r.store.Query(filter.expression())
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	defer storage.Close(iter, logger)

	var records []*Record

	for {
		more, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate records: %w", err)
		}

		if !more {
			return records, nil
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		rec := &Record{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}

		records = append(records, rec)
	}
}

func (f RecordFilter) expression() string {
	var terms []string

	if f.Protocol != "" {
		terms = append(terms, tagProtocol+":"+encodeTag(f.Protocol))
	}

	if f.ThreadID != "" {
		terms = append(terms, tagThreadID+":"+encodeTag(f.ThreadID))
	}

	if f.Role != "" {
		terms = append(terms, tagRole+":"+string(f.Role))
	}

	if f.State != "" {
		terms = append(terms, tagState+":"+string(f.State))
	}

	if len(terms) == 0 {
		return tagProtocol
	}

	return strings.Join(terms, "&&")
}

func recordTags(rec *Record) []storage.Tag {
	tags := []storage.Tag{
		{Name: tagProtocol, Value: encodeTag(rec.Protocol)},
		{Name: tagThreadID, Value: encodeTag(rec.ThreadID)},
		{Name: tagRole, Value: string(rec.Role)},
		{Name: tagState, Value: string(rec.State)},
	}

	if rec.ConnectionID != "" {
		tags = append(tags, storage.Tag{Name: tagConnection, Value: encodeTag(rec.ConnectionID)})
	}

	return tags
}

func indexKey(rec *Record) string {
	return indexKeyPrefix + encodeTag(rec.ThreadID+"|"+rec.ConnectionID+"|"+string(rec.Role))
}

// encodeTag keeps ids such as DIDs and URIs, which contain ':', usable in tag queries.
func encodeTag(v string) string {
	return base58.Encode([]byte(v))
}

// MessageStore keeps the latest stage message of each (record, stage, role).
type MessageStore struct {
	store storage.Store
}

// NewMessageStore opens the message store of the provider.
func NewMessageStore(p storage.Provider) (*MessageStore, error) {
	store, err := p.OpenStore(MessageStoreName)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}

	err = p.SetStoreConfig(MessageStoreName, storage.StoreConfiguration{TagNames: []string{tagRecordID}})
	if err != nil {
		return nil, fmt.Errorf("set message store config: %w", err)
	}

	return &MessageStore{store: store}, nil
}

// Save stores the message, replacing the previous one of the same stage and role.
func (s *MessageStore) Save(_ context.Context, recordID string, role MessageRole, msg *StageMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stage message: %w", err)
	}

	err = s.store.Put(messageKey(recordID, msg.Stage, role), raw, storage.Tag{Name: tagRecordID, Value: recordID})
	if err != nil {
		return fmt.Errorf("save stage message: %w", err)
	}

	return nil
}

// Get returns the stored message or ErrMessageNotFound.
func (s *MessageStore) Get(_ context.Context, recordID string, stage Stage, role MessageRole) (*StageMessage, error) {
	raw, err := s.store.Get(messageKey(recordID, stage, role))
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s %s of %s", ErrMessageNotFound, role, stage, recordID)
	}

	if err != nil {
		return nil, fmt.Errorf("get stage message: %w", err)
	}

	msg := &StageMessage{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("unmarshal stage message: %w", err)
	}

	return msg, nil
}

// StoredMessage is a stage message together with its direction.
type StoredMessage struct {
	Role    MessageRole
	Message *StageMessage
}

// List returns every stored message of a record.
func (s *MessageStore) List(_ context.Context, recordID string) ([]StoredMessage, error) {
	iter, err := s.store.Query(tagRecordID + ":" + recordID)
	if err != nil {
		return nil, fmt.Errorf("query stage messages: %w", err)
	}

	defer storage.Close(iter, logger)

	var result []StoredMessage

	for {
		more, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate stage messages: %w", err)
		}

		if !more {
			return result, nil
		}

		key, err := iter.Key()
		if err != nil {
			return nil, fmt.Errorf("read stage message key: %w", err)
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read stage message: %w", err)
		}

		msg := &StageMessage{}
		if err := json.Unmarshal(raw, msg); err != nil {
			return nil, fmt.Errorf("unmarshal stage message: %w", err)
		}

		role := Receiver
		if strings.HasSuffix(key, "_"+string(Sender)) {
			role = Sender
		}

		result = append(result, StoredMessage{Role: role, Message: msg})
	}
}

// DeleteAll removes every stored message of a record.
func (s *MessageStore) DeleteAll(ctx context.Context, recordID string) error {
	messages, err := s.List(ctx, recordID)
	if err != nil {
		return err
	}

	ops := make([]storage.Operation, 0, len(messages))
	for _, m := range messages {
		ops = append(ops, storage.Operation{Key: messageKey(recordID, m.Message.Stage, m.Role)})
	}

	if len(ops) == 0 {
		return nil
	}

	return s.store.Batch(ops)
}

func messageKey(recordID string, stage Stage, role MessageRole) string {
	return fmt.Sprintf(messageKeyFmt, recordID, stage, role)
}
