/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attribute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	// StoreName is the store held credentials and received presentations are kept in.
	StoreName = "attribute_credentials"

	tagKind = "kind"
	tagName = "name"

	kindCredential   = "credential"
	kindPresentation = "presentation"

	presentationKeyPrefix = "presentation_"
)

// ErrCredentialNotFound is returned when a credential is not in the store.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore keeps the attribute credentials an agent holds and the presentations it verified.
type CredentialStore struct {
	store storage.Store
}

// NewCredentialStore opens the credential store of the provider.
func NewCredentialStore(p storage.Provider) (*CredentialStore, error) {
	store, err := p.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	err = p.SetStoreConfig(StoreName, storage.StoreConfiguration{TagNames: []string{tagKind, tagName}})
	if err != nil {
		return nil, fmt.Errorf("set credential store config: %w", err)
	}

	return &CredentialStore{store: store}, nil
}

// SupportsFormat tells whether payloads of the format can be saved.
func (s *CredentialStore) SupportsFormat(format string) bool {
	return format == Format
}

// SaveCredential verifies and stores a received credential under its id. An empty name defaults to the id.
func (s *CredentialStore) SaveCredential(_ context.Context, name string, raw []byte) error {
	cred, err := parseCredential(raw)
	if err != nil {
		return err
	}

	if name == "" {
		name = cred.ID
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	err = s.store.Put(cred.ID, data,
		storage.Tag{Name: tagKind, Value: kindCredential},
		storage.Tag{Name: tagName, Value: name},
	)
	if err != nil {
		return fmt.Errorf("save credential %s: %w", cred.ID, err)
	}

	logger.Debugf("saved credential %s as %q", cred.ID, name)

	return nil
}

// SavePresentation stores a verified presentation under the name.
func (s *CredentialStore) SavePresentation(_ context.Context, name string, raw []byte) error {
	if name == "" {
		return errors.New("presentation name is mandatory")
	}

	pres := &Presentation{}
	if err := json.Unmarshal(raw, pres); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}

	err := s.store.Put(presentationKeyPrefix+name, raw,
		storage.Tag{Name: tagKind, Value: kindPresentation},
		storage.Tag{Name: tagName, Value: name},
	)
	if err != nil {
		return fmt.Errorf("save presentation %s: %w", name, err)
	}

	return nil
}

// Get returns a held credential.
func (s *CredentialStore) Get(_ context.Context, id string) (*Credential, error) {
	raw, err := s.store.Get(id)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}

	cred := &Credential{}
	if err = json.Unmarshal(raw, cred); err != nil {
		return nil, fmt.Errorf("unmarshal credential %s: %w", id, err)
	}

	return cred, nil
}

// GetPresentation returns a saved presentation.
func (s *CredentialStore) GetPresentation(_ context.Context, name string) (*Presentation, error) {
	raw, err := s.store.Get(presentationKeyPrefix + name)
	if err != nil {
		return nil, fmt.Errorf("get presentation %s: %w", name, err)
	}

	pres := &Presentation{}

	return pres, json.Unmarshal(raw, pres)
}

// List returns the held credentials ordered by id.
func (s *CredentialStore) List(_ context.Context) ([]*Credential, error) {
	iter, err := s.store.Query(tagKind + ":" + kindCredential)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}

	defer storage.Close(iter, logger)

	var creds []*Credential

	more, err := iter.Next()

	for ; err == nil && more; more, err = iter.Next() {
		raw, e := iter.Value()
		if e != nil {
			return nil, fmt.Errorf("credential iterator value: %w", e)
		}

		cred := &Credential{}
		if e = json.Unmarshal(raw, cred); e != nil {
			return nil, fmt.Errorf("unmarshal credential: %w", e)
		}

		creds = append(creds, cred)
	}

	if err != nil {
		return nil, fmt.Errorf("credential iterator: %w", err)
	}

	slices.SortFunc(creds, func(a, b *Credential) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}

		return 0
	})

	return creds, nil
}
