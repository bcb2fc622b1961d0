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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

type mockProvider struct {
	store storage.Provider
}

func (p *mockProvider) StorageProvider() storage.Provider { return p.store }

type failingProvider struct {
	storage.Provider
	openErr   error
	configErr error
}

func (p *failingProvider) OpenStore(name string) (storage.Store, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}

	return p.Provider.OpenStore(name)
}

func (p *failingProvider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	if p.configErr != nil {
		return p.configErr
	}

	return p.Provider.SetStoreConfig(name, config)
}

func TestNewRecorder(t *testing.T) {
	t.Run("open store error", func(t *testing.T) {
		_, err := NewRecorder(&mockProvider{store: &failingProvider{
			Provider: mem.NewProvider(),
			openErr:  errors.New("open"),
		}})
		require.ErrorContains(t, err, "failed to open permanent store")
	})

	t.Run("store config error", func(t *testing.T) {
		_, err := NewRecorder(&mockProvider{store: &failingProvider{
			Provider:  mem.NewProvider(),
			configErr: errors.New("config"),
		}})
		require.ErrorContains(t, err, "failed to set store config")
	})
}

func TestRecorder(t *testing.T) {
	recorder, err := NewRecorder(&mockProvider{store: mem.NewProvider()})
	require.NoError(t, err)

	t.Run("save and get", func(t *testing.T) {
		rec := &Record{ConnectionID: "conn-1", TheirLabel: "bob", ServiceEndPoint: "http://bob.example.com:8080"}
		require.NoError(t, recorder.SaveConnectionRecord(rec))

		got, err := recorder.GetConnectionRecord("conn-1")
		require.NoError(t, err)
		require.Equal(t, "bob", got.TheirLabel)
		require.Equal(t, StateNameCompleted, got.State)
	})

	t.Run("generates connection id", func(t *testing.T) {
		rec := &Record{ServiceEndPoint: "https://carol.example.com/didcomm"}
		require.NoError(t, recorder.SaveConnectionRecord(rec))
		require.NotEmpty(t, rec.ConnectionID)

		records, err := recorder.QueryConnectionRecords()
		require.NoError(t, err)
		require.Len(t, records, 2)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		err := recorder.SaveConnectionRecord(&Record{ConnectionID: "conn-2", ServiceEndPoint: "bob"})
		require.ErrorContains(t, err, "invalid service endpoint")

		require.ErrorContains(t, recorder.SaveConnectionRecord(nil), "connection record is nil")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := recorder.GetConnectionRecord("unknown")
		require.ErrorIs(t, err, ErrConnectionNotFound)

		_, err = recorder.GetConnectionRecord("")
		require.EqualError(t, err, errMsgInvalidKey)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, recorder.RemoveConnection("conn-1"))
		require.ErrorIs(t, recorder.RemoveConnection("conn-1"), ErrConnectionNotFound)
		require.EqualError(t, recorder.RemoveConnection(""), errMsgInvalidKey)

		records, err := recorder.QueryConnectionRecords()
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}
