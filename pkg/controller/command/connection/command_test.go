/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	storageMocks "github.com/hyperledger/aries-framework-go-exchange/pkg/internal/gomocks/spi/storage"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

type mockProvider struct {
	storage storage.Provider
}

func (p *mockProvider) StorageProvider() storage.Provider { return p.storage }

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failing := storageMocks.NewMockProvider(ctrl)
	failing.EXPECT().OpenStore(gomock.Any()).Return(nil, errors.New("open failed"))

	_, err := New(&mockProvider{storage: failing})
	require.ErrorContains(t, err, "open failed")

	c, err := New(&mockProvider{storage: mem.NewProvider()})
	require.NoError(t, err)
	require.Len(t, c.GetHandlers(), 4)
}

func TestCommand(t *testing.T) {
	c, err := New(&mockProvider{storage: mem.NewProvider()})
	require.NoError(t, err)

	var saved ConnectionResponse

	t.Run("save", func(t *testing.T) {
		var b bytes.Buffer

		cmdErr := c.SaveConnection(&b, bytes.NewBufferString(
			`{"service_endpoint":"https://bob.example.com/didcomm","their_label":"Bob"}`))
		require.NoError(t, cmdErr)
		require.NoError(t, json.Unmarshal(b.Bytes(), &saved))
		require.NotEmpty(t, saved.Result.ConnectionID)
		require.Equal(t, "completed", saved.Result.State)
	})

	t.Run("get", func(t *testing.T) {
		var (
			b      bytes.Buffer
			result ConnectionResponse
		)

		req, err := json.Marshal(&IDArgs{ID: saved.Result.ConnectionID})
		require.NoError(t, err)

		require.NoError(t, c.GetConnection(&b, bytes.NewReader(req)))
		require.NoError(t, json.Unmarshal(b.Bytes(), &result))
		require.Equal(t, "Bob", result.Result.TheirLabel)
	})

	t.Run("query", func(t *testing.T) {
		var (
			b      bytes.Buffer
			result QueryConnectionsResponse
		)

		require.NoError(t, c.QueryConnections(&b, nil))
		require.NoError(t, json.Unmarshal(b.Bytes(), &result))
		require.Len(t, result.Results, 1)
	})

	t.Run("remove", func(t *testing.T) {
		var b bytes.Buffer

		req, err := json.Marshal(&IDArgs{ID: saved.Result.ConnectionID})
		require.NoError(t, err)

		require.NoError(t, c.RemoveConnection(&b, bytes.NewReader(req)))

		cmdErr := c.RemoveConnection(&b, bytes.NewReader(req))
		require.Error(t, cmdErr)
		require.Equal(t, command.NotFoundError, cmdErr.Type())
		require.Equal(t, RemoveConnectionErrorCode, cmdErr.Code())

		cmdErr = c.GetConnection(&b, bytes.NewReader(req))
		require.Error(t, cmdErr)
		require.Equal(t, command.NotFoundError, cmdErr.Type())
	})
}

func TestCommandValidation(t *testing.T) {
	c, err := New(&mockProvider{storage: mem.NewProvider()})
	require.NoError(t, err)

	tests := []struct {
		name string
		exec command.Exec
		req  string
		code command.Code
		err  string
	}{
		{"save bad json", c.SaveConnection, `{`, InvalidRequestErrorCode, "unexpected EOF"},
		{"save no endpoint", c.SaveConnection, `{}`, SaveConnectionErrorCode, "invalid service endpoint"},
		{"get no id", c.GetConnection, `{}`, InvalidRequestErrorCode, errEmptyConnID},
		{"remove bad json", c.RemoveConnection, `[`, InvalidRequestErrorCode, "unexpected EOF"},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			var b bytes.Buffer

			cmdErr := tc.exec(&b, bytes.NewBufferString(tc.req))
			require.Error(t, cmdErr)
			require.Equal(t, command.ValidationError, cmdErr.Type())
			require.Equal(t, tc.code, cmdErr.Code())
			require.Contains(t, cmdErr.Error(), tc.err)
		})
	}
}
