/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/connection"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

type mockProvider struct {
	storage storage.Provider
}

func (p *mockProvider) StorageProvider() storage.Provider { return p.storage }

func TestOperation(t *testing.T) {
	op, err := New(&mockProvider{storage: mem.NewProvider()})
	require.NoError(t, err)
	require.Len(t, op.GetRESTHandlers(), 4)

	buf, code, err := sendRequestToHandler(handlerLookup(t, op, OperationID, http.MethodPost),
		bytes.NewBufferString(`{"connection_id":"c1","service_endpoint":"http://bob.example.com:8080"}`), OperationID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	saved := connection.ConnectionResponse{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &saved))
	require.Equal(t, "c1", saved.Result.ConnectionID)

	path := strings.Replace(ConnectionPath, "{id}", "c1", 1)

	buf, code, err = sendRequestToHandler(handlerLookup(t, op, ConnectionPath, http.MethodGet), nil, path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, buf.String(), "http://bob.example.com:8080")

	buf, code, err = sendRequestToHandler(handlerLookup(t, op, OperationID, http.MethodGet), nil, OperationID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	all := connection.QueryConnectionsResponse{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &all))
	require.Len(t, all.Results, 1)

	_, code, err = sendRequestToHandler(handlerLookup(t, op, ConnectionPath, http.MethodDelete), nil, path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	_, code, err = sendRequestToHandler(handlerLookup(t, op, ConnectionPath, http.MethodGet), nil, path)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, code)

	_, code, err = sendRequestToHandler(handlerLookup(t, op, ConnectionPath, http.MethodDelete),
		bytes.NewBufferString(`[]`), path)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, code)

	_, code, err = sendRequestToHandler(handlerLookup(t, op, OperationID, http.MethodPost),
		bytes.NewBufferString(`{"service_endpoint":"not a url"}`), OperationID)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, code)
}

func handlerLookup(t *testing.T, op *Operation, lookup, method string) rest.Handler {
	t.Helper()

	for _, h := range op.GetRESTHandlers() {
		if h.Path() == lookup && h.Method() == method {
			return h
		}
	}

	require.Fail(t, "unable to find handler")

	return nil
}

// sendRequestToHandler reads response from given http handle func.
func sendRequestToHandler(handler rest.Handler, requestBody io.Reader, path string) (*bytes.Buffer, int, error) {
	req, err := http.NewRequest(handler.Method(), path, requestBody)
	if err != nil {
		return nil, 0, err
	}

	router := mux.NewRouter()

	router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())

	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	return rr.Body, rr.Code, nil
}
