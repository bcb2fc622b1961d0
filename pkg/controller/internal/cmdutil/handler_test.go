/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
)

func echo(rw io.Writer, req io.Reader) command.Error {
	if _, err := io.Copy(rw, req); err != nil {
		return command.NewExecuteError(command.UnknownStatus, err)
	}

	return nil
}

func serve(body, path string) *httptest.ResponseRecorder {
	h := NewHTTPHandler("/records/{record_id}", http.MethodPost, func(rw http.ResponseWriter, req *http.Request) {
		ExecuteWithVars(echo, command.Code(1), rw, req, "record_id")
	})

	router := mux.NewRouter()
	router.HandleFunc(h.Path(), h.Handle()).Methods(h.Method())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))

	return rr
}

func TestExecuteWithVars(t *testing.T) {
	t.Run("route variable merged into the body", func(t *testing.T) {
		rr := serve(`{"reason":"no","record_id":"ignored"}`, "/records/r1")
		require.Equal(t, http.StatusOK, rr.Code)

		args := map[string]string{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &args))
		require.Equal(t, map[string]string{"reason": "no", "record_id": "r1"}, args)
	})

	t.Run("empty body", func(t *testing.T) {
		rr := serve("", "/records/r2")
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"record_id":"r2"}`, rr.Body.String())
	})

	t.Run("body is not an object", func(t *testing.T) {
		rr := serve(`["r3"]`, "/records/r3")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Contains(t, rr.Body.String(), `"code":1`)
	})
}

func TestCommandHandler(t *testing.T) {
	h := NewCommandHandler("issuecredential", "Records", echo)
	require.Equal(t, "issuecredential", h.Name())
	require.Equal(t, "Records", h.Method())
	require.NotNil(t, h.Handle())
}
