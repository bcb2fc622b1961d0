/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
)

func TestSendError(t *testing.T) {
	missing := errors.New("exchange record not found")

	tests := []struct {
		name   string
		err    command.Error
		status int
	}{
		{"validation", command.NewValidationError(command.Code(8000), missing), http.StatusBadRequest},
		{"not found", command.NewNotFoundError(command.Code(8003), missing), http.StatusNotFound},
		{"execution", command.NewExecuteError(command.Code(9005), missing), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			SendError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			response := genericErrorBody{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			require.Equal(t, genericErrorBody{Code: tc.err.Code(), Message: missing.Error()}, response)
		})
	}

	t.Run("explicit status", func(t *testing.T) {
		rr := httptest.NewRecorder()

		SendHTTPStatusError(rr, http.StatusUnsupportedMediaType, command.UnknownStatus, missing)
		require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
		require.JSONEq(t, `{"code":0,"message":"exchange record not found"}`, rr.Body.String())
	})

	t.Run("write failure is only logged", func(t *testing.T) {
		SendHTTPStatusError(&failingWriter{}, http.StatusBadRequest, command.UnknownStatus, missing)
	})
}

func TestExecute(t *testing.T) {
	cmd := func(rw io.Writer, req io.Reader) command.Error {
		return command.NewValidationError(1, errors.New("sample"))
	}

	rw := httptest.NewRecorder()
	Execute(cmd, rw, nil)
	require.Contains(t, rw.Body.String(), `{"code":1,"message":"sample"}`)

	ok := func(rw io.Writer, req io.Reader) command.Error {
		_, err := io.Copy(rw, req)
		require.NoError(t, err)

		return nil
	}

	rw = httptest.NewRecorder()
	Execute(ok, rw, strings.NewReader(`{"id":"1"}`))
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, `{"id":"1"}`, rw.Body.String())
	require.Equal(t, "application/json", rw.Header().Get("Content-Type"))
}

type failingWriter struct{}

func (w *failingWriter) Header() http.Header { return http.Header{} }

func (w *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func (w *failingWriter) WriteHeader(int) {}

func TestBodyWith(t *testing.T) {
	t.Run("merges fields into the body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"comment":"hi","record_id":"ignored"}`))

		body, err := BodyWith(req, map[string]string{"record_id": "r1"})
		require.NoError(t, err)

		raw, err := io.ReadAll(body)
		require.NoError(t, err)
		require.JSONEq(t, `{"comment":"hi","record_id":"r1"}`, string(raw))
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)

		body, err := BodyWith(req, map[string]string{"record_id": "r1"})
		require.NoError(t, err)

		raw, err := io.ReadAll(body)
		require.NoError(t, err)
		require.JSONEq(t, `{"record_id":"r1"}`, string(raw))
	})

	t.Run("not an object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`[1]`))

		_, err := BodyWith(req, nil)
		require.ErrorContains(t, err, "request body is not a JSON object")
	})
}
