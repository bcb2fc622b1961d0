/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("New WebNotifier (populated)", func(t *testing.T) {
		n := New([]string{"http://localhost:8080"})
		require.NotNil(t, n)
		require.Equal(t, 1, len(n.notifiers))
	})

	t.Run("New WebNotifier (nil)", func(t *testing.T) {
		n := New(nil)
		require.NotNil(t, n)
		require.Empty(t, n.notifiers)
		require.NoError(t, n.Notify("example", []byte(`{}`)))
	})
}

func TestNotify(t *testing.T) {
	var got []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body) // nolint: errcheck

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Run("delivers the topic message", func(t *testing.T) {
		n := New([]string{server.URL})
		require.NoError(t, n.Notify("issue-credential_states", []byte(`{"state_id":"done"}`)))

		var msg struct {
			ID      string          `json:"id"`
			Topic   string          `json:"topic"`
			Message json.RawMessage `json:"message"`
		}

		require.NoError(t, json.Unmarshal(got, &msg))
		require.NotEmpty(t, msg.ID)
		require.Equal(t, "issue-credential_states", msg.Topic)
		require.JSONEq(t, `{"state_id":"done"}`, string(msg.Message))
	})

	t.Run("unreachable subscriber", func(t *testing.T) {
		n := New([]string{server.URL, "http://localhost:0"})
		require.Error(t, n.Notify("example", []byte(`{}`)))
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls int32

		flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			w.WriteHeader(http.StatusAccepted)
		}))
		defer flaky.Close()

		require.NoError(t, NewHTTPNotifier([]string{flaky.URL}).Notify("example", []byte(`{}`)))
		require.EqualValues(t, 2, atomic.LoadInt32(&calls))
	})

	t.Run("client errors are final", func(t *testing.T) {
		var calls int32

		rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer rejecting.Close()

		err := NewHTTPNotifier([]string{rejecting.URL}).Notify("example", []byte(`{}`))
		require.ErrorContains(t, err, "400 Bad Request")
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("invalid input", func(t *testing.T) {
		n := NewHTTPNotifier([]string{server.URL})
		require.EqualError(t, n.Notify("", []byte(`{}`)), emptyTopicErrMsg)
		require.EqualError(t, n.Notify("example", nil), emptyMessageErrMsg)
		require.ErrorContains(t, n.Notify("example", []byte("payload")), "failed to create topic message")
	})
}
