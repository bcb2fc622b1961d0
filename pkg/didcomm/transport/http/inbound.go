/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
)

// ConnectionIDHeader carries the connection ID when no resolver is configured.
const ConnectionIDHeader = "Didcomm-Connection-Id"

const defaultMaxPayloadSize = 1 << 20

type inboundOpts struct {
	connectionID   func(r *http.Request) string
	maxPayloadSize int64
}

// InboundHTTPOpt is an inbound HTTP handler option.
type InboundHTTPOpt func(opts *inboundOpts)

// WithConnectionIDResolver sets how the connection ID of a request is found, for instance from a
// route variable.
func WithConnectionIDResolver(resolve func(r *http.Request) string) InboundHTTPOpt {
	return func(opts *inboundOpts) {
		opts.connectionID = resolve
	}
}

// WithMaxPayloadSize limits the size of accepted payloads.
func WithMaxPayloadSize(size int64) InboundHTTPOpt {
	return func(opts *inboundOpts) {
		opts.maxPayloadSize = size
	}
}

// NewInboundHandler will create a new handler to enforce Did-Comm HTTP transport specs
// then routes processing to the mandatory 'msgHandler' argument. Users of this library must manage
// the handling of all inbound payloads in msgHandler.
func NewInboundHandler(msgHandler transport.InboundMessageHandler, opts ...InboundHTTPOpt) (http.Handler, error) {
	if msgHandler == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	options := &inboundOpts{
		connectionID: func(r *http.Request) string {
			return r.Header.Get(ConnectionIDHeader)
		},
		maxPayloadSize: defaultMaxPayloadSize,
	}

	for _, opt := range opts {
		opt(options)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, msgHandler, options)
	}), nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, messageHandler transport.InboundMessageHandler,
	opts *inboundOpts) {
	if valid := validateHTTPMethod(w, r); !valid {
		return
	}

	if valid := validatePayload(r, w); !valid {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, opts.maxPayloadSize))
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusBadRequest)
		http.Error(w, "Failed to read payload", http.StatusBadRequest)

		return
	}

	connectionID := opts.connectionID(r)
	if connectionID == "" {
		http.Error(w, "Unknown connection", http.StatusBadRequest)

		return
	}

	if err = messageHandler(r.Context(), body, connectionID); err != nil {
		logger.Errorf("incoming msg processing failed: %v", err)
		http.Error(w, "Failed to process the message", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// validatePayload validate and get the payload from the request.
func validatePayload(r *http.Request, w http.ResponseWriter) bool {
	if r.ContentLength == 0 { // empty payload should not be accepted
		http.Error(w, "Empty payload", http.StatusBadRequest)

		return false
	}

	return true
}

// validateHTTPMethod validate HTTP method and content-type.
func validateHTTPMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "HTTP Method not allowed", http.StatusMethodNotAllowed)

		return false
	}

	ct := r.Header.Get("Content-type")
	if !transport.IsPlaintextMediaType(ct) {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return false
	}

	return true
}
