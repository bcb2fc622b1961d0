/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
)

var logger = log.New("aries-framework/transport/http")

// StatusError is returned when the receiving agent answers with a non success status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non success POST HTTP status from agent at [%s]: status : %d", e.URL, e.Code)
}

// Temporary reports whether another delivery attempt may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Is matches transport.ErrRecipientRejected for statuses that are not temporary.
func (e *StatusError) Is(target error) bool {
	return target == transport.ErrRecipientRejected && !e.Temporary() //nolint:errorlint
}

// outboundCommHTTPOpts holds options for the HTTP transport implementation of CommTransport
// it has an http.Client instance.
type outboundCommHTTPOpts struct {
	client  *http.Client
	timeout time.Duration
}

// OutboundHTTPOpt is an outbound HTTP transport option.
type OutboundHTTPOpt func(opts *outboundCommHTTPOpts)

// WithOutboundHTTPClient option is for creating an Outbound HTTP transport using an http.Client instance.
func WithOutboundHTTPClient(client *http.Client) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = client
	}
}

// WithOutboundTimeout option is for creating an Outbound HTTP transport using a client timeout value.
func WithOutboundTimeout(timeout time.Duration) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.timeout = timeout
	}
}

// WithOutboundTLSConfig option is for creating an Outbound HTTP transport using a tls.Config instance.
func WithOutboundTLSConfig(tlsConfig *tls.Config) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}
}

// OutboundHTTPClient represents the Outbound HTTP transport instance.
type OutboundHTTPClient struct {
	client *http.Client
}

// NewOutbound creates a new instance of Outbound HTTP transport to Post requests to other Agents.
// An http.Client or tls.Config options is mandatory to create a transport instance.
func NewOutbound(opts ...OutboundHTTPOpt) (*OutboundHTTPClient, error) {
	clOpts := &outboundCommHTTPOpts{}
	// Apply options
	for _, opt := range opts {
		opt(clOpts)
	}

	if clOpts.client == nil {
		return nil, errors.New("creation of outbound transport requires an HTTP client")
	}

	if clOpts.timeout > 0 {
		clOpts.client.Timeout = clOpts.timeout
	}

	return &OutboundHTTPClient{client: clOpts.client}, nil
}

// Send sends a DIDComm message via HTTP (client side).
func (cs *OutboundHTTPClient) Send(ctx context.Context, data []byte, url, mediaType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request to [%s]: %w", url, err)
	}

	req.Header.Set("Content-Type", mediaType)

	resp, err := cs.client.Do(req)
	if err != nil {
		logger.Errorf("posting DIDComm message to agent at [%s]: %v", url, err)

		return fmt.Errorf("post to [%s]: %w", url, err)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Errorf("closing response body: %v", e)
		}
	}()

	// drain so the connection can be reused
	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		logger.Debugf("reading response body from [%s]: %v", url, err)
	}

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}

	return nil
}

// AcceptRecipient checks if the destination is an http(s) url.
func (cs *OutboundHTTPClient) AcceptRecipient(destination string) bool {
	return strings.HasPrefix(destination, "http://") || strings.HasPrefix(destination, "https://")
}
