/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof provides an SDK client for proof exchanges.
//
// 1. Create your client:
//
//	client, err := presentproof.New(ctx)
//	if err != nil {
//	 panic(err)
//	}
//
// 2. Register an action event channel.
//
//	actions := make(chan service.DIDCommAction)
//	client.RegisterActionEvent(actions)
//
// 3. Handle incoming actions.
//
//	for event := range actions {
//	  recordID := event.Properties.All()["record_id"].(string)
//
//	  // Verifier: client.AcceptProposal, client.NegotiateProposal or client.DeclineProposal.
//	  // Prover: client.AcceptRequest, client.NegotiateRequest or client.DeclineRequest.
//	  // Verifier: client.AcceptPresentation or client.DeclinePresentation.
//	}
//
// The protocol is initiated by the Prover with SendProposal or by the Verifier with SendRequest.
package presentproof

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	mdpresentproof "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
)

var errEmptyConnection = errors.New("empty connection ID")

type (
	// Options are the format inputs and settings of a message.
	Options = exchange.Options
	// Record is the state of a proof exchange.
	Record = exchange.Record
)

// Provider contains dependencies for the protocol and is typically created by using aries.Context().
type Provider interface {
	Service(id string) (interface{}, error)
}

// ProtocolService defines the presentproof service.
type ProtocolService interface {
	service.Event
	Actions(ctx context.Context) ([]*exchange.Record, error)
	GetRecord(ctx context.Context, recordID string) (*exchange.Record, error)
	SendProposal(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	SendRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	CreateRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, service.DIDCommMsgMap, error)
	AcceptProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptPresentation(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	Decline(ctx context.Context, recordID, reason string) (*exchange.Record, error)
}

// Client enable access to presentproof API.
type Client struct {
	service.Event
	service ProtocolService
}

// New return new instance of the presentproof client.
func New(ctx Provider) (*Client, error) {
	raw, err := ctx.Service(presentproof.Name)
	if err != nil {
		return nil, err
	}

	svc, ok := raw.(ProtocolService)
	if !ok {
		return nil, errors.New("cast service to presentproof service failed")
	}

	return &Client{
		Event:   svc,
		service: svc,
	}, nil
}

// Actions returns the exchanges waiting for an answer.
func (c *Client) Actions() ([]*Record, error) {
	return c.service.Actions(context.Background())
}

// Record returns an exchange.
func (c *Client) Record(recordID string) (*Record, error) {
	return c.service.GetRecord(context.Background(), recordID)
}

// SendProposal is used by the Prover to propose a presentation. It returns the record ID.
func (c *Client) SendProposal(connectionID string, opts *Options) (string, error) {
	if connectionID == "" {
		return "", errEmptyConnection
	}

	rec, err := c.service.SendProposal(context.Background(), createOptions(connectionID, opts))
	if err != nil {
		return "", fmt.Errorf("start exchange: %w", err)
	}

	return rec.ID, nil
}

// SendRequest is used by the Verifier to request a presentation. It returns the record ID.
func (c *Client) SendRequest(connectionID string, opts *Options) (string, error) {
	if connectionID == "" {
		return "", errEmptyConnection
	}

	rec, err := c.service.SendRequest(context.Background(), createOptions(connectionID, opts))
	if err != nil {
		return "", fmt.Errorf("start exchange: %w", err)
	}

	return rec.ID, nil
}

// CreateRequest creates a request the Verifier delivers out of band.
func (c *Client) CreateRequest(opts *Options) (string, service.DIDCommMsgMap, error) {
	rec, msg, err := c.service.CreateRequest(context.Background(), createOptions("", opts))
	if err != nil {
		return "", nil, err
	}

	return rec.ID, msg, nil
}

// AcceptProposal is used when the Verifier is willing to accept the proposal.
func (c *Client) AcceptProposal(recordID string, opts *Options) error {
	_, err := c.service.AcceptProposal(context.Background(), recordID, opts)

	return err
}

// NegotiateProposal is used when the Verifier answers a proposal with a different request.
func (c *Client) NegotiateProposal(recordID string, opts *Options) error {
	_, err := c.service.NegotiateProposal(context.Background(), recordID, opts)

	return err
}

// DeclineProposal is used when the Verifier does not want to accept the proposal.
func (c *Client) DeclineProposal(recordID, reason string) error {
	return c.decline(recordID, reason)
}

// AcceptRequest is used when the Prover is willing to present.
func (c *Client) AcceptRequest(recordID string, opts *Options) error {
	_, err := c.service.AcceptRequest(context.Background(), recordID, opts)

	return err
}

// NegotiateRequest is used when the Prover counters a request with a proposal.
func (c *Client) NegotiateRequest(recordID string, opts *Options) error {
	_, err := c.service.NegotiateRequest(context.Background(), recordID, opts)

	return err
}

// DeclineRequest is used when the Prover does not want to present.
func (c *Client) DeclineRequest(recordID, reason string) error {
	return c.decline(recordID, reason)
}

// AcceptPresentation is used when the Verifier accepts a verified presentation. The presentations are
// saved under names, in attachment order.
func (c *Client) AcceptPresentation(recordID string, names ...string) error {
	opts := &Options{}

	if len(names) > 0 {
		opts.Properties = map[string]interface{}{mdpresentproof.NamesKey: names}
	}

	_, err := c.service.AcceptPresentation(context.Background(), recordID, opts)

	return err
}

// DeclinePresentation is used when the Verifier does not accept the presentation.
func (c *Client) DeclinePresentation(recordID, reason string) error {
	return c.decline(recordID, reason)
}

func (c *Client) decline(recordID, reason string) error {
	_, err := c.service.Decline(context.Background(), recordID, reason)

	return err
}

func createOptions(connectionID string, opts *Options) *exchange.CreateOptions {
	create := &exchange.CreateOptions{ConnectionID: connectionID}

	if opts != nil {
		create.Options = *opts
	}

	return create
}
