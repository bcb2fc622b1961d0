/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential provides an SDK client for credential exchanges.
//
// Create the client from the framework context and register an action event channel to answer the messages
// the agent does not auto accept:
//
//	client, err := issuecredential.New(ctx)
//	actions := make(chan service.DIDCommAction)
//	client.RegisterActionEvent(actions)
//
// Each action carries the record ID in its properties. Answer it with one of the Accept, Negotiate or Decline
// methods of the client, or with the Continue and Stop functions of the action.
package issuecredential

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	mdissuecredential "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/issuecredential"
)

var errEmptyConnection = errors.New("empty connection ID")

type (
	// Options are the format inputs and settings of a message.
	Options = exchange.Options
	// Record is the state of a credential exchange.
	Record = exchange.Record
)

// Provider contains dependencies for the issuecredential protocol and is typically created by using aries.Context().
type Provider interface {
	Service(id string) (interface{}, error)
}

// ProtocolService defines the issuecredential service.
type ProtocolService interface {
	service.Event
	Actions(ctx context.Context) ([]*exchange.Record, error)
	GetRecord(ctx context.Context, recordID string) (*exchange.Record, error)
	SendProposal(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	SendOffer(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	CreateOffer(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, service.DIDCommMsgMap, error)
	SendRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	AcceptProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptOffer(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateOffer(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptCredential(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	Decline(ctx context.Context, recordID, reason string) (*exchange.Record, error)
}

// Client enable access to issuecredential API.
type Client struct {
	service.Event
	service ProtocolService
}

// New return new instance of the issuecredential client.
func New(ctx Provider) (*Client, error) {
	raw, err := ctx.Service(issuecredential.Name)
	if err != nil {
		return nil, err
	}

	svc, ok := raw.(ProtocolService)
	if !ok {
		return nil, errors.New("cast service to issuecredential service failed")
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

// SendProposal is used by the Holder to propose a credential. It returns the record ID.
func (c *Client) SendProposal(connectionID string, opts *Options) (string, error) {
	return c.send(c.service.SendProposal, connectionID, opts)
}

// SendOffer is used by the Issuer to send an offer. It returns the record ID.
func (c *Client) SendOffer(connectionID string, opts *Options) (string, error) {
	return c.send(c.service.SendOffer, connectionID, opts)
}

// CreateOffer creates an offer the Issuer delivers out of band.
func (c *Client) CreateOffer(opts *Options) (string, service.DIDCommMsgMap, error) {
	rec, msg, err := c.service.CreateOffer(context.Background(), createOptions("", opts))
	if err != nil {
		return "", nil, err
	}

	return rec.ID, msg, nil
}

// SendRequest is used by the Holder to request a credential without a preceding offer. It returns the record ID.
func (c *Client) SendRequest(connectionID string, opts *Options) (string, error) {
	return c.send(c.service.SendRequest, connectionID, opts)
}

// AcceptProposal is used when the Issuer is willing to accept the proposal.
func (c *Client) AcceptProposal(recordID string, opts *Options) error {
	_, err := c.service.AcceptProposal(context.Background(), recordID, opts)

	return err
}

// NegotiateProposal is used when the Issuer answers a proposal with a different offer.
func (c *Client) NegotiateProposal(recordID string, opts *Options) error {
	_, err := c.service.NegotiateProposal(context.Background(), recordID, opts)

	return err
}

// DeclineProposal is used when the Issuer does not want to accept the proposal.
func (c *Client) DeclineProposal(recordID, reason string) error {
	return c.decline(recordID, reason)
}

// AcceptOffer is used when the Holder is willing to accept the offer.
func (c *Client) AcceptOffer(recordID string, opts *Options) error {
	_, err := c.service.AcceptOffer(context.Background(), recordID, opts)

	return err
}

// NegotiateOffer is used when the Holder wants to negotiate about an offer they received.
func (c *Client) NegotiateOffer(recordID string, opts *Options) error {
	_, err := c.service.NegotiateOffer(context.Background(), recordID, opts)

	return err
}

// DeclineOffer is used when the Holder does not want to accept the offer.
func (c *Client) DeclineOffer(recordID, reason string) error {
	return c.decline(recordID, reason)
}

// AcceptRequest is used when the Issuer is willing to issue the requested credential.
func (c *Client) AcceptRequest(recordID string, opts *Options) error {
	_, err := c.service.AcceptRequest(context.Background(), recordID, opts)

	return err
}

// DeclineRequest is used when the Issuer does not want to accept the request.
func (c *Client) DeclineRequest(recordID, reason string) error {
	return c.decline(recordID, reason)
}

// AcceptCredential is used when the Holder is willing to accept the credential. The credentials are saved
// under names, in attachment order.
func (c *Client) AcceptCredential(recordID string, names ...string) error {
	opts := &Options{}

	if len(names) > 0 {
		opts.Properties = map[string]interface{}{mdissuecredential.NamesKey: names}
	}

	_, err := c.service.AcceptCredential(context.Background(), recordID, opts)

	return err
}

// DeclineCredential is used when the Holder does not want to accept the credential.
func (c *Client) DeclineCredential(recordID, reason string) error {
	return c.decline(recordID, reason)
}

func (c *Client) decline(recordID, reason string) error {
	_, err := c.service.Decline(context.Background(), recordID, reason)

	return err
}

type startFunc func(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)

func (c *Client) send(start startFunc, connectionID string, opts *Options) (string, error) {
	if connectionID == "" {
		return "", errEmptyConnection
	}

	rec, err := start(context.Background(), createOptions(connectionID, opts))
	if err != nil {
		return "", fmt.Errorf("start exchange: %w", err)
	}

	return rec.ID, nil
}

func createOptions(connectionID string, opts *Options) *exchange.CreateOptions {
	create := &exchange.CreateOptions{ConnectionID: connectionID}

	if opts != nil {
		create.Options = *opts
	}

	return create
}
