/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	connectioncmd "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/connection"
	issuecredentialcmd "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/issuecredential"
	presentproofcmd "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
	connectionrest "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest/connection"
	issuecredentialrest "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest/issuecredential"
	presentproofrest "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/context"
)

type allOpts struct {
	webhookURLs []string
	notifier    command.Notifier
}

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events.
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

func notifierOf(opts []Opt) command.Notifier {
	restAPIOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(restAPIOpts)
	}

	if restAPIOpts.notifier != nil {
		return restAPIOpts.notifier
	}

	return webnotifier.New(restAPIOpts.webhookURLs)
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(ctx *context.Provider, opts ...Opt) ([]rest.Handler, error) {
	notifier := notifierOf(opts)

	// issue credential REST operation
	issuecredentialOp, err := issuecredentialrest.New(ctx, notifier)
	if err != nil {
		return nil, err
	}

	// present proof REST operation
	presentproofOp, err := presentproofrest.New(ctx, notifier)
	if err != nil {
		return nil, err
	}

	// connection REST operation
	connectionOp, err := connectionrest.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create connection rest command : %w", err)
	}

	// create handlers from all operations
	var allHandlers []rest.Handler
	allHandlers = append(allHandlers, issuecredentialOp.GetRESTHandlers()...)
	allHandlers = append(allHandlers, presentproofOp.GetRESTHandlers()...)
	allHandlers = append(allHandlers, connectionOp.GetRESTHandlers()...)

	return allHandlers, nil
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(ctx *context.Provider, opts ...Opt) ([]command.Handler, error) {
	notifier := notifierOf(opts)

	// issue credential command operation
	icCmd, err := issuecredentialcmd.New(ctx, notifier)
	if err != nil {
		return nil, fmt.Errorf("failed initialized issue credential command: %w", err)
	}

	// present proof command operation
	ppCmd, err := presentproofcmd.New(ctx, notifier)
	if err != nil {
		return nil, fmt.Errorf("failed initialized present proof command: %w", err)
	}

	// connection command operation
	connCmd, err := connectioncmd.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create connection command : %w", err)
	}

	var allHandlers []command.Handler
	allHandlers = append(allHandlers, icCmd.GetHandlers()...)
	allHandlers = append(allHandlers, ppCmd.GetHandlers()...)
	allHandlers = append(allHandlers, connCmd.GetHandlers()...)

	return allHandlers, nil
}
