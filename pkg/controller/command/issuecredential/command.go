/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	protocol "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	middleware "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/internal/logutil"
)

var logger = log.New("aries-framework/controller/issuecredential")

const (
	// InvalidRequestErrorCode is typically a code for validation errors
	// for invalid issue credential controller requests.
	InvalidRequestErrorCode = command.Code(iota + command.IssueCredential)
	// AcceptProposalErrorCode is for failures in accept proposal command.
	AcceptProposalErrorCode
	// AcceptOfferErrorCode is for failures in accept offer command.
	AcceptOfferErrorCode
	// AcceptRequestErrorCode is for failures in accept request command.
	AcceptRequestErrorCode
	// AcceptCredentialErrorCode is for failures in accept credential command.
	AcceptCredentialErrorCode
	// NegotiateProposalErrorCode is for failures in negotiate proposal command.
	NegotiateProposalErrorCode
	// NegotiateOfferErrorCode is for failures in negotiate offer command.
	NegotiateOfferErrorCode
	// DeclineErrorCode is for failures in the decline commands.
	DeclineErrorCode
	// SendProposalErrorCode failures in send proposal command.
	SendProposalErrorCode
	// SendOfferErrorCode failures in send offer command.
	SendOfferErrorCode
	// CreateOfferErrorCode failures in create offer command.
	CreateOfferErrorCode
	// SendRequestErrorCode failures in send request command.
	SendRequestErrorCode
	// ActionsErrorCode failures in actions command.
	ActionsErrorCode
	// RecordsErrorCode failures in records and record commands.
	RecordsErrorCode
	// FormatDataErrorCode failures in format data command.
	FormatDataErrorCode
	// DeleteRecordErrorCode failures in delete record command.
	DeleteRecordErrorCode
)

// constants for issue credential commands.
const (
	// command name.
	CommandName = "issuecredential"

	Actions           = "Actions"
	Records           = "Records"
	Record            = "Record"
	FormatData        = "FormatData"
	DeleteRecord      = "DeleteRecord"
	SendProposal      = "SendProposal"
	SendOffer         = "SendOffer"
	CreateOffer       = "CreateOffer"
	SendRequest       = "SendRequest"
	AcceptProposal    = "AcceptProposal"
	NegotiateProposal = "NegotiateProposal"
	DeclineProposal   = "DeclineProposal"
	AcceptOffer       = "AcceptOffer"
	NegotiateOffer    = "NegotiateOffer"
	DeclineOffer      = "DeclineOffer"
	AcceptRequest     = "AcceptRequest"
	DeclineRequest    = "DeclineRequest"
	AcceptCredential  = "AcceptCredential"
	DeclineCredential = "DeclineCredential"
)

const (
	// error messages.
	errEmptyRecordID     = "empty record ID"
	errEmptyConnectionID = "empty connection ID"
	// log constants.
	successString = "success"

	_states = "_states"
)

// Provider contains dependencies for the issue credential command and is typically created by using the agent.
type Provider interface {
	Service(id string) (interface{}, error)
}

type credentialService interface {
	RegisterMsgEvent(ch chan<- service.StateMsg) error
	Actions(ctx context.Context) ([]*exchange.Record, error)
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
	Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error)
	GetRecord(ctx context.Context, recordID string) (*exchange.Record, error)
	DeleteRecord(ctx context.Context, recordID string) error
	FormatData(ctx context.Context, recordID string) (map[exchange.Stage]map[string]interface{}, error)
}

type respondFunc func(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)

type startFunc func(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)

// Command is controller command for issue credential.
type Command struct {
	service credentialService
}

// New returns new issue credential controller command instance.
// State changes are published on the issue-credential_states topic when a notifier is given.
func New(ctx Provider, notifier command.Notifier) (*Command, error) {
	raw, err := ctx.Service(protocol.Name)
	if err != nil {
		return nil, fmt.Errorf("look up %s service: %w", protocol.Name, err)
	}

	svc, ok := raw.(credentialService)
	if !ok {
		return nil, errors.New("cast service to issue credential service failed")
	}

	if notifier != nil {
		// creates state channel
		states := make(chan service.StateMsg)
		// registers state channel to listen for events
		if err = svc.RegisterMsgEvent(states); err != nil {
			return nil, fmt.Errorf("register msg event: %w", err)
		}

		webnotifier.NewObserver(notifier).RegisterStateMsg(protocol.Name+_states, states)
	}

	return &Command{service: svc}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, Actions, c.Actions),
		cmdutil.NewCommandHandler(CommandName, Records, c.Records),
		cmdutil.NewCommandHandler(CommandName, Record, c.Record),
		cmdutil.NewCommandHandler(CommandName, FormatData, c.FormatData),
		cmdutil.NewCommandHandler(CommandName, DeleteRecord, c.DeleteRecord),
		cmdutil.NewCommandHandler(CommandName, SendProposal, c.SendProposal),
		cmdutil.NewCommandHandler(CommandName, SendOffer, c.SendOffer),
		cmdutil.NewCommandHandler(CommandName, CreateOffer, c.CreateOffer),
		cmdutil.NewCommandHandler(CommandName, SendRequest, c.SendRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptProposal, c.AcceptProposal),
		cmdutil.NewCommandHandler(CommandName, NegotiateProposal, c.NegotiateProposal),
		cmdutil.NewCommandHandler(CommandName, DeclineProposal, c.DeclineProposal),
		cmdutil.NewCommandHandler(CommandName, AcceptOffer, c.AcceptOffer),
		cmdutil.NewCommandHandler(CommandName, NegotiateOffer, c.NegotiateOffer),
		cmdutil.NewCommandHandler(CommandName, DeclineOffer, c.DeclineOffer),
		cmdutil.NewCommandHandler(CommandName, AcceptRequest, c.AcceptRequest),
		cmdutil.NewCommandHandler(CommandName, DeclineRequest, c.DeclineRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptCredential, c.AcceptCredential),
		cmdutil.NewCommandHandler(CommandName, DeclineCredential, c.DeclineCredential),
	}
}

// Actions returns the records waiting for a decision of the application.
func (c *Command) Actions(rw io.Writer, _ io.Reader) command.Error {
	result, err := c.service.Actions(context.Background())
	if err != nil {
		logutil.LogError(logger, CommandName, Actions, err.Error())

		return command.NewExecuteError(ActionsErrorCode, err)
	}

	command.WriteResponse(rw, &RecordsResponse{Records: result}, logger)

	logutil.LogDebug(logger, CommandName, Actions, successString)

	return nil
}

// Records lists the issue credential records matching the request.
func (c *Command) Records(rw io.Writer, req io.Reader) command.Error {
	var args RecordsArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, Records, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	result, err := c.service.Records(context.Background(), exchange.RecordFilter{
		ThreadID: args.ThreadID,
		Role:     exchange.Role(args.Role),
		State:    exchange.State(args.State),
	})
	if err != nil {
		logutil.LogError(logger, CommandName, Records, err.Error())

		return command.NewExecuteError(RecordsErrorCode, err)
	}

	command.WriteResponse(rw, &RecordsResponse{Records: result}, logger)

	logutil.LogDebug(logger, CommandName, Records, successString)

	return nil
}

// Record returns one issue credential record.
func (c *Command) Record(rw io.Writer, req io.Reader) command.Error {
	var args RecordIDArgs

	if err := decodeRecordID(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, Record, err.Error())

		return err
	}

	rec, err := c.service.GetRecord(context.Background(), args.RecordID)
	if err != nil {
		logutil.LogError(logger, CommandName, Record, err.Error(),
			logutil.RecordID(args.RecordID))

		return toCommandError(RecordsErrorCode, err)
	}

	command.WriteResponse(rw, &RecordResponse{Record: rec}, logger)

	logutil.LogDebug(logger, CommandName, Record, successString,
		logutil.RecordID(args.RecordID))

	return nil
}

// FormatData returns the attachment payloads of an exchange.
func (c *Command) FormatData(rw io.Writer, req io.Reader) command.Error {
	var args RecordIDArgs

	if err := decodeRecordID(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, FormatData, err.Error())

		return err
	}

	data, err := c.service.FormatData(context.Background(), args.RecordID)
	if err != nil {
		logutil.LogError(logger, CommandName, FormatData, err.Error(),
			logutil.RecordID(args.RecordID))

		return toCommandError(FormatDataErrorCode, err)
	}

	command.WriteResponse(rw, &FormatDataResponse{FormatData: data}, logger)

	logutil.LogDebug(logger, CommandName, FormatData, successString,
		logutil.RecordID(args.RecordID))

	return nil
}

// DeleteRecord removes an exchange record and its messages.
func (c *Command) DeleteRecord(rw io.Writer, req io.Reader) command.Error {
	var args RecordIDArgs

	if err := decodeRecordID(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, DeleteRecord, err.Error())

		return err
	}

	if err := c.service.DeleteRecord(context.Background(), args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, DeleteRecord, err.Error(),
			logutil.RecordID(args.RecordID))

		return toCommandError(DeleteRecordErrorCode, err)
	}

	command.WriteResponse(rw, &DeleteRecordResponse{}, logger)

	logutil.LogDebug(logger, CommandName, DeleteRecord, successString,
		logutil.RecordID(args.RecordID))

	return nil
}

// SendProposal is used by the Holder to send a proposal.
func (c *Command) SendProposal(rw io.Writer, req io.Reader) command.Error {
	return c.start(rw, req, SendProposal, SendProposalErrorCode, c.service.SendProposal)
}

// SendOffer is used by the Issuer to send an offer.
func (c *Command) SendOffer(rw io.Writer, req io.Reader) command.Error {
	return c.start(rw, req, SendOffer, SendOfferErrorCode, c.service.SendOffer)
}

// SendRequest is used by the Holder to send a request.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	return c.start(rw, req, SendRequest, SendRequestErrorCode, c.service.SendRequest)
}

// CreateOffer is used by the Issuer to create a connectionless offer, delivered out of band by the application.
func (c *Command) CreateOffer(rw io.Writer, req io.Reader) command.Error {
	var args SendArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, CreateOffer, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	opts, err := createOptions(&args)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateOffer, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	rec, msg, err := c.service.CreateOffer(context.Background(), opts)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateOffer, err.Error())

		return toCommandError(CreateOfferErrorCode, err)
	}

	command.WriteResponse(rw, &CreateOfferResponse{Record: rec, Message: msg}, logger)

	logutil.LogDebug(logger, CommandName, CreateOffer, successString,
		logutil.RecordID(rec.ID))

	return nil
}

// AcceptProposal is used when the Issuer is willing to accept the proposal.
func (c *Command) AcceptProposal(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptProposal, AcceptProposalErrorCode, c.service.AcceptProposal)
}

// NegotiateProposal is used when the Issuer wants to answer a proposal with a different offer.
func (c *Command) NegotiateProposal(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, NegotiateProposal, NegotiateProposalErrorCode, c.service.NegotiateProposal)
}

// AcceptOffer is used when the Holder is willing to accept the offer.
func (c *Command) AcceptOffer(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptOffer, AcceptOfferErrorCode, c.service.AcceptOffer)
}

// NegotiateOffer is used when the Holder wants to answer an offer with a different proposal.
func (c *Command) NegotiateOffer(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, NegotiateOffer, NegotiateOfferErrorCode, c.service.NegotiateOffer)
}

// AcceptRequest is used when the Issuer is willing to issue the requested credential.
func (c *Command) AcceptRequest(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptRequest, AcceptRequestErrorCode, c.service.AcceptRequest)
}

// AcceptCredential is used when the Holder is willing to accept the issued credential.
func (c *Command) AcceptCredential(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptCredential, AcceptCredentialErrorCode, c.service.AcceptCredential)
}

// DeclineProposal is used when the Issuer does not want to accept the proposal.
func (c *Command) DeclineProposal(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineProposal)
}

// DeclineOffer is used when the Holder does not want to accept the offer.
func (c *Command) DeclineOffer(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineOffer)
}

// DeclineRequest is used when the Issuer does not want to accept the request.
func (c *Command) DeclineRequest(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineRequest)
}

// DeclineCredential is used when the Holder does not want to accept the credential.
func (c *Command) DeclineCredential(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineCredential)
}

func (c *Command) start(rw io.Writer, req io.Reader, name string, code command.Code, fn startFunc) command.Error {
	var args SendArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ConnectionID == "" {
		logutil.LogError(logger, CommandName, name, errEmptyConnectionID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	opts, err := createOptions(&args)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	rec, err := fn(context.Background(), opts)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error(),
			logutil.ConnectionID(args.ConnectionID))

		return toCommandError(code, err)
	}

	command.WriteResponse(rw, &RecordResponse{Record: rec}, logger)

	logutil.LogDebug(logger, CommandName, name, successString,
		logutil.RecordID(rec.ID))

	return nil
}

func (c *Command) respond(rw io.Writer, req io.Reader, name string, code command.Code, fn respondFunc) command.Error {
	var args AcceptArgs

	if err := decodeRecordID(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return err
	}

	opts, err := acceptOptions(&args)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	rec, err := fn(context.Background(), args.RecordID, opts)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error(),
			logutil.RecordID(args.RecordID))

		return toCommandError(code, err)
	}

	command.WriteResponse(rw, &RecordResponse{Record: rec}, logger)

	logutil.LogDebug(logger, CommandName, name, successString,
		logutil.RecordID(args.RecordID))

	return nil
}

func (c *Command) decline(rw io.Writer, req io.Reader, name string) command.Error {
	var args DeclineArgs

	if err := decodeRecordID(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return err
	}

	rec, err := c.service.Decline(context.Background(), args.RecordID, args.Reason)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error(),
			logutil.RecordID(args.RecordID))

		return toCommandError(DeclineErrorCode, err)
	}

	command.WriteResponse(rw, &RecordResponse{Record: rec}, logger)

	logutil.LogDebug(logger, CommandName, name, successString,
		logutil.RecordID(args.RecordID))

	return nil
}

// decodeRecordID decodes the request into args and requires the record ID it points to.
func decodeRecordID(req io.Reader, args interface{}, recordID *string) command.Error {
	if err := json.NewDecoder(req).Decode(args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if *recordID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyRecordID))
	}

	return nil
}

func createOptions(args *SendArgs) (*exchange.CreateOptions, error) {
	autoAccept, err := exchange.ParseAutoAccept(args.AutoAccept)
	if err != nil {
		return nil, err
	}

	var version exchange.Version

	if args.Version != "" {
		if version, err = exchange.ParseVersion(args.Version); err != nil {
			return nil, err
		}
	}

	return &exchange.CreateOptions{
		Options: exchange.Options{
			Formats:    args.Formats,
			Comment:    args.Comment,
			GoalCode:   args.GoalCode,
			Preview:    args.Preview,
			AutoAccept: autoAccept,
		},
		ConnectionID:   args.ConnectionID,
		ParentThreadID: args.ParentThreadID,
		Version:        version,
	}, nil
}

func acceptOptions(args *AcceptArgs) (*exchange.Options, error) {
	autoAccept, err := exchange.ParseAutoAccept(args.AutoAccept)
	if err != nil {
		return nil, err
	}

	return &exchange.Options{
		Formats:    args.Formats,
		Comment:    args.Comment,
		GoalCode:   args.GoalCode,
		Preview:    args.Preview,
		AutoAccept: autoAccept,
		Properties: map[string]interface{}{
			middleware.NamesKey:              args.Names,
			middleware.SkipCredentialSaveKey: args.SkipStore,
		},
	}, nil
}

func toCommandError(code command.Code, err error) command.Error {
	switch {
	case errors.Is(err, exchange.ErrRecordNotFound):
		return command.NewNotFoundError(code, err)
	case errors.Is(err, exchange.ErrPrecondition), errors.Is(err, exchange.ErrStateAssertion):
		return command.NewValidationError(code, err)
	default:
		return command.NewExecuteError(code, err)
	}
}
