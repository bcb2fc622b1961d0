/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

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
	middleware "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/presentproof"
	protocol "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/internal/logutil"
)

var logger = log.New("aries-framework/controller/presentproof")

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.PresentProof)
	// ActionsErrorCode is for failures in actions command.
	ActionsErrorCode
	// RecordsErrorCode is for failures in records and record commands.
	RecordsErrorCode
	// FormatDataErrorCode is for failures in format data command.
	FormatDataErrorCode
	// DeleteRecordErrorCode is for failures in delete record command.
	DeleteRecordErrorCode
	// SendProposalErrorCode is for failures in send proposal command.
	SendProposalErrorCode
	// SendRequestErrorCode is for failures in send request command.
	SendRequestErrorCode
	// CreateRequestErrorCode is for failures in create request command.
	CreateRequestErrorCode
	// AcceptProposalErrorCode is for failures in accept proposal command.
	AcceptProposalErrorCode
	// NegotiateProposalErrorCode is for failures in negotiate proposal command.
	NegotiateProposalErrorCode
	// AcceptRequestErrorCode is for failures in accept request command.
	AcceptRequestErrorCode
	// NegotiateRequestErrorCode is for failures in negotiate request command.
	NegotiateRequestErrorCode
	// AcceptPresentationErrorCode is for failures in accept presentation command.
	AcceptPresentationErrorCode
	// DeclineErrorCode is for failures in the decline commands.
	DeclineErrorCode
)

// constants for the PresentProof operations.
const (
	// command name.
	CommandName = "presentproof"

	Actions             = "Actions"
	Records             = "Records"
	Record              = "Record"
	FormatData          = "FormatData"
	DeleteRecord        = "DeleteRecord"
	SendProposal        = "SendProposal"
	SendRequest         = "SendRequest"
	CreateRequest       = "CreateRequest"
	AcceptProposal      = "AcceptProposal"
	NegotiateProposal   = "NegotiateProposal"
	DeclineProposal     = "DeclineProposal"
	AcceptRequest       = "AcceptRequest"
	NegotiateRequest    = "NegotiateRequest"
	DeclineRequest      = "DeclineRequest"
	AcceptPresentation  = "AcceptPresentation"
	DeclinePresentation = "DeclinePresentation"
)

const (
	// error messages.
	errEmptyRecordID     = "empty record ID"
	errEmptyConnectionID = "empty connection ID"
	// log constants.
	successString = "success"

	_states = "_states"
)

// Provider contains dependencies for the present proof command and is typically created by using the agent.
type Provider interface {
	Service(id string) (interface{}, error)
}

type proofService interface {
	RegisterMsgEvent(ch chan<- service.StateMsg) error
	Actions(ctx context.Context) ([]*exchange.Record, error)
	SendProposal(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	SendRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, error)
	CreateRequest(ctx context.Context, opts *exchange.CreateOptions) (*exchange.Record, service.DIDCommMsgMap, error)
	AcceptProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateProposal(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	NegotiateRequest(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	AcceptPresentation(ctx context.Context, recordID string, opts *exchange.Options) (*exchange.Record, error)
	Decline(ctx context.Context, recordID, reason string) (*exchange.Record, error)
	Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error)
	GetRecord(ctx context.Context, recordID string) (*exchange.Record, error)
	DeleteRecord(ctx context.Context, recordID string) error
	FormatData(ctx context.Context, recordID string) (map[exchange.Stage]map[string]interface{}, error)
}

// Command is controller command for present proof.
type Command struct {
	service proofService
}

// New returns new present proof controller command instance.
func New(ctx Provider, notifier command.Notifier) (*Command, error) {
	raw, err := ctx.Service(protocol.Name)
	if err != nil {
		return nil, fmt.Errorf("look up %s service: %w", protocol.Name, err)
	}

	svc, ok := raw.(proofService)
	if !ok {
		return nil, errors.New("cast service to present proof service failed")
	}

	if notifier != nil {
		states := make(chan service.StateMsg)
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
		cmdutil.NewCommandHandler(CommandName, SendRequest, c.SendRequest),
		cmdutil.NewCommandHandler(CommandName, CreateRequest, c.CreateRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptProposal, c.AcceptProposal),
		cmdutil.NewCommandHandler(CommandName, NegotiateProposal, c.NegotiateProposal),
		cmdutil.NewCommandHandler(CommandName, DeclineProposal, c.DeclineProposal),
		cmdutil.NewCommandHandler(CommandName, AcceptRequest, c.AcceptRequest),
		cmdutil.NewCommandHandler(CommandName, NegotiateRequest, c.NegotiateRequest),
		cmdutil.NewCommandHandler(CommandName, DeclineRequest, c.DeclineRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptPresentation, c.AcceptPresentation),
		cmdutil.NewCommandHandler(CommandName, DeclinePresentation, c.DeclinePresentation),
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

// Records lists the present proof records matching the request.
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

// Record returns one present proof record.
func (c *Command) Record(rw io.Writer, req io.Reader) command.Error {
	var args RecordIDArgs

	if err := decode(req, &args, &args.RecordID); err != nil {
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

	if err := decode(req, &args, &args.RecordID); err != nil {
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

	if err := decode(req, &args, &args.RecordID); err != nil {
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

// SendProposal is used by the Prover to propose a presentation.
func (c *Command) SendProposal(rw io.Writer, req io.Reader) command.Error {
	return c.start(rw, req, SendProposal, SendProposalErrorCode, c.service.SendProposal)
}

// SendRequest is used by the Verifier to request a presentation.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	return c.start(rw, req, SendRequest, SendRequestErrorCode, c.service.SendRequest)
}

// CreateRequest is used by the Verifier to create a connectionless request, delivered out of band.
func (c *Command) CreateRequest(rw io.Writer, req io.Reader) command.Error {
	var args SendArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, CreateRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	opts, err := createOptions(&args)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	rec, msg, err := c.service.CreateRequest(context.Background(), opts)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateRequest, err.Error())

		return toCommandError(CreateRequestErrorCode, err)
	}

	command.WriteResponse(rw, &CreateRequestResponse{Record: rec, Message: msg}, logger)

	logutil.LogDebug(logger, CommandName, CreateRequest, successString,
		logutil.RecordID(rec.ID))

	return nil
}

// AcceptProposal is used when the Verifier is willing to accept the proposal and request the presentation.
func (c *Command) AcceptProposal(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptProposal, AcceptProposalErrorCode, c.service.AcceptProposal)
}

// NegotiateProposal is used when the Verifier answers a proposal with a different request.
func (c *Command) NegotiateProposal(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, NegotiateProposal, NegotiateProposalErrorCode, c.service.NegotiateProposal)
}

// AcceptRequest is used by the Prover to present the requested proof.
func (c *Command) AcceptRequest(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptRequest, AcceptRequestErrorCode, c.service.AcceptRequest)
}

// NegotiateRequest is used by the Prover to answer a request with a counter proposal.
func (c *Command) NegotiateRequest(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, NegotiateRequest, NegotiateRequestErrorCode, c.service.NegotiateRequest)
}

// AcceptPresentation is used by the Verifier to accept a verified presentation.
func (c *Command) AcceptPresentation(rw io.Writer, req io.Reader) command.Error {
	return c.respond(rw, req, AcceptPresentation, AcceptPresentationErrorCode, c.service.AcceptPresentation)
}

// DeclineProposal is used when the Verifier does not want to accept the proposal.
func (c *Command) DeclineProposal(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineProposal)
}

// DeclineRequest is used when the Prover does not want to present.
func (c *Command) DeclineRequest(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclineRequest)
}

// DeclinePresentation is used when the Verifier does not want to accept the presentation.
func (c *Command) DeclinePresentation(rw io.Writer, req io.Reader) command.Error {
	return c.decline(rw, req, DeclinePresentation)
}

func (c *Command) start(rw io.Writer, req io.Reader, name string, code command.Code,
	fn func(context.Context, *exchange.CreateOptions) (*exchange.Record, error)) command.Error {
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

func (c *Command) respond(rw io.Writer, req io.Reader, name string, code command.Code,
	fn func(context.Context, string, *exchange.Options) (*exchange.Record, error)) command.Error {
	var args AcceptArgs

	if err := decode(req, &args, &args.RecordID); err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return err
	}

	autoAccept, err := exchange.ParseAutoAccept(args.AutoAccept)
	if err != nil {
		logutil.LogError(logger, CommandName, name, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	rec, err := fn(context.Background(), args.RecordID, &exchange.Options{
		Formats:     args.Formats,
		Comment:     args.Comment,
		GoalCode:    args.GoalCode,
		WillConfirm: args.WillConfirm,
		AutoAccept:  autoAccept,
		Properties:  map[string]interface{}{middleware.NamesKey: args.Names},
	})
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

	if err := decode(req, &args, &args.RecordID); err != nil {
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

func decode(req io.Reader, args interface{}, recordID *string) command.Error {
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
			Formats:     args.Formats,
			Comment:     args.Comment,
			GoalCode:    args.GoalCode,
			WillConfirm: args.WillConfirm,
			AutoAccept:  autoAccept,
		},
		ConnectionID:   args.ConnectionID,
		ParentThreadID: args.ParentThreadID,
		Version:        version,
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
