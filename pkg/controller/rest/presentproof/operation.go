/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	cmd "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
)

const (
	operationID         = "/presentproof"
	actions             = operationID + "/actions"
	records             = operationID + "/records"
	record              = operationID + "/records/{record_id}"
	formatData          = operationID + "/records/{record_id}/format-data"
	sendProposal        = operationID + "/send-proposal"
	sendRequest         = operationID + "/send-request"
	createRequest       = operationID + "/create-request"
	acceptProposal      = operationID + "/{record_id}/accept-proposal"
	negotiateProposal   = operationID + "/{record_id}/negotiate-proposal"
	declineProposal     = operationID + "/{record_id}/decline-proposal"
	acceptRequest       = operationID + "/{record_id}/accept-request"
	negotiateRequest    = operationID + "/{record_id}/negotiate-request"
	declineRequest      = operationID + "/{record_id}/decline-request"
	acceptPresentation  = operationID + "/{record_id}/accept-presentation"
	declinePresentation = operationID + "/{record_id}/decline-presentation"
)

const recordIDVar = "record_id"

// Operation is controller REST service controller for present proof.
type Operation struct {
	command  *cmd.Command
	handlers []rest.Handler
}

// New returns new present proof rest client protocol instance.
func New(ctx cmd.Provider, notifier command.Notifier) (*Operation, error) {
	c, err := cmd.New(ctx, notifier)
	if err != nil {
		return nil, fmt.Errorf("present proof command : %w", err)
	}

	o := &Operation{command: c}
	o.registerHandler()

	return o, nil
}

// GetRESTHandlers get all controller API handler available for this protocol service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this protocol service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(actions, http.MethodGet, c.Actions),
		cmdutil.NewHTTPHandler(records, http.MethodGet, c.Records),
		cmdutil.NewHTTPHandler(record, http.MethodGet, c.Record),
		cmdutil.NewHTTPHandler(record, http.MethodDelete, c.DeleteRecord),
		cmdutil.NewHTTPHandler(formatData, http.MethodGet, c.FormatData),
		cmdutil.NewHTTPHandler(sendProposal, http.MethodPost, c.SendProposal),
		cmdutil.NewHTTPHandler(sendRequest, http.MethodPost, c.SendRequest),
		cmdutil.NewHTTPHandler(createRequest, http.MethodPost, c.CreateRequest),
		cmdutil.NewHTTPHandler(acceptProposal, http.MethodPost, c.AcceptProposal),
		cmdutil.NewHTTPHandler(negotiateProposal, http.MethodPost, c.NegotiateProposal),
		cmdutil.NewHTTPHandler(declineProposal, http.MethodPost, c.DeclineProposal),
		cmdutil.NewHTTPHandler(acceptRequest, http.MethodPost, c.AcceptRequest),
		cmdutil.NewHTTPHandler(negotiateRequest, http.MethodPost, c.NegotiateRequest),
		cmdutil.NewHTTPHandler(declineRequest, http.MethodPost, c.DeclineRequest),
		cmdutil.NewHTTPHandler(acceptPresentation, http.MethodPost, c.AcceptPresentation),
		cmdutil.NewHTTPHandler(declinePresentation, http.MethodPost, c.DeclinePresentation),
	}
}

// Actions swagger:route GET /presentproof/actions present-proof presentProofActions
//
// Returns the exchanges waiting for the application to accept or decline the last received message.
//
// Responses:
//    default: genericError
//        200: presentProofRecordsResponse
func (c *Operation) Actions(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(c.command.Actions, rw, nil)
}

// Records swagger:route GET /presentproof/records present-proof presentProofRecords
//
// Lists the exchange records, narrowed by the thread_id, role and state query parameters.
//
// Responses:
//    default: genericError
//        200: presentProofRecordsResponse
func (c *Operation) Records(rw http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	args, err := json.Marshal(&cmd.RecordsArgs{
		ThreadID: query.Get("thread_id"),
		Role:     query.Get("role"),
		State:    query.Get("state"),
	})
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusInternalServerError, cmd.InvalidRequestErrorCode, err)

		return
	}

	rest.Execute(c.command.Records, rw, bytes.NewReader(args))
}

// Record swagger:route GET /presentproof/records/{record_id} present-proof presentProofRecord
//
// Returns an exchange record.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) Record(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.Record, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeleteRecord swagger:route DELETE /presentproof/records/{record_id} present-proof presentProofDeleteRecord
//
// Removes an exchange record and its messages.
//
// Responses:
//    default: genericError
func (c *Operation) DeleteRecord(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeleteRecord, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// FormatData swagger:route GET /presentproof/records/{record_id}/format-data present-proof presentProofFormatData
//
// Returns the attachment payloads of an exchange by stage and format.
//
// Responses:
//    default: genericError
//        200: presentProofFormatDataResponse
func (c *Operation) FormatData(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.FormatData, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// SendProposal swagger:route POST /presentproof/send-proposal present-proof presentProofSendProposal
//
// Sends a presentation proposal.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) SendProposal(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendProposal, rw, req.Body)
}

// SendRequest swagger:route POST /presentproof/send-request present-proof presentProofSendRequest
//
// Sends a presentation request.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) SendRequest(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendRequest, rw, req.Body)
}

// CreateRequest swagger:route POST /presentproof/create-request present-proof presentProofCreateRequest
//
// Creates a connectionless presentation request to deliver out of band.
//
// Responses:
//    default: genericError
//        200: presentProofCreateRequestResponse
func (c *Operation) CreateRequest(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateRequest, rw, req.Body)
}

// AcceptProposal swagger:route POST /presentproof/{record_id}/accept-proposal present-proof presentProofAcceptProposal
//
// Accepts a proposal and sends a request.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) AcceptProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// NegotiateProposal swagger:route POST /presentproof/{record_id}/negotiate-proposal present-proof presentProofNegotiateProposal
//
// Answers a proposal with a different request.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) NegotiateProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.NegotiateProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineProposal swagger:route POST /presentproof/{record_id}/decline-proposal present-proof presentProofDeclineProposal
//
// Declines a proposal.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) DeclineProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// AcceptRequest swagger:route POST /presentproof/{record_id}/accept-request present-proof presentProofAcceptRequest
//
// Accepts a request and sends the presentation.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) AcceptRequest(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptRequest, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// NegotiateRequest swagger:route POST /presentproof/{record_id}/negotiate-request present-proof presentProofNegotiateRequest
//
// Answers a request with a counter proposal.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) NegotiateRequest(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.NegotiateRequest, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineRequest swagger:route POST /presentproof/{record_id}/decline-request present-proof presentProofDeclineRequest
//
// Declines a request.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) DeclineRequest(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineRequest, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// AcceptPresentation swagger:route POST /presentproof/{record_id}/accept-presentation present-proof presentProofAcceptPresentation
//
// Accepts a verified presentation.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) AcceptPresentation(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptPresentation, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclinePresentation swagger:route POST /presentproof/{record_id}/decline-presentation present-proof presentProofDeclinePresentation
//
// Declines a presentation.
//
// Responses:
//    default: genericError
//        200: presentProofRecordResponse
func (c *Operation) DeclinePresentation(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclinePresentation, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}
