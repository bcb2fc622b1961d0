/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	cmd "github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
)

const (
	operationID       = "/issuecredential"
	actions           = operationID + "/actions"
	records           = operationID + "/records"
	record            = operationID + "/records/{record_id}"
	formatData        = operationID + "/records/{record_id}/format-data"
	sendProposal      = operationID + "/send-proposal"
	sendOffer         = operationID + "/send-offer"
	createOffer       = operationID + "/create-offer"
	sendRequest       = operationID + "/send-request"
	acceptProposal    = operationID + "/{record_id}/accept-proposal"
	negotiateProposal = operationID + "/{record_id}/negotiate-proposal"
	declineProposal   = operationID + "/{record_id}/decline-proposal"
	acceptOffer       = operationID + "/{record_id}/accept-offer"
	negotiateOffer    = operationID + "/{record_id}/negotiate-offer"
	declineOffer      = operationID + "/{record_id}/decline-offer"
	acceptRequest     = operationID + "/{record_id}/accept-request"
	declineRequest    = operationID + "/{record_id}/decline-request"
	acceptCredential  = operationID + "/{record_id}/accept-credential"
	declineCredential = operationID + "/{record_id}/decline-credential"
)

const recordIDVar = "record_id"

// Operation is controller REST service controller for issue credential.
type Operation struct {
	command  *cmd.Command
	handlers []rest.Handler
}

// New returns new issue credential rest client protocol instance.
func New(ctx cmd.Provider, notifier command.Notifier) (*Operation, error) {
	c, err := cmd.New(ctx, notifier)
	if err != nil {
		return nil, fmt.Errorf("issue credential command : %w", err)
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
		cmdutil.NewHTTPHandler(sendOffer, http.MethodPost, c.SendOffer),
		cmdutil.NewHTTPHandler(createOffer, http.MethodPost, c.CreateOffer),
		cmdutil.NewHTTPHandler(sendRequest, http.MethodPost, c.SendRequest),
		cmdutil.NewHTTPHandler(acceptProposal, http.MethodPost, c.AcceptProposal),
		cmdutil.NewHTTPHandler(negotiateProposal, http.MethodPost, c.NegotiateProposal),
		cmdutil.NewHTTPHandler(declineProposal, http.MethodPost, c.DeclineProposal),
		cmdutil.NewHTTPHandler(acceptOffer, http.MethodPost, c.AcceptOffer),
		cmdutil.NewHTTPHandler(negotiateOffer, http.MethodPost, c.NegotiateOffer),
		cmdutil.NewHTTPHandler(declineOffer, http.MethodPost, c.DeclineOffer),
		cmdutil.NewHTTPHandler(acceptRequest, http.MethodPost, c.AcceptRequest),
		cmdutil.NewHTTPHandler(declineRequest, http.MethodPost, c.DeclineRequest),
		cmdutil.NewHTTPHandler(acceptCredential, http.MethodPost, c.AcceptCredential),
		cmdutil.NewHTTPHandler(declineCredential, http.MethodPost, c.DeclineCredential),
	}
}

// Actions swagger:route GET /issuecredential/actions issue-credential issueCredentialActions
//
// Returns the exchanges waiting for the application to accept or decline the last received message.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordsResponse
func (c *Operation) Actions(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(c.command.Actions, rw, nil)
}

// Records swagger:route GET /issuecredential/records issue-credential issueCredentialRecords
//
// Lists the exchange records, narrowed by the thread_id, role and state query parameters.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordsResponse
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

// Record swagger:route GET /issuecredential/records/{record_id} issue-credential issueCredentialRecord
//
// Returns an exchange record.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) Record(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.Record, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeleteRecord swagger:route DELETE /issuecredential/records/{record_id} issue-credential issueCredentialDeleteRecord
//
// Removes an exchange record and its messages.
//
// Responses:
//    default: genericError
func (c *Operation) DeleteRecord(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeleteRecord, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// FormatData swagger:route GET /issuecredential/records/{record_id}/format-data issue-credential issueCredentialFormatData
//
// Returns the attachment payloads of an exchange by stage and format.
//
// Responses:
//    default: genericError
//        200: issueCredentialFormatDataResponse
func (c *Operation) FormatData(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.FormatData, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// SendProposal swagger:route POST /issuecredential/send-proposal issue-credential issueCredentialSendProposal
//
// Sends a credential proposal.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) SendProposal(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendProposal, rw, req.Body)
}

// SendOffer swagger:route POST /issuecredential/send-offer issue-credential issueCredentialSendOffer
//
// Sends a credential offer.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) SendOffer(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendOffer, rw, req.Body)
}

// CreateOffer swagger:route POST /issuecredential/create-offer issue-credential issueCredentialCreateOffer
//
// Creates a connectionless credential offer to deliver out of band.
//
// Responses:
//    default: genericError
//        200: issueCredentialCreateOfferResponse
func (c *Operation) CreateOffer(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateOffer, rw, req.Body)
}

// SendRequest swagger:route POST /issuecredential/send-request issue-credential issueCredentialSendRequest
//
// Sends a credential request.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) SendRequest(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendRequest, rw, req.Body)
}

// AcceptProposal swagger:route POST /issuecredential/{record_id}/accept-proposal issue-credential issueCredentialAcceptProposal
//
// Accepts a proposal and sends an offer.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) AcceptProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// NegotiateProposal swagger:route POST /issuecredential/{record_id}/negotiate-proposal issue-credential issueCredentialNegotiateProposal
//
// Answers a proposal with a counter offer.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) NegotiateProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.NegotiateProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineProposal swagger:route POST /issuecredential/{record_id}/decline-proposal issue-credential issueCredentialDeclineProposal
//
// Declines a proposal.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) DeclineProposal(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineProposal, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// AcceptOffer swagger:route POST /issuecredential/{record_id}/accept-offer issue-credential issueCredentialAcceptOffer
//
// Accepts an offer and sends a request.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) AcceptOffer(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptOffer, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// NegotiateOffer swagger:route POST /issuecredential/{record_id}/negotiate-offer issue-credential issueCredentialNegotiateOffer
//
// Answers an offer with a counter proposal.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) NegotiateOffer(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.NegotiateOffer, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineOffer swagger:route POST /issuecredential/{record_id}/decline-offer issue-credential issueCredentialDeclineOffer
//
// Declines an offer.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) DeclineOffer(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineOffer, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// AcceptRequest swagger:route POST /issuecredential/{record_id}/accept-request issue-credential issueCredentialAcceptRequest
//
// Accepts a request and issues the credential.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) AcceptRequest(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptRequest, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineRequest swagger:route POST /issuecredential/{record_id}/decline-request issue-credential issueCredentialDeclineRequest
//
// Declines a request.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) DeclineRequest(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineRequest, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// AcceptCredential swagger:route POST /issuecredential/{record_id}/accept-credential issue-credential issueCredentialAcceptCredential
//
// Accepts an issued credential, stores it and acknowledges the issuer.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) AcceptCredential(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.AcceptCredential, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}

// DeclineCredential swagger:route POST /issuecredential/{record_id}/decline-credential issue-credential issueCredentialDeclineCredential
//
// Declines an issued credential.
//
// Responses:
//    default: genericError
//        200: issueCredentialRecordResponse
func (c *Operation) DeclineCredential(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.DeclineCredential, cmd.InvalidRequestErrorCode, rw, req, recordIDVar)
}
