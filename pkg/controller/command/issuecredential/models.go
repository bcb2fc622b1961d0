/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

// SendArgs model
//
// This is used for starting an issue credential exchange on a connection.
type SendArgs struct {
	// ConnectionID of the connection to send the message on.
	ConnectionID string `json:"connection_id"`

	// Version of the protocol, v1, v2 or v3. The agent default when empty.
	Version string `json:"version,omitempty"`

	// Formats holds the input of each credential format, keyed by format key.
	Formats map[string]interface{} `json:"formats"`

	// Preview is the credential preview sent along.
	Preview []exchange.PreviewAttribute `json:"credential_preview,omitempty"`

	Comment        string `json:"comment,omitempty"`
	GoalCode       string `json:"goal_code,omitempty"`
	AutoAccept     string `json:"auto_accept,omitempty"`
	ParentThreadID string `json:"parent_thread_id,omitempty"`
}

// AcceptArgs model
//
// This is used for answering a received message of an exchange.
type AcceptArgs struct {
	// RecordID of the exchange.
	RecordID string `json:"record_id"`

	Formats    map[string]interface{}      `json:"formats,omitempty"`
	Preview    []exchange.PreviewAttribute `json:"credential_preview,omitempty"`
	Comment    string                      `json:"comment,omitempty"`
	GoalCode   string                      `json:"goal_code,omitempty"`
	AutoAccept string                      `json:"auto_accept,omitempty"`

	// Names to save the received credentials under, in attachment order.
	Names []string `json:"names,omitempty"`

	// SkipStore leaves the received credentials unsaved.
	SkipStore bool `json:"skip_store,omitempty"`
}

// DeclineArgs model
//
// This is used when an exchange is declined.
type DeclineArgs struct {
	RecordID string `json:"record_id"`

	// Reason is sent to the other party in the problem report.
	Reason string `json:"reason,omitempty"`
}

// RecordIDArgs model
//
// This is used for the commands addressing one record.
type RecordIDArgs struct {
	RecordID string `json:"record_id"`
}

// RecordsArgs model
//
// This is used for listing records. Empty fields match anything.
type RecordsArgs struct {
	ThreadID string `json:"thread_id,omitempty"`
	Role     string `json:"role,omitempty"`
	State    string `json:"state,omitempty"`
}

// RecordResponse model
//
// Represents a response of the commands changing a record.
type RecordResponse struct {
	Record *exchange.Record `json:"record"`
}

// RecordsResponse model
//
// Represents a response of the records and actions commands.
type RecordsResponse struct {
	Records []*exchange.Record `json:"records"`
}

// FormatDataResponse model
//
// Represents the attachment payloads of an exchange, by stage then format key.
type FormatDataResponse struct {
	FormatData map[exchange.Stage]map[string]interface{} `json:"format_data"`
}

// CreateOfferResponse model
//
// Represents a connectionless offer to deliver out of band.
type CreateOfferResponse struct {
	Record  *exchange.Record       `json:"record"`
	Message map[string]interface{} `json:"message"`
}

// DeleteRecordResponse model
//
// Represents a response of the delete record command.
type DeleteRecordResponse struct{}
