/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import "github.com/hyperledger/aries-framework-go-exchange/pkg/store/connection"

// SaveConnectionArgs model
//
// This is used for registering a connection established out of band.
type SaveConnectionArgs struct {
	// ConnectionID is generated when empty.
	ConnectionID string `json:"connection_id,omitempty"`

	// ServiceEndpoint is where messages on the connection are delivered.
	ServiceEndpoint string `json:"service_endpoint"`

	TheirLabel    string   `json:"their_label,omitempty"`
	TheirDID      string   `json:"their_did,omitempty"`
	MyDID         string   `json:"my_did,omitempty"`
	RecipientKeys []string `json:"recipient_keys,omitempty"`
}

// IDArgs model
//
// This is used for the commands addressing one connection.
type IDArgs struct {
	ID string `json:"id"`
}

// ConnectionResponse model
//
// Represents one connection record.
type ConnectionResponse struct {
	Result *connection.Record `json:"result"`
}

// QueryConnectionsResponse model
//
// Represents the stored connection records.
type QueryConnectionsResponse struct {
	Results []*connection.Record `json:"results"`
}
