/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package model holds the acknowledgement and problem report messages the protocol families share.
package model

import "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"

// AckStatusOK is the status carried by a positive acknowledgement.
const AckStatusOK = "OK"

// Header addresses a message of the `@type` layout.
type Header struct {
	Type   string            `json:"@type"`
	ID     string            `json:"@id"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// HeaderV2 addresses a DIDComm V2 message.
type HeaderV2 struct {
	ID             string `json:"id,omitempty"`
	Type           string `json:"type,omitempty"`
	ThreadID       string `json:"thid,omitempty"`
	ParentThreadID string `json:"pthid,omitempty"`
}

// Ack closes an exchange.
type Ack struct {
	Header
	Status string `json:"status,omitempty"`
}

// ProblemReport abandons an exchange.
type ProblemReport struct {
	Header
	Description Code `json:"description"`
}

// Code is the machine readable reason of a problem report, with its English text.
type Code struct {
	Code    string `json:"code"`
	Message string `json:"en,omitempty"`
}

// AckV2 is Ack in the DIDComm V2 layout.
type AckV2 struct {
	HeaderV2
	Body AckV2Body `json:"body"`
}

// AckV2Body is the body of AckV2.
type AckV2Body struct {
	Status string `json:"status,omitempty"`
}

// ProblemReportV2 is ProblemReport in the DIDComm V2 layout.
type ProblemReportV2 struct {
	HeaderV2
	Body ProblemReportV2Body `json:"body"`
}

// ProblemReportV2Body is the body of ProblemReportV2.
type ProblemReportV2Body struct {
	Code    string   `json:"code,omitempty"`
	Comment string   `json:"comment,omitempty"`
	Args    []string `json:"args,omitempty"`
}
