/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package aries runs DIDComm credential issuance and proof presentation exchanges
// (https://www.hyperledger.org/projects/aries).
//
// Packages for end developer usage
//
// pkg/framework/aries: The main package of the framework. This package enables creation of context based on
// provider options. This context is used by the client packages listed below.
//
// pkg/client/issuecredential: Issue Credential protocol through SDK.
//
// pkg/client/presentproof: Present Proof protocol through SDK.
//
// pkg/controller: Both protocols and the connection store through the command and REST controllers.
//
// pkg/didcomm/protocol/exchange: The engine shared by both protocols: records, versions, formats and auto accept.
//
// Basic workflow
//
//      1) Instantiate a aries instance using a provider options.
//      2) Create a context using your aries instance.
//      3) Save the connections the exchanges run on.
//      4) Create a client instance using its New func, passing the context.
//      5) Use the funcs provided by each client to create your solution!
//      6) Call aries.Close() to release resources.
package aries
