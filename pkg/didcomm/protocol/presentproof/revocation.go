/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

// RevocationStatusResolver tells whether a presented credential was revoked.
type RevocationStatusResolver interface {
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
}

// NotImplementedRevocationResolver is the default resolver. Every lookup fails with
// exchange.ErrRevocationNotImplemented, which proof formats read as "status unknown".
type NotImplementedRevocationResolver struct{}

// IsRevoked always fails with exchange.ErrRevocationNotImplemented.
func (NotImplementedRevocationResolver) IsRevoked(context.Context, string) (bool, error) {
	return false, exchange.ErrRevocationNotImplemented
}
