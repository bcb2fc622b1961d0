/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
)

const (
	// SkipCredentialSaveKey is present in metadata properties as `true` then accepted credential will not be saved
	// by middleware.
	SkipCredentialSaveKey = "skip-credential-save"
	// NamesKey holds the names to save the credentials under, in attachment order. After saving it holds the
	// names that were used.
	NamesKey = "names"
)

var logger = log.New("aries-framework/issuecredential/middleware")

// Metadata is an alias to the original Metadata.
type Metadata issuecredential.Metadata

// CredentialSaver persists the credentials of the formats it supports.
type CredentialSaver interface {
	SupportsFormat(format string) bool
	// SaveCredential stores the raw credential, an empty name lets the saver pick one.
	SaveCredential(ctx context.Context, name string, raw []byte) error
}

// SaveCredentials the helper function for the issue credential protocol which saves credentials when the holder
// accepts them.
func SaveCredentials(saver CredentialSaver) issuecredential.Middleware {
	return func(next issuecredential.Handler) issuecredential.Handler {
		return issuecredential.HandlerFunc(func(metadata issuecredential.Metadata) error {
			if metadata.StateName() != issuecredential.StateNameDone || metadata.Record().Role != exchange.RoleHolder {
				return next.Handle(metadata)
			}

			properties := metadata.Properties()

			// skip storage if SkipCredentialSaveKey is enabled
			if val, ok := properties[SkipCredentialSaveKey]; ok {
				if skip, ok := val.(bool); ok && skip {
					return next.Handle(metadata)
				}
			}

			msg := metadata.Message()
			if msg == nil || len(msg.Attachments) == 0 {
				return errors.New("credentials were not provided")
			}

			requested := names(properties[NamesKey])

			var saved []string

			for i := range msg.Attachments {
				att := &msg.Attachments[i]

				format := msg.FormatOf(att)
				if !saver.SupportsFormat(format) {
					logger.Debugf("credential %s of format %q is not saved", att.ID, format)

					continue
				}

				raw, err := att.Data.Fetch()
				if err != nil {
					return fmt.Errorf("fetch: %w", err)
				}

				var name string
				if len(requested) > i {
					name = requested[i]
				}

				if err := saver.SaveCredential(metadata.Context(), name, raw); err != nil {
					return fmt.Errorf("save credential: %w", err)
				}

				saved = append(saved, name)
			}

			properties[NamesKey] = saved

			return next.Handle(metadata)
		})
	}
}

// names reads the names property, set either by Go callers or decoded from JSON.
func names(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		result := make([]string, len(val))

		for i := range val {
			result[i], _ = val[i].(string) // nolint: errcheck
		}

		return result
	default:
		return nil
	}
}
