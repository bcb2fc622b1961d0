/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
)

// NamesKey holds the names to save the presentations under, in attachment order.
const NamesKey = "names"

// Metadata is an alias to the original Metadata.
type Metadata presentproof.Metadata

// PresentationSaver persists the verified presentations of the formats it supports.
type PresentationSaver interface {
	SupportsFormat(format string) bool
	SavePresentation(ctx context.Context, name string, raw []byte) error
}

// SavePresentation the helper function for the present proof protocol which saves the presentations the verifier
// accepts.
func SavePresentation(saver PresentationSaver) presentproof.Middleware {
	return func(next presentproof.Handler) presentproof.Handler {
		return presentproof.HandlerFunc(func(metadata presentproof.Metadata) error {
			rec := metadata.Record()
			if metadata.StateName() != presentproof.StateNameDone || rec.Role != exchange.RoleVerifier {
				return next.Handle(metadata)
			}

			if rec.IsVerified == nil || !*rec.IsVerified {
				return errors.New("presentation was not verified")
			}

			msg := metadata.Message()
			if msg == nil || len(msg.Attachments) == 0 {
				return errors.New("presentations were not provided")
			}

			properties := metadata.Properties()
			requested := namesOf(properties[NamesKey])

			var saved []string

			for i := range msg.Attachments {
				att := &msg.Attachments[i]
				if !saver.SupportsFormat(msg.FormatOf(att)) {
					continue
				}

				raw, err := att.Data.Fetch()
				if err != nil {
					return fmt.Errorf("fetch: %w", err)
				}

				name := getName(i, requested)

				if err := saver.SavePresentation(metadata.Context(), name, raw); err != nil {
					return fmt.Errorf("save presentation: %w", err)
				}

				saved = append(saved, name)
			}

			properties[NamesKey] = saved

			return next.Handle(metadata)
		})
	}
}

func getName(idx int, names []string) string {
	if len(names) > idx && names[idx] != "" {
		return names[idx]
	}

	return uuid.New().String()
}

func namesOf(v interface{}) []string {
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
