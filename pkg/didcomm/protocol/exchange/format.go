/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

// FormatService handles the payloads of one credential or proof technology.
//
// The stage passed to Create is the stage being produced. Process and ShouldAutoRespond receive the
// stage of the inbound message. Accept receives the stage being accepted (the last received one).
// A predecessor is the attachment of the same service in the message that the current one answers,
// nil when there is none.
type FormatService interface {
	// FormatKey is the key payloads are addressed by, e.g. "aries/attributes".
	FormatKey() string
	// SupportsFormat reports whether the service handles the wire format identifier.
	SupportsFormat(format string) bool
	Create(ctx context.Context, stage Stage, rec *Record, input interface{}) (*FormatOutput, error)
	// Process consumes an inbound attachment. The result is only meaningful for the issue stage,
	// where it tells whether the payload is valid.
	Process(ctx context.Context, stage Stage, rec *Record, att, predecessor *decorator.AttachmentV2) (bool, error)
	Accept(ctx context.Context, stage Stage, rec *Record, predecessor *decorator.AttachmentV2,
		input interface{}) (*FormatOutput, error)
	ShouldAutoRespond(ctx context.Context, stage Stage, rec *Record, received,
		predecessor *decorator.AttachmentV2) (bool, error)
}

// Registry keeps the format services of one family in registration order.
type Registry struct {
	services []FormatService
	byKey    map[string]FormatService
}

// NewRegistry builds a registry. Format keys must be unique.
func NewRegistry(services ...FormatService) (*Registry, error) {
	r := &Registry{byKey: make(map[string]FormatService, len(services))}

	for _, svc := range services {
		key := svc.FormatKey()
		if _, ok := r.byKey[key]; ok {
			return nil, fmt.Errorf("format service %q registered twice", key)
		}

		r.byKey[key] = svc
		r.services = append(r.services, svc)
	}

	return r, nil
}

// Services returns all services in registration order.
func (r *Registry) Services() []FormatService {
	return append([]FormatService(nil), r.services...)
}

// ForKeys resolves services by format key, in registration order.
func (r *Registry) ForKeys(keys []string) ([]FormatService, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no format given", ErrUnsupportedFormat)
	}

	wanted := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		if _, ok := r.byKey[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, key)
		}

		wanted[key] = struct{}{}
	}

	var result []FormatService

	for _, svc := range r.services {
		if _, ok := wanted[svc.FormatKey()]; ok {
			result = append(result, svc)
		}
	}

	return result, nil
}

// ForFormats returns the distinct services supporting any of the wire format identifiers.
func (r *Registry) ForFormats(formats []string) []FormatService {
	var result []FormatService

	for _, svc := range r.services {
		for _, f := range formats {
			if svc.SupportsFormat(f) {
				result = append(result, svc)

				break
			}
		}
	}

	return result
}

func inputKeys(inputs map[string]interface{}) []string {
	keys := maps.Keys(inputs)
	slices.Sort(keys)

	return keys
}
