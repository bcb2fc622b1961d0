/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"

	"golang.org/x/exp/maps"
)

// AutoAcceptComposer decides whether an inbound message is answered without asking the application.
type AutoAcceptComposer struct {
	family       *Family
	coordinator  *Coordinator
	agentDefault AutoAccept
}

// NewAutoAcceptComposer returns a composer. agentDefault may be empty.
func NewAutoAcceptComposer(family *Family, coordinator *Coordinator, agentDefault AutoAccept) *AutoAcceptComposer {
	return &AutoAcceptComposer{family: family, coordinator: coordinator, agentDefault: agentDefault}
}

// Effective returns the record override, then the agent default, then never.
func (c *AutoAcceptComposer) Effective(rec *Record) AutoAccept {
	switch {
	case rec.AutoAccept != "":
		return rec.AutoAccept
	case c.agentDefault != "":
		return c.agentDefault
	default:
		return AutoAcceptNever
	}
}

// ShouldAutoRespond tells whether received, already processed for rec, should be accepted right away.
// Service errors are vetoes.
func (c *AutoAcceptComposer) ShouldAutoRespond(ctx context.Context, rec *Record, received *StageMessage) bool {
	switch c.Effective(rec) {
	case AutoAcceptAlways:
		return true
	case AutoAcceptContentApproved:
		return c.contentApproved(ctx, rec, received)
	default:
		return false
	}
}

func (c *AutoAcceptComposer) contentApproved(ctx context.Context, rec *Record, received *StageMessage) bool {
	answered, ok := c.family.Responds[received.Stage]
	if !ok {
		return false
	}

	services, predecessor, err := c.coordinator.ActiveServices(ctx, rec.ID, answered)
	if err != nil {
		logger.Debugf("auto accept of %s for %s vetoed: %s", received.Stage, rec.ID, err)

		return false
	}

	if predecessor == nil || len(services) == 0 {
		return false
	}

	for _, svc := range services {
		att := resolveAttachment(received, svc)
		if att == nil {
			return false
		}

		agree, err := svc.ShouldAutoRespond(ctx, received.Stage, rec, att, resolveAttachment(predecessor, svc))
		if err != nil {
			logger.Debugf("%s vetoed auto accept of %s for %s: %s", svc.FormatKey(), received.Stage, rec.ID, err)

			return false
		}

		if !agree {
			return false
		}
	}

	if c.family.ComparePreview && (received.Stage == StageProposal || received.Stage == StageOffer) {
		if !PreviewsEqual(predecessor.Preview, received.Preview) {
			return false
		}
	}

	if c.family.RequireWillConfirm && received.Stage == StageIssue && !predecessor.WillConfirm {
		return false
	}

	return true
}

// PreviewsEqual compares previews as unordered name to value maps. A preview present on one side only
// never equals.
func PreviewsEqual(a, b []PreviewAttribute) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}

	if len(a) != len(b) {
		return false
	}

	return maps.Equal(previewMap(a), previewMap(b))
}

func previewMap(attrs []PreviewAttribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}

	return m
}
