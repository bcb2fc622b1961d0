/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

type previewFormat struct {
	*stubFormat
	preview []PreviewAttribute
}

func (p *previewFormat) Create(ctx context.Context, stage Stage, rec *Record, input interface{}) (*FormatOutput,
	error) {
	out, err := p.stubFormat.Create(ctx, stage, rec, input)
	if err != nil {
		return nil, err
	}

	out.MediaType = "application/ld+json"
	out.Preview = p.preview

	return out, nil
}

func newCoordinator(t *testing.T, services ...FormatService) *Coordinator {
	t.Helper()

	messages, err := NewMessageStore(mem.NewProvider())
	require.NoError(t, err)

	registry, err := NewRegistry(services...)
	require.NoError(t, err)

	return NewCoordinator(registry, messages)
}

func TestCoordinatorCreate(t *testing.T) {
	ctx := context.Background()
	alpha := newStub(keyAlpha, formatAlpha)
	beta := &previewFormat{
		stubFormat: newStub(keyBeta, formatBeta),
		preview:    []PreviewAttribute{{Name: "name", Value: "ignored"}, {Name: "age", Value: "30"}},
	}
	c := newCoordinator(t, alpha, beta)
	rec := &Record{ID: "r1"}

	msg := &StageMessage{ID: "m1", Stage: StageOffer, Preview: []PreviewAttribute{{Name: "name", Value: "Alice"}}}
	require.NoError(t, c.Create(ctx, rec, msg, []FormatService{alpha, beta}, formats(keyAlpha)))

	require.Len(t, msg.Formats, 2)
	require.Len(t, msg.Attachments, 2)

	for i, f := range msg.Formats {
		require.Equal(t, f.AttachID, msg.Attachments[i].ID)
		require.Equal(t, f.Format, msg.Attachments[i].Format)
	}

	require.Equal(t, defaultMediaType, msg.Attachments[0].MediaType)
	require.Equal(t, "application/ld+json", msg.Attachments[1].MediaType)
	require.Equal(t, map[string]interface{}{"stage": "offer", "input": map[string]interface{}{"from": keyAlpha}},
		msg.Attachments[0].Data.JSON)
	require.Equal(t, map[string]interface{}{"stage": "offer", "input": nil}, msg.Attachments[1].Data.JSON)
	require.Equal(t, []PreviewAttribute{{Name: "name", Value: "Alice"}, {Name: "age", Value: "30"}}, msg.Preview)

	sent, err := c.messages.Get(ctx, rec.ID, StageOffer, Sender)
	require.NoError(t, err)
	require.Equal(t, msg.ID, sent.ID)
}

func TestCoordinatorProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed attachment layouts", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		c := newCoordinator(t, alpha, beta)

		msg := &StageMessage{
			ID:      "m1",
			Stage:   StageProposal,
			Formats: []FormatSpec{{AttachID: "legacy", Format: formatAlpha}},
			Attachments: []decorator.AttachmentV2{
				{ID: "legacy", Data: decorator.AttachmentData{JSON: "a"}},
				{ID: "tagged", Format: formatBeta, Data: decorator.AttachmentData{JSON: "b"}},
			},
		}

		outcome, err := c.Process(ctx, &Record{ID: "r1"}, msg, StageOffer, false, false)
		require.NoError(t, err)
		require.True(t, outcome.Valid)
		require.Equal(t, []Stage{StageProposal}, alpha.processed)
		require.Equal(t, []Stage{StageProposal}, beta.processed)
		require.Len(t, c.ServicesForMessage(msg), 2)

		received, err := c.messages.Get(ctx, "r1", StageProposal, Receiver)
		require.NoError(t, err)
		require.Equal(t, msg, received)
	})

	t.Run("attachments no service understands", func(t *testing.T) {
		c := newCoordinator(t, newStub(keyAlpha, formatAlpha))

		msg := &StageMessage{
			ID:          "m1",
			Stage:       StageProposal,
			Attachments: []decorator.AttachmentV2{{ID: "x", Format: "gamma@v1"}},
		}

		_, err := c.Process(ctx, &Record{ID: "r1"}, msg, StageOffer, false, false)
		require.ErrorIs(t, err, ErrUnsupportedFormat)

		_, err = c.messages.Get(ctx, "r1", StageProposal, Receiver)
		require.ErrorIs(t, err, ErrMessageNotFound)
	})

	t.Run("no attachments", func(t *testing.T) {
		c := newCoordinator(t, newStub(keyAlpha, formatAlpha))

		outcome, err := c.Process(ctx, &Record{ID: "r1"}, &StageMessage{ID: "m1", Stage: StageProposal}, StageOffer,
			false, false)
		require.NoError(t, err)
		require.True(t, outcome.Valid)
	})

	t.Run("service error fails processing", func(t *testing.T) {
		alpha := newStub(keyAlpha, formatAlpha)
		alpha.failOn = StageOffer
		alpha.processErr = errors.New("malformed")
		c := newCoordinator(t, alpha)

		msg := &StageMessage{
			ID: "m1", Stage: StageOffer,
			Attachments: []decorator.AttachmentV2{{ID: "x", Format: formatAlpha}},
		}

		_, err := c.Process(ctx, &Record{ID: "r1"}, msg, StageProposal, false, false)
		require.EqualError(t, err, "alpha: process offer: malformed")
	})

	t.Run("strict ignores formats we never sent", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		c := newCoordinator(t, alpha, beta)

		offer := &StageMessage{
			ID: "o1", Stage: StageOffer,
			Attachments: []decorator.AttachmentV2{{ID: "a", Format: formatAlpha}},
		}
		require.NoError(t, c.messages.Save(ctx, "r1", Sender, offer))

		request := &StageMessage{
			ID: "q1", Stage: StageRequest,
			Attachments: []decorator.AttachmentV2{{ID: "a", Format: formatAlpha}, {ID: "b", Format: formatBeta}},
		}

		_, err := c.Process(ctx, &Record{ID: "r1"}, request, StageOffer, true, false)
		require.NoError(t, err)
		require.Equal(t, []Stage{StageRequest}, alpha.processed)
		require.Empty(t, beta.processed)
	})

	t.Run("strict participation lists every missing format", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		c := newCoordinator(t, alpha, beta)
		rec := &Record{ID: "r1"}

		request := &StageMessage{ID: "req", Stage: StageRequest}
		require.NoError(t, c.Create(ctx, rec, request, []FormatService{alpha, beta}, nil))

		_, err := c.Process(ctx, rec, &StageMessage{ID: "m1", Stage: StageIssue}, StageRequest, true, true)

		var uerr *UnresolvedFormatAttachmentError
		require.True(t, errors.As(err, &uerr))
		require.Equal(t, []string{formatAlpha, formatBeta}, uerr.Formats)
		require.Empty(t, alpha.processed)
	})

	t.Run("verification collects the first error", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		alpha.invalid = true
		beta.failOn = StageIssue
		beta.processErr = errors.New("revoked")
		c := newCoordinator(t, alpha, beta)

		msg := &StageMessage{
			ID: "m1", Stage: StageIssue,
			Attachments: []decorator.AttachmentV2{{ID: "a", Format: formatAlpha}, {ID: "b", Format: formatBeta}},
		}

		outcome, err := c.Process(ctx, &Record{ID: "r1"}, msg, StageRequest, true, true)
		require.NoError(t, err)
		require.False(t, outcome.Valid)
		require.Equal(t, "revoked", outcome.Reason)
	})
}

func TestCoordinatorAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with the services of the received message", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		c := newCoordinator(t, alpha, beta)
		rec := &Record{ID: "r1"}

		offer := &StageMessage{
			ID: "o1", Stage: StageOffer,
			Attachments: []decorator.AttachmentV2{{ID: "b", Format: formatBeta}},
		}
		require.NoError(t, c.messages.Save(ctx, rec.ID, Receiver, offer))

		request := &StageMessage{ID: "q1", Stage: StageRequest}
		require.NoError(t, c.Accept(ctx, rec, StageOffer, request, formats(keyAlpha, keyBeta), ""))
		require.Len(t, request.Attachments, 1)
		require.Equal(t, formatBeta, request.Attachments[0].Format)
	})

	t.Run("falls back to inputs", func(t *testing.T) {
		c := newCoordinator(t, newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta))
		rec := &Record{ID: "r1"}

		require.NoError(t, c.messages.Save(ctx, rec.ID, Receiver, &StageMessage{ID: "p1", Stage: StageProposal}))

		offer := &StageMessage{ID: "o1", Stage: StageOffer}
		require.NoError(t, c.Accept(ctx, rec, StageProposal, offer, formats(keyAlpha), ""))
		require.Len(t, offer.Attachments, 1)
		require.Equal(t, formatAlpha, offer.Attachments[0].Format)

		err := c.Accept(ctx, rec, StageProposal, &StageMessage{ID: "o2", Stage: StageOffer}, nil, "")
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("bound to the formats we sent", func(t *testing.T) {
		alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)
		c := newCoordinator(t, alpha, beta)
		rec := &Record{ID: "r1"}

		offer := &StageMessage{
			ID: "o1", Stage: StageOffer,
			Attachments: []decorator.AttachmentV2{{ID: "a", Format: formatAlpha}},
		}
		require.NoError(t, c.messages.Save(ctx, rec.ID, Sender, offer))

		request := &StageMessage{
			ID: "q1", Stage: StageRequest,
			Attachments: []decorator.AttachmentV2{{ID: "a", Format: formatAlpha}, {ID: "b", Format: formatBeta}},
		}
		require.NoError(t, c.messages.Save(ctx, rec.ID, Receiver, request))

		issue := &StageMessage{ID: "i1", Stage: StageIssue}
		require.NoError(t, c.Accept(ctx, rec, StageRequest, issue, nil, StageOffer))
		require.Len(t, issue.Attachments, 1)
		require.Equal(t, formatAlpha, issue.Attachments[0].Format)

		betaOnly := &StageMessage{
			ID: "q2", Stage: StageRequest,
			Attachments: []decorator.AttachmentV2{{ID: "b", Format: formatBeta}},
		}
		require.NoError(t, c.messages.Save(ctx, rec.ID, Receiver, betaOnly))

		err := c.Accept(ctx, rec, StageRequest, &StageMessage{ID: "i2", Stage: StageIssue}, nil, StageOffer)
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("nothing received", func(t *testing.T) {
		c := newCoordinator(t, newStub(keyAlpha, formatAlpha))

		err := c.Accept(ctx, &Record{ID: "r1"}, StageOffer, &StageMessage{Stage: StageRequest}, nil, "")
		require.ErrorIs(t, err, ErrMessageNotFound)
	})
}

func TestCoordinatorFormatData(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta))
	rec := &Record{ID: "r1"}

	received := &StageMessage{
		ID: "o1", Stage: StageOffer,
		Attachments: []decorator.AttachmentV2{
			{ID: "a", Format: formatAlpha, Data: decorator.AttachmentData{JSON: "theirs"}},
			{ID: "b", Format: formatBeta, Data: decorator.AttachmentData{Base64: "cGxhaW4gdGV4dA=="}},
		},
	}
	require.NoError(t, c.messages.Save(ctx, rec.ID, Receiver, received))

	sent := &StageMessage{
		ID: "o2", Stage: StageOffer,
		Attachments: []decorator.AttachmentV2{
			{ID: "a", Format: formatAlpha, Data: decorator.AttachmentData{JSON: map[string]interface{}{"k": "ours"}}},
		},
	}
	require.NoError(t, c.messages.Save(ctx, rec.ID, Sender, sent))

	data, err := c.FormatData(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"k": "ours"}, data[StageOffer][keyAlpha])
	require.Equal(t, "plain text", data[StageOffer][keyBeta])

	services, predecessor, err := c.ActiveServices(ctx, rec.ID, StageOffer)
	require.NoError(t, err)
	require.Equal(t, "o2", predecessor.ID)
	require.Len(t, services, 1)

	services, predecessor, err = c.ActiveServices(ctx, rec.ID, StageRequest)
	require.NoError(t, err)
	require.Nil(t, predecessor)
	require.Empty(t, services)
}
