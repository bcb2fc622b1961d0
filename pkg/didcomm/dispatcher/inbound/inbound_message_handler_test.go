/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inbound

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	serviceMocks "github.com/hyperledger/aries-framework-go-exchange/pkg/internal/gomocks/didcomm/common/service"
)

const (
	offerType  = "https://didcomm.org/issue-credential/2.0/offer-credential"
	reportType = "https://didcomm.org/issue-credential/2.0/problem-report"
)

type mockProvider struct {
	services []dispatcher.ProtocolService
	outbound dispatcher.Outbound
}

func (p *mockProvider) AllServices() []dispatcher.ProtocolService { return p.services }

func (p *mockProvider) OutboundDispatcher() dispatcher.Outbound { return p.outbound }

func TestMessageHandler_HandleInbound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	payload := []byte(`{"@id":"msg-1","@type":"` + offerType + `"}`)

	newHandler := func(svc *serviceMocks.MockHandler, sender *serviceMocks.MockSender) *MessageHandler {
		other := serviceMocks.NewMockHandler(ctrl)
		other.EXPECT().Accept(gomock.Any()).Return(false).AnyTimes()

		return NewInboundMessageHandler(&mockProvider{
			services: []dispatcher.ProtocolService{other, svc},
			outbound: sender,
		})
	}

	t.Run("invalid payload", func(t *testing.T) {
		handler := newHandler(serviceMocks.NewMockHandler(ctrl), serviceMocks.NewMockSender(ctrl))
		require.Error(t, handler.HandleInbound(ctx, []byte("{"), "conn-1"))
	})

	t.Run("no handler", func(t *testing.T) {
		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(false)

		err := newHandler(svc, serviceMocks.NewMockSender(ctrl)).HandleInbound(ctx, payload, "conn-1")
		require.ErrorIs(t, err, dispatcher.ErrNoHandler)
		require.Contains(t, err.Error(), offerType)
	})

	t.Run("no reply", func(t *testing.T) {
		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(true)
		svc.EXPECT().Name().Return("issue-credential").AnyTimes()
		svc.EXPECT().HandleInbound(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, in service.InboundMessage) (*service.OutboundMessage, error) {
				require.Equal(t, "conn-1", in.ConnectionID)
				require.Equal(t, "msg-1", in.Message.ID())

				return nil, nil
			})

		require.NoError(t, newHandler(svc, serviceMocks.NewMockSender(ctrl)).HandlerFunc()(ctx, payload, "conn-1"))
	})

	t.Run("service error", func(t *testing.T) {
		svcErr := errors.New("state assertion")

		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(true)
		svc.EXPECT().Name().Return("issue-credential").AnyTimes()
		svc.EXPECT().HandleInbound(ctx, gomock.Any()).Return(nil, svcErr)

		err := newHandler(svc, serviceMocks.NewMockSender(ctrl)).HandleInbound(ctx, payload, "conn-1")
		require.ErrorIs(t, err, svcErr)
	})

	t.Run("reply sent on the inbound connection", func(t *testing.T) {
		reply := &service.OutboundMessage{Message: service.DIDCommMsgMap{"@id": "msg-2", "@type": offerType}}

		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(true)
		svc.EXPECT().Name().Return("issue-credential").AnyTimes()
		svc.EXPECT().HandleInbound(ctx, gomock.Any()).Return(reply, nil)

		sender := serviceMocks.NewMockSender(ctrl)
		sender.EXPECT().Send(ctx, reply).Return(nil)

		require.NoError(t, newHandler(svc, sender).HandleInbound(ctx, payload, "conn-1"))
		require.Equal(t, "conn-1", reply.ConnectionID)
	})

	t.Run("problem report answers a failure", func(t *testing.T) {
		report := &service.OutboundMessage{
			Message:      service.DIDCommMsgMap{"@id": "msg-3", "@type": reportType},
			ConnectionID: "conn-1",
		}

		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(true)
		svc.EXPECT().Name().Return("issue-credential").AnyTimes()
		svc.EXPECT().HandleInbound(ctx, gomock.Any()).Return(report, errors.New("not verified"))

		sender := serviceMocks.NewMockSender(ctrl)
		sender.EXPECT().Send(ctx, report).Return(nil)

		require.NoError(t, newHandler(svc, sender).HandleInbound(ctx, payload, "conn-1"))
	})

	t.Run("reply not delivered", func(t *testing.T) {
		sendErr := errors.New("unreachable")
		reply := &service.OutboundMessage{Message: service.DIDCommMsgMap{"@id": "msg-4", "@type": offerType}}

		svc := serviceMocks.NewMockHandler(ctrl)
		svc.EXPECT().Accept(offerType).Return(true)
		svc.EXPECT().Name().Return("issue-credential").AnyTimes()
		svc.EXPECT().HandleInbound(ctx, gomock.Any()).Return(reply, nil)

		sender := serviceMocks.NewMockSender(ctrl)
		sender.EXPECT().Send(ctx, reply).Return(sendErr)

		err := newHandler(svc, sender).HandleInbound(ctx, payload, "conn-1")
		require.ErrorIs(t, err, sendErr)
		require.Contains(t, err.Error(), "send reply")
	})
}
