/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
	mocktransport "github.com/hyperledger/aries-framework-go-exchange/pkg/internal/didcomm/transport/mock"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/store/connection"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

type mockProvider struct {
	transports []transport.OutboundTransport
	store      storage.Provider
}

func (p *mockProvider) OutboundTransports() []transport.OutboundTransport { return p.transports }

func (p *mockProvider) StorageProvider() storage.Provider { return p.store }

func newDispatcher(t *testing.T, transports ...transport.OutboundTransport) *Dispatcher {
	t.Helper()

	p := &mockProvider{transports: transports, store: mem.NewProvider()}

	recorder, err := connection.NewRecorder(p)
	require.NoError(t, err)
	require.NoError(t, recorder.SaveConnectionRecord(&connection.Record{
		ConnectionID:    "conn-1",
		ServiceEndPoint: "http://bob.example.com/didcomm/conn-9",
	}))

	o, err := NewOutbound(p, WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	return o
}

func TestDispatcher_Send(t *testing.T) {
	ctx := context.Background()
	msg := service.DIDCommMsgMap{"@id": "msg-1", "@type": "https://didcomm.org/present-proof/2.0/request-presentation"}

	t.Run("delivers to the connection endpoint", func(t *testing.T) {
		ot := mocktransport.NewOutboundTransport("http")
		o := newDispatcher(t, mocktransport.NewOutboundTransport("ws"), ot)

		require.NoError(t, o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-1"}))

		deliveries := ot.Deliveries()
		require.Len(t, deliveries, 1)
		require.Equal(t, "http://bob.example.com/didcomm/conn-9", deliveries[0].Destination)
		require.Equal(t, transport.MediaTypeV1PlaintextPayload, deliveries[0].MediaType)

		var sent service.DIDCommMsgMap
		require.NoError(t, json.Unmarshal(deliveries[0].Data, &sent))
		require.Equal(t, "msg-1", sent.ID())
	})

	t.Run("v3 messages use the v2 media type", func(t *testing.T) {
		ot := mocktransport.NewOutboundTransport("http")
		o := newDispatcher(t, ot)

		v3 := service.DIDCommMsgMap{"id": "msg-2", "type": "https://didcomm.org/present-proof/3.0/request-presentation"}
		require.NoError(t, o.SendTo(ctx, v3, &service.Destination{ServiceEndpoint: "https://carol.example.com"}))

		deliveries := ot.Deliveries()
		require.Len(t, deliveries, 1)
		require.Equal(t, "https://carol.example.com", deliveries[0].Destination)
		require.Equal(t, transport.MediaTypeV2PlaintextPayload, deliveries[0].MediaType)
	})

	t.Run("retries temporary failures", func(t *testing.T) {
		ot := mocktransport.NewOutboundTransport("http", errors.New("timeout"), errors.New("timeout"))
		o := newDispatcher(t, ot)

		require.NoError(t, o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-1"}))
		require.Len(t, ot.Deliveries(), 3)
	})

	t.Run("gives up after the retries", func(t *testing.T) {
		ot := mocktransport.NewOutboundTransport("http",
			errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"))
		o := newDispatcher(t, ot)

		err := o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-1"})
		require.EqualError(t, err, "timeout")
		require.Len(t, ot.Deliveries(), 3)
	})

	t.Run("does not retry rejected messages", func(t *testing.T) {
		ot := mocktransport.NewOutboundTransport("http", fmt.Errorf("status 400: %w", transport.ErrRecipientRejected))
		o := newDispatcher(t, ot)

		err := o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-1"})
		require.ErrorIs(t, err, transport.ErrRecipientRejected)
		require.Len(t, ot.Deliveries(), 1)
	})

	t.Run("unknown connection", func(t *testing.T) {
		o := newDispatcher(t, mocktransport.NewOutboundTransport("http"))

		err := o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-2"})
		require.ErrorIs(t, err, connection.ErrConnectionNotFound)
	})

	t.Run("no transport", func(t *testing.T) {
		o := newDispatcher(t, mocktransport.NewOutboundTransport("ws"))

		err := o.Send(ctx, &service.OutboundMessage{Message: msg, ConnectionID: "conn-1"})
		require.ErrorContains(t, err, "no outbound transport found")
	})

	t.Run("empty message", func(t *testing.T) {
		o := newDispatcher(t)

		require.EqualError(t, o.Send(ctx, nil), "outbound message is empty")
		require.EqualError(t, o.SendTo(ctx, msg, nil), "destination is empty")
	})
}
