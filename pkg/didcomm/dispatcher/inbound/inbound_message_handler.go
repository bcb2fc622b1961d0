/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inbound

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
)

var logger = log.New("aries-framework/dispatcher/inbound")

// MessageHandler handles inbound messages, dispatching them to a protocol service based on the
// message type and delivering the reply of the service.
type MessageHandler struct {
	services []dispatcher.ProtocolService
	outbound dispatcher.Outbound
}

type provider interface {
	AllServices() []dispatcher.ProtocolService
	OutboundDispatcher() dispatcher.Outbound
}

// NewInboundMessageHandler creates an inbound message handler that dispatches messages to the
// appropriate ProtocolService.
func NewInboundMessageHandler(p provider) *MessageHandler {
	return &MessageHandler{
		services: p.AllServices(),
		outbound: p.OutboundDispatcher(),
	}
}

// HandlerFunc returns the MessageHandler's transport.InboundMessageHandler function.
func (handler *MessageHandler) HandlerFunc() transport.InboundMessageHandler {
	return handler.HandleInbound
}

// HandleInbound parses the payload received on a connection and dispatches it.
func (handler *MessageHandler) HandleInbound(ctx context.Context, payload []byte, connectionID string) error {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return err
	}

	return handler.Dispatch(ctx, service.InboundMessage{Message: msg, ConnectionID: connectionID})
}

// Dispatch hands the message to the service which accepts its type. A reply produced by the service is
// sent back on the connection. When the service answers a failure with a reply (a problem report),
// the failure is logged and the message counts as handled.
func (handler *MessageHandler) Dispatch(ctx context.Context, in service.InboundMessage) error {
	foundService := handler.serviceFor(in.Message.Type())
	if foundService == nil {
		return fmt.Errorf("%w for the message type: %s", dispatcher.ErrNoHandler, in.Message.Type())
	}

	logger.Debugf("dispatching %s on connection %s to %s", in.Message.Type(), in.ConnectionID, foundService.Name())

	reply, err := foundService.HandleInbound(ctx, in)
	if reply == nil {
		return err
	}

	if reply.ConnectionID == "" {
		reply.ConnectionID = in.ConnectionID
	}

	if sendErr := handler.outbound.Send(ctx, reply); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send reply %s: %w", reply.Message.Type(), sendErr))
	}

	if err != nil {
		logger.Warnf("%s answered %s with %s: %s", foundService.Name(), in.Message.Type(), reply.Message.Type(), err)
	}

	return nil
}

func (handler *MessageHandler) serviceFor(msgType string) dispatcher.ProtocolService {
	for _, svc := range handler.services {
		if svc.Accept(msgType) {
			return svc
		}
	}

	return nil
}
