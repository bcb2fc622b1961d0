/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
)

// ProblemCodeInternal is the problem report code of an exchange stopped by a local failure.
const ProblemCodeInternal = "internal"

var errProtocolStopped = errors.New("protocol was stopped")

// Opt describes option signature for the Continue function.
type Opt func(o *Options)

// Protocol is the DIDComm service of a family. It processes inbound messages, raises an action event when
// the application has to decide how to answer, and sends what the engine produces.
type Protocol struct {
	service.Action
	engine     *Engine
	sender     service.Sender
	middleware Handler
}

// NewProtocol returns the service of the engine family. sender delivers the messages of exchanges
// bound to a connection.
func NewProtocol(engine *Engine, sender service.Sender) *Protocol {
	return &Protocol{engine: engine, sender: sender, middleware: initialHandler}
}

// Engine returns the engine driving the records.
func (p *Protocol) Engine() *Engine {
	return p.engine
}

// Name returns the protocol family name.
func (p *Protocol) Name() string {
	return p.engine.Family().Name
}

// Accept msg checks the msg type.
func (p *Protocol) Accept(msgType string) bool {
	return p.engine.Accepts(msgType)
}

// RegisterMsgEvent registers a channel for the state events of the exchanges.
func (p *Protocol) RegisterMsgEvent(ch chan<- service.StateMsg) error {
	return p.engine.RegisterMsgEvent(ch)
}

// UnregisterMsgEvent unregisters a channel registered with RegisterMsgEvent.
func (p *Protocol) UnregisterMsgEvent(ch chan<- service.StateMsg) error {
	return p.engine.UnregisterMsgEvent(ch)
}

// Use allows providing middlewares.
func (p *Protocol) Use(items ...Middleware) {
	var handler Handler = initialHandler
	for i := len(items) - 1; i >= 0; i-- {
		handler = items[i](handler)
	}

	p.middleware = handler
}

// AddMiddleware appends the given Middleware to the chain of middlewares.
func (p *Protocol) AddMiddleware(mw ...Middleware) {
	for i := len(mw) - 1; i >= 0; i-- {
		p.middleware = mw[i](p.middleware)
	}
}

// HandleInbound processes an inbound message of the family and returns the message to send back, if any.
//
// A message that does not verify is answered with a problem report, returned together with the
// *VerificationError. A message the auto accept policy approves is answered right away. Otherwise the
// registered action channel receives an event whose Continue accepts and whose Stop declines.
func (p *Protocol) HandleInbound(ctx context.Context, in service.InboundMessage) (*service.OutboundMessage, error) {
	logger.Debugf("%s: handling inbound %s", p.Name(), in.Message.Type())

	msg, err := p.engine.Decode(in.Message)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	rec, err := p.engine.Process(ctx, &Inbound{Message: msg, ConnectionID: in.ConnectionID})

	var verr *VerificationError
	if errors.As(err, &verr) {
		out, encErr := p.outbound(verr.ProblemReport, verr.Record.ConnectionID)
		if encErr != nil {
			return nil, encErr
		}

		return out, err
	}

	if err != nil {
		return nil, err
	}

	if err = p.middleware.Handle(newMetadata(ctx, rec, msg, rec.State, nil)); err != nil {
		logger.Errorf("%s: middleware of exchange %s: %s", p.Name(), rec.ID, err)

		_, report, reportErr := p.engine.CreateProblemReport(ctx, rec.ID, ProblemCodeInternal, err.Error(), true)
		if reportErr != nil {
			return nil, fmt.Errorf("middleware: %w", errors.Join(err, reportErr))
		}

		out, encErr := p.outbound(report, rec.ConnectionID)
		if encErr != nil {
			return nil, encErr
		}

		return out, fmt.Errorf("middleware: %w", err)
	}

	op, _, ok := p.engine.Family().AcceptFor(rec.State, rec.Role)
	if !ok {
		return nil, nil
	}

	if p.engine.ShouldAutoRespond(ctx, rec, msg) {
		logger.Debugf("%s: auto accepting %s of exchange %s", p.Name(), msg.Stage, rec.ID)

		_, reply, err := p.respond(ctx, op, rec.ID, nil)
		if err != nil {
			return nil, err
		}

		return p.outbound(reply, rec.ConnectionID)
	}

	if !p.Trigger(p.newDIDCommAction(rec, in.Message, op)) {
		logger.Debugf("%s: exchange %s waits in state %s", p.Name(), rec.ID, rec.State)
	}

	return nil, nil
}

// Actions returns the records waiting for the application to accept or decline the message they received.
func (p *Protocol) Actions(ctx context.Context) ([]*Record, error) {
	records, err := p.engine.Records(ctx, RecordFilter{})
	if err != nil {
		return nil, err
	}

	var pending []*Record

	for _, rec := range records {
		if _, _, ok := p.engine.Family().AcceptFor(rec.State, rec.Role); ok {
			pending = append(pending, rec)
		}
	}

	return pending, nil
}

// Start creates an exchange and sends its first message when the exchange is bound to a connection.
// The encoded message is returned for out-of-band delivery.
func (p *Protocol) Start(ctx context.Context, op Operation, opts *CreateOptions) (*Record, service.DIDCommMsgMap,
	error) {
	rec, msg, err := p.engine.Create(ctx, op, opts)
	if err != nil {
		return nil, nil, err
	}

	out, err := p.outbound(msg, rec.ConnectionID)
	if err != nil {
		return nil, nil, err
	}

	if err := p.send(ctx, out); err != nil {
		return nil, nil, err
	}

	return rec, out.Message, nil
}

// Respond runs an accept, complete or negotiate operation on the record and sends the produced message.
func (p *Protocol) Respond(ctx context.Context, op Operation, recordID string, opts *Options) (*Record, error) {
	rec, msg, err := p.respond(ctx, op, recordID, opts)
	if err != nil {
		return nil, err
	}

	out, err := p.outbound(msg, rec.ConnectionID)
	if err != nil {
		return nil, err
	}

	return rec, p.send(ctx, out)
}

// Decline abandons the exchange and sends a problem report with the reason.
func (p *Protocol) Decline(ctx context.Context, recordID, reason string) (*Record, error) {
	rec, report, err := p.engine.CreateProblemReport(ctx, recordID, ProblemCodeAbandoned, reason, true)
	if err != nil {
		return nil, err
	}

	return p.sendReport(ctx, rec, report)
}

// DeclineIf is Decline for an exchange cond still holds for once it is locked. It fails with ErrPrecondition
// otherwise. The abandoned record is returned even when the problem report could not be sent.
func (p *Protocol) DeclineIf(ctx context.Context, recordID, reason string, cond func(rec *Record) bool) (*Record,
	error) {
	rec, report, err := p.engine.AbandonIf(ctx, recordID, ProblemCodeAbandoned, reason, cond)
	if err != nil {
		return nil, err
	}

	return p.sendReport(ctx, rec, report)
}

func (p *Protocol) sendReport(ctx context.Context, rec *Record, report *StageMessage) (*Record, error) {
	out, err := p.outbound(report, rec.ConnectionID)
	if err != nil {
		return rec, err
	}

	return rec, p.send(ctx, out)
}

// respond runs the middleware inside the critical section of the operation, so it only sees transitions
// that are about to be stored.
func (p *Protocol) respond(ctx context.Context, op Operation, recordID string, opts *Options) (*Record,
	*StageMessage, error) {
	if opts == nil {
		opts = &Options{}
	}

	return p.engine.Respond(ctx, op, recordID, opts, func(rec *Record, t Transition) error {
		received, err := p.engine.FindMessage(ctx, rec.ID, t.Stage, Receiver)
		if err != nil && !errors.Is(err, ErrMessageNotFound) {
			return err
		}

		if err := p.middleware.Handle(newMetadata(ctx, rec, received, t.To, opts.Properties)); err != nil {
			return fmt.Errorf("middleware: %w", err)
		}

		return nil
	})
}

func (p *Protocol) newDIDCommAction(rec *Record, msg service.DIDCommMsgMap, op Operation) service.DIDCommAction {
	return service.DIDCommAction{
		ProtocolName: p.Name(),
		Message:      msg.Clone(),
		Continue: func(args interface{}) {
			opts := &Options{}

			switch v := args.(type) {
			case Opt:
				v(opts)
			case func(*Options):
				v(opts)
			case *Options:
				if v != nil {
					opts = v
				}
			}

			if _, err := p.Respond(context.Background(), op, rec.ID, opts); err != nil {
				logger.Errorf("%s: continue exchange %s: %s", p.Name(), rec.ID, err)
			}
		},
		Stop: func(cErr error) {
			if cErr == nil {
				cErr = errProtocolStopped
			}

			if _, err := p.Decline(context.Background(), rec.ID, cErr.Error()); err != nil {
				logger.Errorf("%s: stop exchange %s: %s", p.Name(), rec.ID, err)
			}
		},
		Properties: NewProperties(rec.Clone(), nil),
	}
}

func (p *Protocol) outbound(msg *StageMessage, connectionID string) (*service.OutboundMessage, error) {
	encoded, err := p.engine.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Stage, err)
	}

	return &service.OutboundMessage{Message: encoded, ConnectionID: connectionID}, nil
}

// send delivers msg to its connection. Messages of exchanges without a connection are left to the caller.
func (p *Protocol) send(ctx context.Context, msg *service.OutboundMessage) error {
	if msg.ConnectionID == "" {
		return nil
	}

	if p.sender == nil {
		return fmt.Errorf("%s: no sender to deliver %s", p.Name(), msg.Message.Type())
	}

	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Message.Type(), err)
	}

	return nil
}
