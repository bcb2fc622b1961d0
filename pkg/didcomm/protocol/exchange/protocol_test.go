/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	serviceMocks "github.com/hyperledger/aries-framework-go-exchange/pkg/internal/gomocks/didcomm/common/service"
)

// outbox records what a protocol sends.
type outbox struct {
	mu   sync.Mutex
	sent []*service.OutboundMessage
}

func (o *outbox) add(_ context.Context, msg *service.OutboundMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sent = append(o.sent, msg)

	return nil
}

func (o *outbox) last(t *testing.T) *service.OutboundMessage {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()

	require.NotEmpty(t, o.sent)

	return o.sent[len(o.sent)-1]
}

func newSender(t *testing.T, box *outbox) service.Sender {
	t.Helper()

	sender := serviceMocks.NewMockSender(gomock.NewController(t))
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(box.add).AnyTimes()

	return sender
}

// inbound delivers an outbound message through its JSON wire form.
func inbound(t *testing.T, msg *service.OutboundMessage) service.InboundMessage {
	t.Helper()

	raw, err := json.Marshal(msg.Message)
	require.NoError(t, err)

	parsed, err := service.ParseDIDCommMsgMap(raw)
	require.NoError(t, err)

	return service.InboundMessage{Message: parsed, ConnectionID: msg.ConnectionID}
}

func proposalFromHolder(t *testing.T) *service.OutboundMessage {
	t.Helper()

	box := &outbox{}
	holder := NewProtocol(credentialParty(t).engine, newSender(t, box))

	rec, msg, err := holder.Start(context.Background(), OpCreateProposal, &CreateOptions{
		ConnectionID: connection,
		Options: Options{
			Formats: formats(keyAlpha),
			Preview: []PreviewAttribute{{Name: "name", Value: "Alice"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StateProposalSent, rec.State)
	require.Equal(t, msg, box.last(t).Message)
	require.Equal(t, connection, box.last(t).ConnectionID)

	return box.last(t)
}

func TestProtocolHandleInbound(t *testing.T) {
	ctx := context.Background()
	offerType := NewCredentialNaming().SpecURI(V2) + "offer-credential"
	problemType := NewCredentialNaming().SpecURI(V2) + "problem-report"

	t.Run("auto accept answers right away", func(t *testing.T) {
		box := &outbox{}
		issuer := NewProtocol(credentialParty(t, WithAutoAccept(AutoAcceptAlways)).engine, newSender(t, box))

		out, err := issuer.HandleInbound(ctx, inbound(t, proposalFromHolder(t)))
		require.NoError(t, err)
		require.Equal(t, offerType, out.Message.Type())
		require.Equal(t, connection, out.ConnectionID)
		require.Empty(t, box.sent)

		records, err := issuer.Engine().Records(ctx, RecordFilter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, StateOfferSent, records[0].State)
	})

	t.Run("action event continue", func(t *testing.T) {
		box := &outbox{}
		issuer := NewProtocol(credentialParty(t).engine, newSender(t, box))

		var seen []string

		issuer.Use(func(next Handler) Handler {
			return HandlerFunc(func(md Metadata) error {
				seen = append(seen, md.StateName())

				if md.StateName() == string(StateOfferSent) {
					require.Equal(t, "offer-1", md.Properties()["name"])
					require.Equal(t, md.Record().ID, md.Properties()[recordIDPropKey])
					require.Equal(t, StageProposal, md.Message().Stage)
				}

				return next.Handle(md)
			})
		})

		actions := make(chan service.DIDCommAction, 1)
		require.NoError(t, issuer.RegisterActionEvent(actions))

		out, err := issuer.HandleInbound(ctx, inbound(t, proposalFromHolder(t)))
		require.NoError(t, err)
		require.Nil(t, out)

		action := <-actions
		require.Equal(t, CredentialProtocol, action.ProtocolName)
		require.NotEmpty(t, action.Properties.All()[recordIDPropKey])

		action.Continue(func(o *Options) {
			o.Comment = "welcome"
			o.Properties = map[string]interface{}{"name": "offer-1"}
		})

		sent := box.last(t)
		require.Equal(t, offerType, sent.Message.Type())
		require.Equal(t, "welcome", sent.Message["comment"])
		require.Equal(t, []string{string(StateProposalReceived), string(StateOfferSent)}, seen)

		rec, err := issuer.Engine().GetRecord(ctx, action.Properties.All()[recordIDPropKey].(string))
		require.NoError(t, err)
		require.Equal(t, StateOfferSent, rec.State)
	})

	t.Run("action event stop declines", func(t *testing.T) {
		box := &outbox{}
		issuer := NewProtocol(credentialParty(t).engine, newSender(t, box))

		actions := make(chan service.DIDCommAction, 1)
		require.NoError(t, issuer.RegisterActionEvent(actions))

		_, err := issuer.HandleInbound(ctx, inbound(t, proposalFromHolder(t)))
		require.NoError(t, err)

		action := <-actions
		action.Stop(nil)

		require.Equal(t, problemType, box.last(t).Message.Type())

		rec, err := issuer.Engine().GetRecord(ctx, action.Properties.All()[recordIDPropKey].(string))
		require.NoError(t, err)
		require.Equal(t, StateAbandoned, rec.State)
		require.Equal(t, "abandoned: protocol was stopped", rec.ErrorMessage)
	})

	t.Run("waits without action channel", func(t *testing.T) {
		box := &outbox{}
		issuer := NewProtocol(credentialParty(t).engine, newSender(t, box))

		out, err := issuer.HandleInbound(ctx, inbound(t, proposalFromHolder(t)))
		require.NoError(t, err)
		require.Nil(t, out)

		records, err := issuer.Engine().Records(ctx, RecordFilter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, StateProposalReceived, records[0].State)

		pending, err := issuer.Actions(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, records[0].ID, pending[0].ID)

		_, err = issuer.Respond(ctx, OpAcceptProposal, records[0].ID, nil)
		require.NoError(t, err)
		require.Equal(t, offerType, box.last(t).Message.Type())

		pending, err = issuer.Actions(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)

		_, err = issuer.Respond(ctx, OpAcceptProposal, records[0].ID, nil)
		require.ErrorIs(t, err, ErrStateAssertion)
		require.Len(t, box.sent, 1)

		_, err = issuer.Respond(ctx, OpAcceptProposal, "unknown", nil)
		require.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("middleware error declines", func(t *testing.T) {
		issuer := NewProtocol(credentialParty(t, WithAutoAccept(AutoAcceptAlways)).engine, newSender(t, &outbox{}))
		issuer.AddMiddleware(func(next Handler) Handler {
			return HandlerFunc(func(md Metadata) error {
				return errors.New("boom")
			})
		})

		out, err := issuer.HandleInbound(ctx, inbound(t, proposalFromHolder(t)))
		require.ErrorContains(t, err, "middleware: boom")
		require.Equal(t, problemType, out.Message.Type())

		records, err := issuer.Engine().Records(ctx, RecordFilter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, StateAbandoned, records[0].State)
		require.Equal(t, ProblemCodeInternal+": boom", records[0].ErrorMessage)
	})

	t.Run("undecodable message", func(t *testing.T) {
		issuer := NewProtocol(credentialParty(t).engine, newSender(t, &outbox{}))

		_, err := issuer.HandleInbound(ctx, service.InboundMessage{
			Message: service.DIDCommMsgMap{"@type": "https://didcomm.org/other/1.0/hello"},
		})
		require.ErrorIs(t, err, ErrUnknownMessageType)
	})
}

// holderWithCredential runs a credential exchange up to the credential the holder has to accept.
func holderWithCredential(t *testing.T) (*party, string) {
	t.Helper()

	ctx := context.Background()
	issuer, holder := credentialParty(t), credentialParty(t)

	iRec, offer, err := issuer.engine.Create(ctx, OpCreateOffer, &CreateOptions{
		ConnectionID: connection,
		Options:      Options{Formats: formats(keyAlpha)},
	})
	require.NoError(t, err)

	hRec, err := deliver(t, issuer, holder, offer)
	require.NoError(t, err)

	_, request, err := holder.engine.Accept(ctx, OpAcceptOffer, hRec.ID, nil)
	require.NoError(t, err)

	_, err = deliver(t, holder, issuer, request)
	require.NoError(t, err)

	_, issue, err := issuer.engine.Accept(ctx, OpAcceptRequest, iRec.ID, nil)
	require.NoError(t, err)

	hRec, err = deliver(t, issuer, holder, issue)
	require.NoError(t, err)
	require.Equal(t, StateCredentialReceived, hRec.State)

	return holder, hRec.ID
}

func TestProtocolMiddlewareOnCommit(t *testing.T) {
	ctx := context.Background()

	counting := func(calls *int32, err error) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(md Metadata) error {
				if md.StateName() == string(StateDone) {
					atomic.AddInt32(calls, 1)
				}

				if err != nil {
					return err
				}

				return next.Handle(md)
			})
		}
	}

	t.Run("concurrent accepts run it once", func(t *testing.T) {
		holder, recordID := holderWithCredential(t)
		protocol := NewProtocol(holder.engine, newSender(t, &outbox{}))

		var calls int32

		protocol.Use(counting(&calls, nil))

		const workers = 4

		var wg sync.WaitGroup

		results := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := protocol.Respond(ctx, OpAcceptIssue, recordID, nil)
				results <- err
			}()
		}

		wg.Wait()
		close(results)

		succeeded := 0

		for err := range results {
			if err == nil {
				succeeded++

				continue
			}

			require.ErrorIs(t, err, ErrStateAssertion)
		}

		require.Equal(t, 1, succeeded)
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("rejected transition skips it", func(t *testing.T) {
		holder, recordID := holderWithCredential(t)
		protocol := NewProtocol(holder.engine, newSender(t, &outbox{}))

		var calls int32

		protocol.Use(counting(&calls, nil))

		_, err := protocol.Respond(ctx, OpAcceptOffer, recordID, nil)
		require.ErrorIs(t, err, ErrStateAssertion)
		require.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("failure keeps the record", func(t *testing.T) {
		holder, recordID := holderWithCredential(t)
		protocol := NewProtocol(holder.engine, newSender(t, &outbox{}))

		var calls int32

		protocol.Use(counting(&calls, errors.New("boom")))

		_, err := protocol.Respond(ctx, OpAcceptIssue, recordID, nil)
		require.ErrorContains(t, err, "middleware: boom")
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))

		rec, err := holder.engine.GetRecord(ctx, recordID)
		require.NoError(t, err)
		require.Equal(t, StateCredentialReceived, rec.State)
	})
}

func TestProtocolVerificationFailure(t *testing.T) {
	ctx := context.Background()
	verifierBox, proverBox := &outbox{}, &outbox{}

	verifierParty := proofParty(t)
	verifierParty.stubs[0].invalid = true
	verifier := NewProtocol(verifierParty.engine, newSender(t, verifierBox))
	prover := NewProtocol(proofParty(t).engine, newSender(t, proverBox))

	_, _, err := verifier.Start(ctx, OpCreateRequest, &CreateOptions{
		ConnectionID: connection,
		Options:      Options{Formats: formats(keyAlpha), WillConfirm: true},
	})
	require.NoError(t, err)

	_, err = prover.HandleInbound(ctx, inbound(t, verifierBox.last(t)))
	require.NoError(t, err)

	records, err := prover.Engine().Records(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = prover.Respond(ctx, OpAcceptRequest, records[0].ID, nil)
	require.NoError(t, err)

	out, err := verifier.HandleInbound(ctx, inbound(t, proverBox.last(t)))
	require.ErrorIs(t, err, ErrVerificationFailure)
	require.Equal(t, NewProofNaming().SpecURI(V2)+"problem-report", out.Message.Type())

	var verr *VerificationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, StateAbandoned, verr.Record.State)
	require.False(t, *verr.Record.IsVerified)

	_, err = prover.HandleInbound(ctx, inbound(t, out))
	require.NoError(t, err)

	rec, err := prover.Engine().GetRecord(ctx, records[0].ID)
	require.NoError(t, err)
	require.Equal(t, StateAbandoned, rec.State)
}

func TestProtocolSendErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("sender failure", func(t *testing.T) {
		sender := serviceMocks.NewMockSender(gomock.NewController(t))
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("unreachable"))

		holder := NewProtocol(credentialParty(t).engine, sender)

		_, _, err := holder.Start(ctx, OpCreateProposal, &CreateOptions{
			ConnectionID: connection,
			Options:      Options{Formats: formats(keyAlpha)},
		})
		require.ErrorContains(t, err, "unreachable")
	})

	t.Run("no sender", func(t *testing.T) {
		holder := NewProtocol(credentialParty(t).engine, nil)

		_, _, err := holder.Start(ctx, OpCreateProposal, &CreateOptions{
			ConnectionID: connection,
			Options:      Options{Formats: formats(keyAlpha)},
		})
		require.ErrorContains(t, err, "no sender")
	})

	t.Run("connectionless exchanges are not sent", func(t *testing.T) {
		issuer := NewProtocol(credentialParty(t).engine, nil)

		rec, msg, err := issuer.Start(ctx, OpCreateOffer, &CreateOptions{Options: Options{Formats: formats(keyBeta)}})
		require.NoError(t, err)
		require.Equal(t, StateOfferSent, rec.State)
		require.Equal(t, rec.ThreadID, msg.ID())
	})
}

func TestProtocolEvents(t *testing.T) {
	issuer := NewProtocol(credentialParty(t).engine, nil)
	require.Equal(t, CredentialProtocol, issuer.Name())
	require.True(t, issuer.Accept(NewCredentialNaming().SpecURI(V3)+"issue-credential"))
	require.False(t, issuer.Accept(NewProofNaming().SpecURI(V2)+"presentation"))

	events := make(chan service.StateMsg, 2)
	require.NoError(t, issuer.RegisterMsgEvent(events))

	_, _, err := issuer.Start(context.Background(), OpCreateOffer, &CreateOptions{
		Options: Options{Formats: formats(keyAlpha)},
	})
	require.NoError(t, err)

	ev := <-events
	require.Equal(t, service.PostState, ev.Type)
	require.Equal(t, string(StateOfferSent), ev.StateID)

	require.NoError(t, issuer.UnregisterMsgEvent(events))
}
