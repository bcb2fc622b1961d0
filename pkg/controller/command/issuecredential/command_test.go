/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/mocks/webhook"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	protocol "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	middleware "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/formats/attribute"
	serviceMocks "github.com/hyperledger/aries-framework-go-exchange/pkg/internal/gomocks/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const connectionID = "connection-1"

type serviceProvider struct {
	svc interface{}
	err error
}

func (p *serviceProvider) Service(string) (interface{}, error) { return p.svc, p.err }

type protocolProvider struct {
	storage storage.Provider
	sender  service.Sender
}

func (p *protocolProvider) StorageProvider() storage.Provider { return p.storage }
func (p *protocolProvider) Sender() service.Sender { return p.sender }
func (p *protocolProvider) AutoAcceptCredentials() exchange.AutoAccept {
	return ""
}

func (p *protocolProvider) CredentialFormats() []protocol.FormatService {
	return []protocol.FormatService{attribute.NewCredentialFormat(attribute.WithIssuer("did:example:issuer"))}
}

type party struct {
	cmd         *Command
	svc         *protocol.Service
	credentials *attribute.CredentialStore

	mu   sync.Mutex
	sent []*service.OutboundMessage
}

func (p *party) add(_ context.Context, msg *service.OutboundMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sent = append(p.sent, msg)

	return nil
}

func (p *party) last(t *testing.T) *service.OutboundMessage {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()

	require.NotEmpty(t, p.sent)

	return p.sent[len(p.sent)-1]
}

func newParty(t *testing.T) *party {
	t.Helper()

	p := &party{}
	store := mem.NewProvider()

	sender := serviceMocks.NewMockSender(gomock.NewController(t))
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(p.add).AnyTimes()

	svc, err := protocol.New(&protocolProvider{storage: store, sender: sender})
	require.NoError(t, err)

	credentials, err := attribute.NewCredentialStore(store)
	require.NoError(t, err)

	svc.Use(middleware.SaveCredentials(credentials))

	cmd, err := New(&serviceProvider{svc: svc}, nil)
	require.NoError(t, err)

	p.cmd, p.svc, p.credentials = cmd, svc, credentials

	return p
}

// deliver hands the last message sent by from to the service of to.
func deliver(t *testing.T, from, to *party) {
	t.Helper()

	raw, err := json.Marshal(from.last(t).Message)
	require.NoError(t, err)

	msg, err := service.ParseDIDCommMsgMap(raw)
	require.NoError(t, err)

	reply, err := to.svc.HandleInbound(context.Background(), service.InboundMessage{
		Message:      msg,
		ConnectionID: connectionID,
	})
	require.NoError(t, err)
	require.Nil(t, reply)
}

func execute(t *testing.T, exec command.Exec, req interface{}, resp interface{}) {
	t.Helper()

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var b bytes.Buffer

	require.NoError(t, exec(&b, bytes.NewReader(raw)))

	if resp != nil {
		require.NoError(t, json.Unmarshal(b.Bytes(), resp))
	}
}

func pending(t *testing.T, p *party) *exchange.Record {
	t.Helper()

	var actions RecordsResponse

	execute(t, p.cmd.Actions, nil, &actions)
	require.Len(t, actions.Records, 1)

	return actions.Records[0]
}

func TestNew(t *testing.T) {
	t.Run("service lookup error", func(t *testing.T) {
		_, err := New(&serviceProvider{err: errors.New("no service")}, nil)
		require.EqualError(t, err, "look up issue-credential service: no service")
	})

	t.Run("wrong service type", func(t *testing.T) {
		_, err := New(&serviceProvider{svc: "service"}, nil)
		require.EqualError(t, err, "cast service to issue credential service failed")
	})

	t.Run("handlers", func(t *testing.T) {
		handlers := newParty(t).cmd.GetHandlers()
		require.Len(t, handlers, 19)

		for _, h := range handlers {
			require.Equal(t, CommandName, h.Name())
			require.NotNil(t, h.Handle())
		}
	})
}

func TestCommandExchange(t *testing.T) {
	holder, issuer := newParty(t), newParty(t)

	var sent RecordResponse

	execute(t, holder.cmd.SendProposal, &SendArgs{
		ConnectionID: connectionID,
		Version:      string(exchange.V2),
		Formats: map[string]interface{}{
			attribute.Key: map[string]interface{}{"attributes": map[string]string{"name": "Alice"}},
		},
	}, &sent)
	require.Equal(t, exchange.StateProposalSent, sent.Record.State)
	require.Equal(t, exchange.RoleHolder, sent.Record.Role)

	deliver(t, holder, issuer)

	rec := pending(t, issuer)
	require.Equal(t, exchange.StateProposalReceived, rec.State)

	execute(t, issuer.cmd.AcceptProposal, &AcceptArgs{RecordID: rec.ID, Comment: "offer"}, &sent)
	require.Equal(t, exchange.StateOfferSent, sent.Record.State)

	deliver(t, issuer, holder)

	rec = pending(t, holder)
	require.Equal(t, exchange.StateOfferReceived, rec.State)

	execute(t, holder.cmd.AcceptOffer, &AcceptArgs{RecordID: rec.ID}, nil)
	deliver(t, holder, issuer)

	rec = pending(t, issuer)
	require.Equal(t, exchange.StateRequestReceived, rec.State)

	execute(t, issuer.cmd.AcceptRequest, &AcceptArgs{RecordID: rec.ID}, nil)
	deliver(t, issuer, holder)

	rec = pending(t, holder)
	require.Equal(t, exchange.StateCredentialReceived, rec.State)

	execute(t, holder.cmd.AcceptCredential, &AcceptArgs{RecordID: rec.ID, Names: []string{"degree"}}, &sent)
	require.Equal(t, exchange.StateDone, sent.Record.State)

	deliver(t, holder, issuer)

	held, err := holder.credentials.List(context.Background())
	require.NoError(t, err)
	require.Len(t, held, 1)
	require.Equal(t, "did:example:issuer", held[0].Issuer)

	var records RecordsResponse

	execute(t, issuer.cmd.Records, &RecordsArgs{State: string(exchange.StateDone)}, &records)
	require.Len(t, records.Records, 1)

	var data FormatDataResponse

	execute(t, holder.cmd.FormatData, &RecordIDArgs{RecordID: rec.ID}, &data)
	require.Contains(t, data.FormatData[exchange.StageIssue], attribute.Key)

	var single RecordResponse

	execute(t, holder.cmd.Record, &RecordIDArgs{RecordID: rec.ID}, &single)
	require.Equal(t, rec.ThreadID, single.Record.ThreadID)

	execute(t, holder.cmd.DeleteRecord, &RecordIDArgs{RecordID: rec.ID}, nil)

	var b bytes.Buffer

	cmdErr := holder.cmd.Record(&b, bytes.NewBufferString(fmt.Sprintf(`{"record_id":%q}`, rec.ID)))
	require.Error(t, cmdErr)
	require.Equal(t, command.NotFoundError, cmdErr.Type())
	require.Equal(t, RecordsErrorCode, cmdErr.Code())
}

func TestCommandDecline(t *testing.T) {
	holder, issuer := newParty(t), newParty(t)

	execute(t, issuer.cmd.SendOffer, &SendArgs{
		ConnectionID: connectionID,
		Formats: map[string]interface{}{
			attribute.Key: map[string]interface{}{"attributes": map[string]string{"name": "Alice"}},
		},
	}, nil)
	deliver(t, issuer, holder)

	rec := pending(t, holder)

	var declined RecordResponse

	execute(t, holder.cmd.DeclineOffer, &DeclineArgs{RecordID: rec.ID, Reason: "not now"}, &declined)
	require.Equal(t, exchange.StateAbandoned, declined.Record.State)
	require.Equal(t, exchange.ProblemCodeAbandoned+": not now", declined.Record.ErrorMessage)

	var actions RecordsResponse

	execute(t, holder.cmd.Actions, nil, &actions)
	require.Empty(t, actions.Records)

	var b bytes.Buffer

	cmdErr := holder.cmd.AcceptOffer(&b, bytes.NewBufferString(fmt.Sprintf(`{"record_id":%q}`, rec.ID)))
	require.Error(t, cmdErr)
	require.Equal(t, command.ValidationError, cmdErr.Type())
	require.Equal(t, AcceptOfferErrorCode, cmdErr.Code())
	require.ErrorIs(t, cmdErr, exchange.ErrStateAssertion)
}

func TestCommandCreateOffer(t *testing.T) {
	issuer := newParty(t)

	var created CreateOfferResponse

	execute(t, issuer.cmd.CreateOffer, &SendArgs{
		Version: string(exchange.V3),
		Formats: map[string]interface{}{
			attribute.Key: map[string]interface{}{"attributes": map[string]string{"name": "Alice"}},
		},
	}, &created)
	require.Equal(t, exchange.StateOfferSent, created.Record.State)
	require.Empty(t, created.Record.ConnectionID)
	require.NotEmpty(t, created.Message["id"])
	require.Empty(t, issuer.sent)
}

func TestCommandValidation(t *testing.T) {
	c := newParty(t).cmd

	tests := []struct {
		name string
		exec command.Exec
		req  string
		err  string
	}{
		{name: "send proposal bad json", exec: c.SendProposal, req: `{`, err: "unexpected EOF"},
		{name: "send proposal no connection", exec: c.SendProposal, req: `{}`, err: errEmptyConnectionID},
		{name: "send offer no connection", exec: c.SendOffer, req: `{}`, err: errEmptyConnectionID},
		{name: "send request no connection", exec: c.SendRequest, req: `{}`, err: errEmptyConnectionID},
		{
			name: "send request bad version", exec: c.SendRequest,
			req: `{"connection_id":"c","version":"v9"}`, err: `unsupported protocol version "v9"`,
		},
		{name: "create offer bad json", exec: c.CreateOffer, req: `[]`, err: "json: cannot unmarshal"},
		{
			name: "create offer bad auto accept", exec: c.CreateOffer,
			req: `{"auto_accept":"sometimes"}`, err: `unsupported auto accept policy "sometimes"`,
		},
		{name: "accept proposal no record", exec: c.AcceptProposal, req: `{}`, err: errEmptyRecordID},
		{
			name: "accept offer bad auto accept", exec: c.AcceptOffer,
			req: `{"record_id":"r","auto_accept":"x"}`, err: `unsupported auto accept policy "x"`,
		},
		{name: "decline no record", exec: c.DeclineRequest, req: `{}`, err: errEmptyRecordID},
		{name: "records bad json", exec: c.Records, req: `{`, err: "unexpected EOF"},
		{name: "record no record", exec: c.Record, req: `{}`, err: errEmptyRecordID},
		{name: "format data no record", exec: c.FormatData, req: `{}`, err: errEmptyRecordID},
		{name: "delete no record", exec: c.DeleteRecord, req: `{}`, err: errEmptyRecordID},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			var b bytes.Buffer

			cmdErr := tc.exec(&b, bytes.NewBufferString(tc.req))
			require.Error(t, cmdErr)
			require.Equal(t, command.ValidationError, cmdErr.Type())
			require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
			require.Contains(t, cmdErr.Error(), tc.err)
		})
	}

	t.Run("unknown record", func(t *testing.T) {
		var b bytes.Buffer

		cmdErr := c.AcceptCredential(&b, bytes.NewBufferString(`{"record_id":"unknown"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.NotFoundError, cmdErr.Type())
		require.Equal(t, AcceptCredentialErrorCode, cmdErr.Code())
	})
}

func TestCommandNotifier(t *testing.T) {
	p := &party{}
	store := mem.NewProvider()

	sender := serviceMocks.NewMockSender(gomock.NewController(t))
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(p.add).AnyTimes()

	svc, err := protocol.New(&protocolProvider{storage: store, sender: sender})
	require.NoError(t, err)

	notifier := webhook.NewMockWebhookNotifier()

	c, err := New(&serviceProvider{svc: svc}, notifier)
	require.NoError(t, err)

	execute(t, c.SendRequest, &SendArgs{
		ConnectionID: connectionID,
		Formats: map[string]interface{}{
			attribute.Key: map[string]interface{}{"attributes": map[string]string{"name": "Alice"}},
		},
	}, nil)

	require.Eventually(t, func() bool {
		return notifier.Received(protocol.Name + _states)
	}, time.Second, 10*time.Millisecond)
}
