/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	middleware "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/presentproof"
	protocol "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
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
	store   *attribute.CredentialStore
}

func (p *protocolProvider) StorageProvider() storage.Provider { return p.storage }
func (p *protocolProvider) Sender() service.Sender { return p.sender }
func (p *protocolProvider) AutoAcceptProofs() exchange.AutoAccept { return "" }

func (p *protocolProvider) ProofFormats() []protocol.FormatService {
	return []protocol.FormatService{attribute.NewProofFormat(p.store, nil)}
}

type party struct {
	cmd   *Command
	svc   *protocol.Service
	store *attribute.CredentialStore

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
	provider := mem.NewProvider()

	store, err := attribute.NewCredentialStore(provider)
	require.NoError(t, err)

	sender := serviceMocks.NewMockSender(gomock.NewController(t))
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(p.add).AnyTimes()

	svc, err := protocol.New(&protocolProvider{storage: provider, sender: sender, store: store})
	require.NoError(t, err)

	svc.Use(middleware.SavePresentation(store))

	cmd, err := New(&serviceProvider{svc: svc}, nil)
	require.NoError(t, err)

	p.cmd, p.svc, p.store = cmd, svc, store

	return p
}

func hold(t *testing.T, p *party, attrs map[string]string) {
	t.Helper()

	ctx := context.Background()
	request := &decorator.AttachmentV2{Data: decorator.AttachmentData{
		JSON: map[string]interface{}{"attributes": attrs},
	}}

	out, err := attribute.NewCredentialFormat().AcceptRequest(ctx, &exchange.Record{ID: "seed"}, request, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(out.Data.JSON)
	require.NoError(t, err)
	require.NoError(t, p.store.SaveCredential(ctx, "", raw))
}

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

func requested() map[string]interface{} {
	return map[string]interface{}{
		attribute.Key: map[string]interface{}{"requested": map[string]string{"name": "$.attributes.name"}},
	}
}

func TestNew(t *testing.T) {
	t.Run("service lookup error", func(t *testing.T) {
		_, err := New(&serviceProvider{err: errors.New("no service")}, nil)
		require.EqualError(t, err, "look up present-proof service: no service")
	})

	t.Run("wrong service type", func(t *testing.T) {
		_, err := New(&serviceProvider{svc: struct{}{}}, nil)
		require.EqualError(t, err, "cast service to present proof service failed")
	})

	t.Run("handlers", func(t *testing.T) {
		require.Len(t, newParty(t).cmd.GetHandlers(), 16)
	})
}

func TestCommandExchange(t *testing.T) {
	prover, verifier := newParty(t), newParty(t)
	hold(t, prover, map[string]string{"name": "Alice", "degree": "BSc"})

	var sent RecordResponse

	execute(t, verifier.cmd.SendRequest, &SendArgs{
		ConnectionID: connectionID,
		Version:      string(exchange.V3),
		Formats:      requested(),
		WillConfirm:  true,
	}, &sent)
	require.Equal(t, exchange.StateRequestSent, sent.Record.State)
	require.Equal(t, exchange.RoleVerifier, sent.Record.Role)

	deliver(t, verifier, prover)

	rec := pending(t, prover)
	require.Equal(t, exchange.StateRequestReceived, rec.State)

	execute(t, prover.cmd.AcceptRequest, &AcceptArgs{RecordID: rec.ID}, &sent)
	require.Equal(t, exchange.StatePresentationSent, sent.Record.State)

	deliver(t, prover, verifier)

	rec = pending(t, verifier)
	require.Equal(t, exchange.StatePresentationReceived, rec.State)
	require.NotNil(t, rec.IsVerified)
	require.True(t, *rec.IsVerified)

	execute(t, verifier.cmd.AcceptPresentation, &AcceptArgs{RecordID: rec.ID, Names: []string{"alice"}}, &sent)
	require.Equal(t, exchange.StateDone, sent.Record.State)

	presentation, err := verifier.store.GetPresentation(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "Alice"}, presentation.Revealed)

	var data FormatDataResponse

	execute(t, verifier.cmd.FormatData, &RecordIDArgs{RecordID: rec.ID}, &data)
	require.Contains(t, data.FormatData[exchange.StageIssue], attribute.Key)

	var records RecordsResponse

	execute(t, verifier.cmd.Records, &RecordsArgs{Role: string(exchange.RoleVerifier)}, &records)
	require.Len(t, records.Records, 1)

	execute(t, verifier.cmd.Records, &RecordsArgs{Role: string(exchange.RoleProver)}, &records)
	require.Empty(t, records.Records)
}

func TestCommandDecline(t *testing.T) {
	prover, verifier := newParty(t), newParty(t)

	execute(t, prover.cmd.SendProposal, &SendArgs{ConnectionID: connectionID, Formats: requested()}, nil)
	deliver(t, prover, verifier)

	rec := pending(t, verifier)
	require.Equal(t, exchange.StateProposalReceived, rec.State)

	var declined RecordResponse

	execute(t, verifier.cmd.DeclineProposal, &DeclineArgs{RecordID: rec.ID, Reason: "no thanks"}, &declined)
	require.Equal(t, exchange.StateAbandoned, declined.Record.State)

	var b bytes.Buffer

	cmdErr := verifier.cmd.DeclinePresentation(&b, bytes.NewBufferString(`{"record_id":"unknown"}`))
	require.Error(t, cmdErr)
	require.Equal(t, command.NotFoundError, cmdErr.Type())
	require.Equal(t, DeclineErrorCode, cmdErr.Code())
}

func TestCommandCreateRequest(t *testing.T) {
	verifier := newParty(t)

	var created CreateRequestResponse

	execute(t, verifier.cmd.CreateRequest, &SendArgs{Formats: requested()}, &created)
	require.Equal(t, exchange.StateRequestSent, created.Record.State)
	require.Empty(t, created.Record.ConnectionID)
	require.NotEmpty(t, created.Message)
	require.Empty(t, verifier.sent)
}

func TestCommandValidation(t *testing.T) {
	c := newParty(t).cmd

	tests := []struct {
		name string
		exec command.Exec
		req  string
		err  string
	}{
		{name: "send proposal no connection", exec: c.SendProposal, req: `{}`, err: errEmptyConnectionID},
		{name: "send request bad json", exec: c.SendRequest, req: `{`, err: "unexpected EOF"},
		{
			name: "send request bad version", exec: c.SendRequest,
			req: `{"connection_id":"c","version":"v0"}`, err: `unsupported protocol version "v0"`,
		},
		{
			name: "create request bad auto accept", exec: c.CreateRequest,
			req: `{"auto_accept":"maybe"}`, err: `unsupported auto accept policy "maybe"`,
		},
		{name: "accept request no record", exec: c.AcceptRequest, req: `{}`, err: errEmptyRecordID},
		{
			name: "negotiate request bad auto accept", exec: c.NegotiateRequest,
			req: `{"record_id":"r","auto_accept":"x"}`, err: `unsupported auto accept policy "x"`,
		},
		{name: "decline no record", exec: c.DeclineRequest, req: `{}`, err: errEmptyRecordID},
		{name: "record no record", exec: c.Record, req: `{}`, err: errEmptyRecordID},
		{name: "format data bad json", exec: c.FormatData, req: `{`, err: "unexpected EOF"},
		{name: "delete no record", exec: c.DeleteRecord, req: `{}`, err: errEmptyRecordID},
		{name: "records bad json", exec: c.Records, req: `1`, err: "json: cannot unmarshal"},
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

	t.Run("accept presentation of unknown record", func(t *testing.T) {
		var b bytes.Buffer

		cmdErr := c.AcceptPresentation(&b, bytes.NewBufferString(`{"record_id":"unknown"}`))
		require.Error(t, cmdErr)
		require.Equal(t, command.NotFoundError, cmdErr.Type())
	})
}
