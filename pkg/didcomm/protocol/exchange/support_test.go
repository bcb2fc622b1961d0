/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

const (
	keyAlpha    = "alpha"
	formatAlpha = "alpha@v1"
	keyBeta     = "beta"
	formatBeta  = "beta@v1"
	connection  = "connection-1"
)

// stubFormat echoes its inputs into attachments and records what it processed.
type stubFormat struct {
	key     string
	format  string
	invalid bool
	// failOn makes Process fail for the stage.
	failOn      Stage
	processErr  error
	noAuto      bool
	autoErr     error
	mu          sync.Mutex
	processed   []Stage
	predecessor map[Stage]bool
	// hold keeps Process busy so overlapping calls show up in maxActive.
	hold      time.Duration
	active    int
	maxActive int
}

func newStub(key, format string) *stubFormat {
	return &stubFormat{key: key, format: format, predecessor: map[Stage]bool{}}
}

func (s *stubFormat) FormatKey() string {
	return s.key
}

func (s *stubFormat) SupportsFormat(format string) bool {
	return format == s.format
}

func (s *stubFormat) Create(_ context.Context, stage Stage, _ *Record, input interface{}) (*FormatOutput, error) {
	return &FormatOutput{
		Format: s.format,
		Data:   decorator.AttachmentData{JSON: map[string]interface{}{"stage": string(stage), "input": input}},
	}, nil
}

func (s *stubFormat) Process(_ context.Context, stage Stage, _ *Record, att,
	predecessor *decorator.AttachmentV2) (bool, error) {
	defer s.enter()()

	s.mu.Lock()
	defer s.mu.Unlock()

	if att == nil {
		panic("process called without attachment")
	}

	s.processed = append(s.processed, stage)
	s.predecessor[stage] = predecessor != nil

	if s.failOn == stage {
		return false, s.processErr
	}

	return !s.invalid, nil
}

func (s *stubFormat) enter() func() {
	s.mu.Lock()
	s.active++

	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()

	time.Sleep(s.hold)

	return func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}
}

func (s *stubFormat) Accept(_ context.Context, stage Stage, _ *Record, _ *decorator.AttachmentV2,
	input interface{}) (*FormatOutput, error) {
	return &FormatOutput{
		Format: s.format,
		Data:   decorator.AttachmentData{JSON: map[string]interface{}{"accepted": string(stage), "input": input}},
	}, nil
}

func (s *stubFormat) ShouldAutoRespond(_ context.Context, _ Stage, _ *Record, _,
	_ *decorator.AttachmentV2) (bool, error) {
	return !s.noAuto, s.autoErr
}

type party struct {
	engine *Engine
	repo   *StorageRepository
	stubs  []*stubFormat
}

func newParty(t *testing.T, family *Family, naming Naming, opts ...Option) *party {
	t.Helper()

	provider := mem.NewProvider()

	repo, err := NewStorageRepository(provider)
	require.NoError(t, err)

	messages, err := NewMessageStore(provider)
	require.NoError(t, err)

	alpha, beta := newStub(keyAlpha, formatAlpha), newStub(keyBeta, formatBeta)

	registry, err := NewRegistry(alpha, beta)
	require.NoError(t, err)

	return &party{
		engine: NewEngine(family, NewCodecs(naming), registry, repo, messages, opts...),
		repo:   repo,
		stubs:  []*stubFormat{alpha, beta},
	}
}

func credentialParty(t *testing.T, opts ...Option) *party {
	t.Helper()

	return newParty(t, NewCredentialFamily(), NewCredentialNaming(), opts...)
}

func proofParty(t *testing.T, opts ...Option) *party {
	t.Helper()

	return newParty(t, NewProofFamily(), NewProofNaming(), opts...)
}

// wire sends msg through its JSON wire form, as a transport would.
func wire(t *testing.T, from, to *party, msg *StageMessage) *StageMessage {
	t.Helper()

	encoded, err := from.engine.Encode(msg)
	require.NoError(t, err)

	raw, err := json.Marshal(encoded)
	require.NoError(t, err)

	parsed, err := service.ParseDIDCommMsgMap(raw)
	require.NoError(t, err)

	decoded, err := to.engine.Decode(parsed)
	require.NoError(t, err)

	return decoded
}

func deliver(t *testing.T, from, to *party, msg *StageMessage) (*Record, error) {
	t.Helper()

	return to.engine.Process(context.Background(), &Inbound{Message: wire(t, from, to, msg), ConnectionID: connection})
}

func formats(keys ...string) map[string]interface{} {
	inputs := map[string]interface{}{}
	for _, k := range keys {
		inputs[k] = map[string]interface{}{"from": k}
	}

	return inputs
}
