/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
)

const (
	// ProblemCodeAbandoned is the problem report code of a declined or failed exchange.
	ProblemCodeAbandoned = "abandoned"
	// ErrorNotAllValid is the error message of an exchange whose presentations did not all verify.
	ErrorNotAllValid = "Not all presentations are valid"

	processProblemReport = "ProcessProblemReport"
)

var logger = log.New("aries-framework/exchange/engine")

// Options of accept, negotiate and complete operations.
type Options struct {
	// Formats holds the input of each format service, keyed by format key.
	Formats     map[string]interface{}
	Comment     string
	GoalCode    string
	WillConfirm bool
	Preview     []PreviewAttribute
	// AutoAccept overrides the agent default for the rest of the exchange.
	AutoAccept AutoAccept
	// Properties are handed to the middleware, e.g. the names to store credentials under.
	Properties map[string]interface{}
}

// CreateOptions of create operations.
type CreateOptions struct {
	Options
	ConnectionID   string
	ParentThreadID string
	// Version defaults to the engine version.
	Version Version
}

// Option configures an Engine.
type Option func(e *Engine)

// WithAutoAccept sets the agent default auto accept policy.
func WithAutoAccept(a AutoAccept) Option {
	return func(e *Engine) {
		e.autoAccept = a
	}
}

// WithDefaultVersion sets the version of exchanges created without one.
func WithDefaultVersion(v Version) Option {
	return func(e *Engine) {
		e.version = v
	}
}

// Engine drives exchange records of one family through its state table.
// Every operation holds the lock of its (thread, connection) while it loads, checks, changes and stores the record.
// A record without a connection is guarded by the lock of its bare thread until an inbound message binds it.
type Engine struct {
	service.Message

	family      *Family
	codecs      Codecs
	registry    *Registry
	coordinator *Coordinator
	composer    *AutoAcceptComposer
	repo        Repository
	messages    *MessageStore
	locks       KeyedMutex
	autoAccept  AutoAccept
	version     Version
}

// NewEngine returns an engine for the family.
func NewEngine(family *Family, codecs Codecs, registry *Registry, repo Repository, messages *MessageStore,
	opts ...Option) *Engine {
	e := &Engine{
		family:   family,
		codecs:   codecs,
		registry: registry,
		repo:     repo,
		messages: messages,
		version:  V2,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.coordinator = NewCoordinator(registry, messages)
	e.composer = NewAutoAcceptComposer(family, e.coordinator, e.autoAccept)

	return e
}

// Family returns the state table of the engine.
func (e *Engine) Family() *Family {
	return e.family
}

// Accepts reports whether one of the engine codecs understands the message type.
func (e *Engine) Accepts(msgType string) bool {
	_, err := e.codecs.ForType(msgType)

	return err == nil
}

// Decode converts a wire message into a stage message.
func (e *Engine) Decode(msg service.DIDCommMsgMap) (*StageMessage, error) {
	codec, err := e.codecs.ForType(msg.Type())
	if err != nil {
		return nil, err
	}

	return codec.Decode(msg)
}

// Encode converts a stage message into its wire form.
func (e *Engine) Encode(msg *StageMessage) (service.DIDCommMsgMap, error) {
	codec, err := e.codecs.ForVersion(msg.Version)
	if err != nil {
		return nil, err
	}

	return codec.Encode(msg)
}

// Create starts a new exchange with an outbound message.
func (e *Engine) Create(ctx context.Context, op Operation, opts *CreateOptions) (*Record, *StageMessage, error) {
	t, err := e.family.Transition(op)
	if err != nil {
		return nil, nil, err
	}

	if t.Kind != KindCreate {
		return nil, nil, fmt.Errorf("%w: %s does not create an exchange", ErrUnknownOperation, t.Name)
	}

	if opts == nil {
		opts = &CreateOptions{}
	}

	services, err := e.registry.ForKeys(inputKeys(opts.Formats))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	version := opts.Version
	if version == "" {
		version = e.version
	}

	codec, err := e.codecs.ForVersion(version)
	if err != nil {
		return nil, nil, err
	}

	msgID := uuid.New().String()
	rec := &Record{
		ID:             uuid.New().String(),
		ThreadID:       msgID,
		ParentThreadID: opts.ParentThreadID,
		ConnectionID:   opts.ConnectionID,
		Protocol:       e.family.Name,
		Version:        version,
		Role:           t.Role,
		State:          t.To,
		AutoAccept:     opts.AutoAccept,
	}
	msg := newMessage(codec, t.Stage, msgID, rec, &opts.Options)

	err = func() error {
		unlock := e.locks.Lock(threadKey(rec.ThreadID, rec.ConnectionID))
		defer unlock()

		if err := e.coordinator.Create(ctx, rec, msg, services, opts.Formats); err != nil {
			return err
		}

		return e.repo.Save(ctx, rec)
	}()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	logger.Debugf("%s: created %s exchange %s in state %s", e.family.Name, t.Role, rec.ID, rec.State)

	e.notify(e.event(service.PostState, rec, msg, nil))

	return rec, msg, nil
}

// Process consumes an inbound message. A VerificationError carries the abandoned record and the
// problem report to send back.
func (e *Engine) Process(ctx context.Context, in *Inbound) (*Record, error) {
	msg := in.Message
	if msg.Stage == StageProblemReport {
		return e.ProcessProblemReport(ctx, in)
	}

	_, t, err := e.family.ProcessFor(msg.Stage)
	if err != nil {
		return nil, err
	}

	var events []service.StateMsg

	rec, err := func() (*Record, error) {
		found, unlock, err := e.lockGuarded(ctx, threadKey(msg.ThreadID, in.ConnectionID),
			func(ctx context.Context) (*Record, error) {
				return e.repo.FindByThreadAndConnection(ctx, msg.ThreadID, in.ConnectionID, t.Role)
			})
		if err != nil {
			return nil, err
		}

		defer unlock()

		rec, isNew, err := e.loadForProcess(t, in, found)
		if err != nil {
			return nil, err
		}

		events = append(events, e.event(service.PreState, rec, msg, nil))

		updated := rec.Clone()
		if updated.ConnectionID == "" {
			updated.ConnectionID = in.ConnectionID
		}

		err = e.consume(ctx, t, updated, msg, isNew)

		var verr *VerificationError
		if err != nil && !errors.As(err, &verr) {
			return nil, err
		}

		events = append(events, e.event(service.PostState, updated, msg, err))

		return updated, err
	}()
	if err != nil && rec == nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	e.notify(events...)

	return rec, err
}

func (e *Engine) loadForProcess(t Transition, in *Inbound, rec *Record) (*Record, bool, error) {
	msg := in.Message

	if rec == nil {
		if !t.AllowNew {
			return nil, false, &StateAssertionError{Operation: t.Name, Expected: t.From}
		}

		return &Record{
			ID:             uuid.New().String(),
			ThreadID:       msg.ThreadID,
			ParentThreadID: msg.ParentThreadID,
			ConnectionID:   in.ConnectionID,
			Protocol:       e.family.Name,
			Version:        msg.Version,
			Role:           t.Role,
		}, true, nil
	}

	if err := assertTransition(t, rec); err != nil {
		return nil, false, err
	}

	if rec.Version != msg.Version {
		return nil, false, &StateAssertionError{
			Operation: t.Name,
			Expected:  t.From,
			Actual:    rec.State,
			Reason:    fmt.Sprintf("message version %s does not match exchange version %s", msg.Version, rec.Version),
		}
	}

	return rec, false, nil
}

func (e *Engine) consume(ctx context.Context, t Transition, rec *Record, msg *StageMessage, isNew bool) error {
	if t.Stage == StageAck {
		if err := e.messages.Save(ctx, rec.ID, Receiver, msg); err != nil {
			return err
		}

		rec.State = t.To

		return e.persist(ctx, rec, isNew)
	}

	verify := e.family.VerifyIssue && t.Stage == StageIssue

	outcome, err := e.coordinator.Process(ctx, rec, msg, e.family.Responds[t.Stage], e.family.StrictStages[t.Stage],
		verify)
	if err != nil {
		return err
	}

	if e.family.ComparePreview && t.Stage == StageOffer {
		rec.CredentialAttributes = append([]PreviewAttribute(nil), msg.Preview...)
	}

	if verify {
		valid := outcome.Valid
		rec.IsVerified = &valid

		if !valid {
			return e.abandonUnverified(ctx, rec, outcome.Reason, isNew)
		}
	}

	rec.State = t.To

	return e.persist(ctx, rec, isNew)
}

func (e *Engine) abandonUnverified(ctx context.Context, rec *Record, reason string, isNew bool) error {
	if reason == "" {
		reason = ErrorNotAllValid
	}

	codec, err := e.codecs.ForVersion(rec.Version)
	if err != nil {
		return err
	}

	rec.State = StateAbandoned
	rec.ErrorMessage = reason

	report := newProblemReport(codec, rec, ProblemCodeAbandoned, reason)
	if err := e.messages.Save(ctx, rec.ID, Sender, report); err != nil {
		return err
	}

	if err := e.persist(ctx, rec, isNew); err != nil {
		return err
	}

	logger.Warnf("%s: exchange %s abandoned: %s", e.family.Name, rec.ID, reason)

	return &VerificationError{Record: rec.Clone(), ProblemReport: report}
}

// Accept answers the last received message of the record, or completes the exchange with an ack.
func (e *Engine) Accept(ctx context.Context, op Operation, recordID string, opts *Options) (*Record, *StageMessage,
	error) {
	t, err := e.family.Transition(op)
	if err != nil {
		return nil, nil, err
	}

	if t.Kind != KindAccept && t.Kind != KindComplete {
		return nil, nil, fmt.Errorf("%w: %s is not an accept operation", ErrUnknownOperation, t.Name)
	}

	return e.respond(ctx, t, recordID, opts, nil)
}

// Negotiate answers the last received message with a counter message built from new inputs.
func (e *Engine) Negotiate(ctx context.Context, op Operation, recordID string, opts *Options) (*Record, *StageMessage,
	error) {
	t, err := e.family.Transition(op)
	if err != nil {
		return nil, nil, err
	}

	if t.Kind != KindNegotiate {
		return nil, nil, fmt.Errorf("%w: %s is not a negotiate operation", ErrUnknownOperation, t.Name)
	}

	return e.respond(ctx, t, recordID, opts, nil)
}

// CommitHook runs inside the critical section of a respond operation, after the record passed the state checks
// and the message to send was built. An error aborts the operation and the record is left unchanged.
type CommitHook func(rec *Record, t Transition) error

// Respond runs an accept, complete or negotiate operation. hook, when set, runs right before the record
// is stored.
func (e *Engine) Respond(ctx context.Context, op Operation, recordID string, opts *Options,
	hook CommitHook) (*Record, *StageMessage, error) {
	t, err := e.family.Transition(op)
	if err != nil {
		return nil, nil, err
	}

	switch t.Kind {
	case KindAccept, KindComplete, KindNegotiate:
	default:
		return nil, nil, fmt.Errorf("%w: %s does not answer an exchange", ErrUnknownOperation, t.Name)
	}

	return e.respond(ctx, t, recordID, opts, hook)
}

func (e *Engine) respond(ctx context.Context, t Transition, recordID string, opts *Options,
	hook CommitHook) (*Record, *StageMessage, error) {
	if opts == nil {
		opts = &Options{}
	}

	var (
		events  []service.StateMsg
		updated *Record
		out     *StageMessage
	)

	err := e.withRecord(ctx, recordID, func(rec *Record) error {
		if err := assertTransition(t, rec); err != nil {
			return err
		}

		if t.NeedsConnection && rec.ConnectionID == "" {
			return fmt.Errorf("%w: exchange %s has no connection", ErrPrecondition, rec.ID)
		}

		codec, err := e.codecs.ForVersion(rec.Version)
		if err != nil {
			return err
		}

		events = append(events, e.event(service.PreState, rec, nil, nil))

		updated = rec.Clone()
		if opts.AutoAccept != "" {
			updated.AutoAccept = opts.AutoAccept
		}

		out = newMessage(codec, t.Produces, uuid.New().String(), updated, opts)

		if err := e.produce(ctx, t, updated, out, opts); err != nil {
			return err
		}

		if hook != nil {
			if err := hook(rec, t); err != nil {
				return err
			}
		}

		updated.State = t.To

		if err := e.repo.Update(ctx, updated); err != nil {
			return err
		}

		events = append(events, e.event(service.PostState, updated, out, nil))

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	e.notify(events...)

	return updated, out, nil
}

func (e *Engine) produce(ctx context.Context, t Transition, rec *Record, out *StageMessage, opts *Options) error {
	switch t.Kind {
	case KindComplete:
		out.Status = model.AckStatusOK

		return e.messages.Save(ctx, rec.ID, Sender, out)
	case KindNegotiate:
		services, err := e.registry.ForKeys(inputKeys(opts.Formats))
		if err != nil {
			return err
		}

		return e.coordinator.Create(ctx, rec, out, services, opts.Formats)
	default:
		if e.family.ComparePreview && out.Stage == StageOffer && len(out.Preview) == 0 {
			received, err := e.messages.Get(ctx, rec.ID, t.Stage, Receiver)
			if err != nil {
				return err
			}

			out.Preview = append([]PreviewAttribute(nil), received.Preview...)
		}

		var bound Stage
		if e.family.StrictStages[t.Stage] {
			bound = e.family.Responds[t.Stage]
		}

		return e.coordinator.Accept(ctx, rec, t.Stage, out, opts.Formats, bound)
	}
}

// ProcessProblemReport abandons the exchange the report refers to.
func (e *Engine) ProcessProblemReport(ctx context.Context, in *Inbound) (*Record, error) {
	msg := in.Message

	var events []service.StateMsg

	rec, err := func() (*Record, error) {
		rec, unlock, err := e.lockGuarded(ctx, threadKey(msg.ThreadID, in.ConnectionID),
			func(ctx context.Context) (*Record, error) {
				return e.findAnyRole(ctx, msg.ThreadID, in.ConnectionID)
			})
		if err != nil {
			return nil, err
		}

		defer unlock()

		if rec == nil {
			return nil, fmt.Errorf("%w: thread %s", ErrRecordNotFound, msg.ThreadID)
		}

		if rec.State.IsTerminal() {
			return nil, &StateAssertionError{
				Operation: processProblemReport,
				Expected:  nonTerminal(e.family.States()),
				Actual:    rec.State,
			}
		}

		events = append(events, e.event(service.PreState, rec, msg, nil))

		if err := e.messages.Save(ctx, rec.ID, Receiver, msg); err != nil {
			return nil, err
		}

		updated := rec.Clone()
		updated.State = StateAbandoned
		updated.ErrorMessage = problemText(msg.Code, msg.Comment)

		if err := e.repo.Update(ctx, updated); err != nil {
			return nil, err
		}

		events = append(events, e.event(service.PostState, updated, msg, nil))

		return updated, nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", processProblemReport, err)
	}

	e.notify(events...)

	return rec, nil
}

// CreateProblemReport builds a problem report for the exchange. With abandon set, a non terminal
// exchange is abandoned, which is how a received message is declined.
func (e *Engine) CreateProblemReport(ctx context.Context, recordID, code, comment string,
	abandon bool) (*Record, *StageMessage, error) {
	return e.problemReport(ctx, recordID, code, comment, abandon, nil)
}

// AbandonIf abandons the exchange with a problem report when cond holds for the record as loaded under
// its lock. Otherwise it fails with ErrPrecondition and nothing is stored.
func (e *Engine) AbandonIf(ctx context.Context, recordID, code, comment string,
	cond func(rec *Record) bool) (*Record, *StageMessage, error) {
	return e.problemReport(ctx, recordID, code, comment, true, cond)
}

func (e *Engine) problemReport(ctx context.Context, recordID, code, comment string, abandon bool,
	cond func(rec *Record) bool) (*Record, *StageMessage, error) {
	if code == "" {
		code = ProblemCodeAbandoned
	}

	var (
		events  []service.StateMsg
		updated *Record
		report  *StageMessage
	)

	err := e.withRecord(ctx, recordID, func(rec *Record) error {
		if cond != nil && !cond(rec) {
			return fmt.Errorf("%w: exchange %s is in state %s since %s", ErrPrecondition, rec.ID, rec.State,
				rec.UpdatedAt.Format(time.RFC3339))
		}

		codec, err := e.codecs.ForVersion(rec.Version)
		if err != nil {
			return err
		}

		updated = rec.Clone()
		report = newProblemReport(codec, updated, code, comment)

		if err := e.messages.Save(ctx, rec.ID, Sender, report); err != nil {
			return err
		}

		if !abandon || rec.State.IsTerminal() {
			return nil
		}

		events = append(events, e.event(service.PreState, rec, nil, nil))

		updated.State = StateAbandoned
		updated.ErrorMessage = problemText(code, comment)

		if err := e.repo.Update(ctx, updated); err != nil {
			return err
		}

		events = append(events, e.event(service.PostState, updated, report, nil))

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("CreateProblemReport: %w", err)
	}

	e.notify(events...)

	return updated, report, nil
}

// ShouldAutoRespond applies the auto accept policy to a message Process just consumed.
func (e *Engine) ShouldAutoRespond(ctx context.Context, rec *Record, msg *StageMessage) bool {
	return e.composer.ShouldAutoRespond(ctx, rec, msg)
}

// EffectiveAutoAccept returns the policy in force for the record.
func (e *Engine) EffectiveAutoAccept(rec *Record) AutoAccept {
	return e.composer.Effective(rec)
}

// FindMessage returns the latest message of the stage the record sent or received.
func (e *Engine) FindMessage(ctx context.Context, recordID string, stage Stage, role MessageRole) (*StageMessage,
	error) {
	return e.messages.Get(ctx, recordID, stage, role)
}

// FormatData returns the decoded attachment payloads of the record, keyed by stage then format key.
func (e *Engine) FormatData(ctx context.Context, recordID string) (map[Stage]map[string]interface{}, error) {
	if _, err := e.repo.GetByID(ctx, recordID); err != nil {
		return nil, err
	}

	return e.coordinator.FormatData(ctx, recordID)
}

// GetRecord returns a record of the family.
func (e *Engine) GetRecord(ctx context.Context, id string) (*Record, error) {
	rec, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Protocol != e.family.Name {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	return rec, nil
}

// Records lists the records of the family matching the filter.
func (e *Engine) Records(ctx context.Context, filter RecordFilter) ([]*Record, error) {
	filter.Protocol = e.family.Name

	return e.repo.Query(ctx, filter)
}

// DeleteRecord removes a record and its stored messages.
func (e *Engine) DeleteRecord(ctx context.Context, id string) error {
	return e.withRecord(ctx, id, func(rec *Record) error {
		if err := e.messages.DeleteAll(ctx, rec.ID); err != nil {
			return err
		}

		return e.repo.Delete(ctx, rec.ID)
	})
}

// withRecord locks the key guarding the record and runs fn on a copy loaded under that lock.
func (e *Engine) withRecord(ctx context.Context, id string, fn func(rec *Record) error) error {
	rec, unlock, err := e.lockGuarded(ctx, "", func(ctx context.Context) (*Record, error) {
		return e.GetRecord(ctx, id)
	})
	if err != nil {
		return err
	}

	defer unlock()

	if rec == nil {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	return fn(rec)
}

// lockGuarded locks the key guarding the record find returns, then loads it again under the lock. A binding
// done in between changes the key, in which case the lock is released and taken again for the new key. fallback
// guards a record that does not exist yet; the returned record is nil then.
func (e *Engine) lockGuarded(ctx context.Context, fallback string,
	find func(ctx context.Context) (*Record, error)) (*Record, func(), error) {
	for {
		rec, err := find(ctx)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return nil, nil, err
		}

		key := guardKey(rec, fallback)
		unlock := e.locks.Lock(key)

		rec, err = find(ctx)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			unlock()

			return nil, nil, err
		}

		if guardKey(rec, fallback) == key {
			return rec, unlock, nil
		}

		unlock()
	}
}

func guardKey(rec *Record, fallback string) string {
	if rec == nil {
		return fallback
	}

	return threadKey(rec.ThreadID, rec.ConnectionID)
}

func (e *Engine) findAnyRole(ctx context.Context, threadID, connectionID string) (*Record, error) {
	for _, role := range e.family.Roles {
		rec, err := e.repo.FindByThreadAndConnection(ctx, threadID, connectionID, role)
		if err == nil {
			return rec, nil
		}

		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: thread %s", ErrRecordNotFound, threadID)
}

func (e *Engine) persist(ctx context.Context, rec *Record, isNew bool) error {
	if isNew {
		return e.repo.Save(ctx, rec)
	}

	return e.repo.Update(ctx, rec)
}

func (e *Engine) event(t service.StateMsgType, rec *Record, msg *StageMessage, err error) service.StateMsg {
	var payload service.DIDCommMsgMap

	if msg != nil {
		encoded, encErr := e.Encode(msg)
		if encErr != nil {
			logger.Warnf("%s: encode %s for state event: %s", e.family.Name, msg.Stage, encErr)
		}

		payload = encoded
	}

	return service.StateMsg{
		ProtocolName: e.family.Name,
		Type:         t,
		StateID:      string(rec.State),
		Msg:          payload,
		Properties:   NewProperties(rec.Clone(), err),
	}
}

func (e *Engine) notify(events ...service.StateMsg) {
	for _, ev := range events {
		e.Notify(ev)
	}
}

func assertTransition(t Transition, rec *Record) error {
	if rec.Role != t.Role {
		return &StateAssertionError{
			Operation: t.Name,
			Expected:  t.From,
			Actual:    rec.State,
			Reason:    fmt.Sprintf("exchange role is %s, operation requires %s", rec.Role, t.Role),
		}
	}

	if !t.allows(rec.State) {
		return &StateAssertionError{Operation: t.Name, Expected: t.From, Actual: rec.State}
	}

	return nil
}

func newMessage(codec Codec, stage Stage, id string, rec *Record, opts *Options) *StageMessage {
	return &StageMessage{
		ID:             id,
		Type:           codec.Type(stage),
		Stage:          stage,
		Version:        codec.Version(),
		ThreadID:       rec.ThreadID,
		ParentThreadID: rec.ParentThreadID,
		Comment:        opts.Comment,
		GoalCode:       opts.GoalCode,
		WillConfirm:    opts.WillConfirm,
		Preview:        append([]PreviewAttribute(nil), opts.Preview...),
	}
}

func newProblemReport(codec Codec, rec *Record, code, comment string) *StageMessage {
	return &StageMessage{
		ID:             uuid.New().String(),
		Type:           codec.Type(StageProblemReport),
		Stage:          StageProblemReport,
		Version:        codec.Version(),
		ThreadID:       rec.ThreadID,
		ParentThreadID: rec.ParentThreadID,
		Code:           code,
		Comment:        comment,
	}
}

func problemText(code, comment string) string {
	if comment == "" {
		return code
	}

	return code + ": " + comment
}

func nonTerminal(states []State) []State {
	var result []State

	for _, s := range states {
		if !s.IsTerminal() {
			result = append(result, s)
		}
	}

	return result
}
