/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

const defaultMediaType = "application/json"

// ProcessOutcome is the result of handing an inbound message to the format services.
type ProcessOutcome struct {
	// Valid is the conjunction of the services verdicts, only meaningful when verifying.
	Valid bool
	// Reason is the first verifier error, if any.
	Reason string
}

// Coordinator fans stage messages out to the format services and back.
type Coordinator struct {
	registry *Registry
	messages *MessageStore
}

// NewCoordinator returns a coordinator over the registry and message store.
func NewCoordinator(registry *Registry, messages *MessageStore) *Coordinator {
	return &Coordinator{registry: registry, messages: messages}
}

// Create lets every service contribute its attachment to msg and stores it as sent.
// Each service only sees its own entry of inputs.
func (c *Coordinator) Create(ctx context.Context, rec *Record, msg *StageMessage, services []FormatService,
	inputs map[string]interface{}) error {
	for _, svc := range services {
		out, err := svc.Create(ctx, msg.Stage, rec, inputs[svc.FormatKey()])
		if err != nil {
			return fmt.Errorf("%s: create %s: %w", svc.FormatKey(), msg.Stage, err)
		}

		appendOutput(msg, out)
	}

	return c.messages.Save(ctx, rec.ID, Sender, msg)
}

// Process hands each attachment of msg to the service supporting it and stores msg as received.
//
// answered is the stage of our message that msg responds to. When strict is set, every service
// that took part in that message must find its attachment in msg, and attachments of other formats
// are ignored. When verify is set, a service error counts as an invalid payload instead of failing the call.
func (c *Coordinator) Process(ctx context.Context, rec *Record, msg *StageMessage, answered Stage,
	strict, verify bool) (*ProcessOutcome, error) {
	predecessor, err := c.lastSent(ctx, rec.ID, answered)
	if err != nil {
		return nil, err
	}

	if strict && predecessor != nil {
		if err := c.checkParticipation(msg, predecessor); err != nil {
			return nil, err
		}
	}

	services := c.ServicesForMessage(msg)
	if len(services) == 0 && len(msg.Attachments) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, messageFormats(msg))
	}

	if strict {
		services = boundTo(services, predecessor)
	}

	outcome := &ProcessOutcome{Valid: true}

	for _, svc := range services {
		valid, err := svc.Process(ctx, msg.Stage, rec, resolveAttachment(msg, svc), resolveAttachment(predecessor, svc))

		switch {
		case err != nil && verify:
			logger.Debugf("%s rejected %s of %s: %s", svc.FormatKey(), msg.Stage, rec.ID, err)

			if outcome.Reason == "" {
				outcome.Reason = err.Error()
			}

			outcome.Valid = false
		case err != nil:
			return nil, fmt.Errorf("%s: process %s: %w", svc.FormatKey(), msg.Stage, err)
		case !valid:
			outcome.Valid = false
		}
	}

	if err := c.messages.Save(ctx, rec.ID, Receiver, msg); err != nil {
		return nil, err
	}

	return outcome, nil
}

// Accept answers the received message of stage with msg, built by the services that took part in it.
// Services absent from the received message are skipped. When the received message carries no
// attachments, the services named by inputs are used. With bound set, only the services of our last
// sent message of that stage answer, so the other party cannot add formats we never offered.
func (c *Coordinator) Accept(ctx context.Context, rec *Record, stage Stage, msg *StageMessage,
	inputs map[string]interface{}, bound Stage) error {
	received, err := c.messages.Get(ctx, rec.ID, stage, Receiver)
	if err != nil {
		return err
	}

	services := c.ServicesForMessage(received)
	if len(services) == 0 {
		services, err = c.registry.ForKeys(inputKeys(inputs))
		if err != nil {
			return err
		}
	}

	sent, err := c.lastSent(ctx, rec.ID, bound)
	if err != nil {
		return err
	}

	if services = boundTo(services, sent); len(services) == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, messageFormats(received))
	}

	for _, svc := range services {
		out, err := svc.Accept(ctx, stage, rec, resolveAttachment(received, svc), inputs[svc.FormatKey()])
		if err != nil {
			return fmt.Errorf("%s: accept %s: %w", svc.FormatKey(), stage, err)
		}

		appendOutput(msg, out)
	}

	return c.messages.Save(ctx, rec.ID, Sender, msg)
}

// ServicesForMessage returns the registered services that find an attachment in msg.
func (c *Coordinator) ServicesForMessage(msg *StageMessage) []FormatService {
	if msg == nil {
		return nil
	}

	var result []FormatService

	for _, svc := range c.registry.Services() {
		if resolveAttachment(msg, svc) != nil {
			result = append(result, svc)
		}
	}

	return result
}

// ServicesForKeys resolves services by format key.
func (c *Coordinator) ServicesForKeys(keys []string) ([]FormatService, error) {
	return c.registry.ForKeys(keys)
}

// FormatData returns the payloads of every stored message of the record, keyed by stage then format key.
// Received and sent messages of the same stage are merged, sent ones win.
func (c *Coordinator) FormatData(ctx context.Context, recordID string) (map[Stage]map[string]interface{}, error) {
	stored, err := c.messages.List(ctx, recordID)
	if err != nil {
		return nil, err
	}

	result := map[Stage]map[string]interface{}{}

	for _, role := range []MessageRole{Receiver, Sender} {
		for _, s := range stored {
			if s.Role != role {
				continue
			}

			for _, svc := range c.ServicesForMessage(s.Message) {
				payload, err := decodePayload(resolveAttachment(s.Message, svc))
				if err != nil {
					return nil, fmt.Errorf("%s payload of %s: %w", svc.FormatKey(), s.Message.Stage, err)
				}

				if result[s.Message.Stage] == nil {
					result[s.Message.Stage] = map[string]interface{}{}
				}

				result[s.Message.Stage][svc.FormatKey()] = payload
			}
		}
	}

	return result, nil
}

// ActiveServices returns the services of our last sent message of the stage.
func (c *Coordinator) ActiveServices(ctx context.Context, recordID string, stage Stage) ([]FormatService, *StageMessage,
	error) {
	sent, err := c.lastSent(ctx, recordID, stage)
	if err != nil || sent == nil {
		return nil, nil, err
	}

	return c.ServicesForMessage(sent), sent, nil
}

func (c *Coordinator) lastSent(ctx context.Context, recordID string, stage Stage) (*StageMessage, error) {
	if stage == "" {
		return nil, nil
	}

	msg, err := c.messages.Get(ctx, recordID, stage, Sender)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}

	return msg, err
}

func (c *Coordinator) checkParticipation(msg, predecessor *StageMessage) error {
	var missing []string

	for _, svc := range c.ServicesForMessage(predecessor) {
		if resolveAttachment(msg, svc) == nil {
			missing = append(missing, formatOfService(predecessor, svc))
		}
	}

	if len(missing) > 0 {
		return &UnresolvedFormatAttachmentError{Formats: missing}
	}

	return nil
}

// boundTo keeps the services that took part in sent. Without sent every service is kept.
func boundTo(services []FormatService, sent *StageMessage) []FormatService {
	if sent == nil {
		return services
	}

	var result []FormatService

	for _, svc := range services {
		if resolveAttachment(sent, svc) != nil {
			result = append(result, svc)
		} else {
			logger.Debugf("%s took no part in %s, its attachment is ignored", svc.FormatKey(), sent.Stage)
		}
	}

	return result
}

// resolveAttachment finds the attachment of the service in msg, through the formats list first and
// the attachment format tags otherwise. The returned attachment is a copy.
func resolveAttachment(msg *StageMessage, svc FormatService) *decorator.AttachmentV2 {
	if msg == nil {
		return nil
	}

	for _, f := range msg.Formats {
		if !svc.SupportsFormat(f.Format) {
			continue
		}

		if att := msg.Attachment(f.AttachID); att != nil {
			att.Format = f.Format

			return att
		}
	}

	for i := range msg.Attachments {
		if f := msg.Attachments[i].Format; f != "" && svc.SupportsFormat(f) {
			att := msg.Attachments[i]

			return &att
		}
	}

	return nil
}

func formatOfService(msg *StageMessage, svc FormatService) string {
	if att := resolveAttachment(msg, svc); att != nil {
		return att.Format
	}

	return svc.FormatKey()
}

func messageFormats(msg *StageMessage) []string {
	var formats []string

	for i := range msg.Attachments {
		formats = append(formats, msg.FormatOf(&msg.Attachments[i]))
	}

	return formats
}

func appendOutput(msg *StageMessage, out *FormatOutput) {
	if out == nil {
		return
	}

	id := uuid.New().String()

	mediaType := out.MediaType
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	msg.Formats = append(msg.Formats, FormatSpec{AttachID: id, Format: out.Format})
	msg.Attachments = append(msg.Attachments, decorator.AttachmentV2{
		ID:        id,
		MediaType: mediaType,
		Format:    out.Format,
		Data:      out.Data,
	})

	for _, attr := range out.Preview {
		if !hasAttribute(msg.Preview, attr.Name) {
			msg.Preview = append(msg.Preview, attr)
		}
	}
}

func hasAttribute(attrs []PreviewAttribute, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}

	return false
}

func decodePayload(att *decorator.AttachmentV2) (interface{}, error) {
	raw, err := att.Data.Fetch()
	if err != nil {
		return nil, err
	}

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return string(raw), nil //nolint:nilerr
	}

	return payload, nil
}
