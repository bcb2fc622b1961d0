/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
)

const (
	didCommOrg = "https://didcomm.org/"

	ackName           = "ack"
	problemReportName = "problem-report"
)

// ErrUnknownMessageType is returned when no codec understands a message type.
var ErrUnknownMessageType = errors.New("unknown message type")

// Codec translates stage messages of one protocol version to and from the wire.
type Codec interface {
	Version() Version
	// Accept reports whether the codec understands the message type URI.
	Accept(msgType string) bool
	// Type returns the message type URI of the stage.
	Type(stage Stage) string
	Decode(msg service.DIDCommMsgMap) (*StageMessage, error)
	Encode(msg *StageMessage) (service.DIDCommMsgMap, error)
}

// Naming holds the family specific wire names.
type Naming struct {
	Protocol string
	// StageTypes maps a stage to its message name, e.g. offer to "offer-credential".
	// Ack and problem-report default to their usual names.
	StageTypes map[Stage]string
	// AttachKeys maps a stage to its v1/v2 attachment list key, e.g. offer to "offers~attach".
	AttachKeys map[Stage]string
	// PreviewType is the name of the preview inner object, empty when the family has none.
	PreviewType string
	// PreviewStages are the stages carrying a preview.
	PreviewStages map[Stage]bool
}

// SpecURI returns the protocol URI of the version, e.g. https://didcomm.org/issue-credential/2.0/.
func (n Naming) SpecURI(v Version) string {
	return didCommOrg + n.Protocol + "/" + versionNumber(v) + "/"
}

func (n Naming) messageName(stage Stage) string {
	if name, ok := n.StageTypes[stage]; ok {
		return name
	}

	switch stage {
	case StageAck:
		return ackName
	case StageProblemReport:
		return problemReportName
	default:
		return string(stage)
	}
}

func (n Naming) stageOf(v Version, msgType string) (Stage, bool) {
	spec := n.SpecURI(v)
	if !strings.HasPrefix(msgType, spec) {
		return "", false
	}

	name := strings.TrimPrefix(msgType, spec)

	for stage, candidate := range n.StageTypes {
		if candidate == name {
			return stage, true
		}
	}

	switch name {
	case ackName:
		return StageAck, true
	case problemReportName:
		return StageProblemReport, true
	default:
		return "", false
	}
}

func versionNumber(v Version) string {
	switch v {
	case V1:
		return "1.0"
	case V3:
		return "3.0"
	default:
		return "2.0"
	}
}

// Codecs is the set of codecs of a family.
type Codecs []Codec

// ForType returns the codec understanding the message type.
func (c Codecs) ForType(msgType string) (Codec, error) {
	for _, codec := range c {
		if codec.Accept(msgType) {
			return codec, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msgType)
}

// ForVersion returns the codec of the version.
func (c Codecs) ForVersion(v Version) (Codec, error) {
	for _, codec := range c {
		if codec.Version() == v {
			return codec, nil
		}
	}

	return nil, fmt.Errorf("no codec for protocol version %s", v)
}

// NewCodecs returns the v1, v2 and v3 codecs of a family.
func NewCodecs(naming Naming) Codecs {
	return Codecs{NewLegacyCodec(V1, naming), NewLegacyCodec(V2, naming), NewV3Codec(naming)}
}

type legacyPreview struct {
	Type       string             `json:"@type,omitempty"`
	Attributes []PreviewAttribute `json:"attributes"`
}

type legacyMessage struct {
	ID          string            `json:"@id,omitempty"`
	Type        string            `json:"@type,omitempty"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
	Comment     string            `json:"comment,omitempty"`
	GoalCode    string            `json:"goal_code,omitempty"`
	WillConfirm bool              `json:"will_confirm,omitempty"`
	Formats     []FormatSpec      `json:"formats,omitempty"`
	Preview     *legacyPreview    `json:"credential_preview,omitempty"`
	Status      string            `json:"status,omitempty"`
	Description *model.Code       `json:"description,omitempty"`
}

type legacyCodec struct {
	version Version
	naming  Naming
}

// NewLegacyCodec returns the codec of the v1/v2 layout: `@id`, `~thread`, a formats list and a
// per stage `~attach` list.
func NewLegacyCodec(v Version, naming Naming) Codec {
	return &legacyCodec{version: v, naming: naming}
}

func (c *legacyCodec) Version() Version {
	return c.version
}

func (c *legacyCodec) Accept(msgType string) bool {
	_, ok := c.naming.stageOf(c.version, msgType)

	return ok
}

func (c *legacyCodec) Type(stage Stage) string {
	return c.naming.SpecURI(c.version) + c.naming.messageName(stage)
}

func (c *legacyCodec) Decode(m service.DIDCommMsgMap) (*StageMessage, error) {
	stage, ok := c.naming.stageOf(c.version, m.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, m.Type())
	}

	wire := legacyMessage{}
	if err := m.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Type(), err)
	}

	msg, err := newDecodedMessage(m, stage, c.version)
	if err != nil {
		return nil, err
	}

	msg.Comment = wire.Comment
	msg.GoalCode = wire.GoalCode
	msg.WillConfirm = wire.WillConfirm
	msg.Formats = wire.Formats
	msg.Status = wire.Status

	if wire.Description != nil {
		msg.Code = wire.Description.Code
		msg.Comment = wire.Description.Message
	}

	if wire.Preview != nil {
		msg.Preview = wire.Preview.Attributes
	}

	key, ok := c.naming.AttachKeys[stage]
	if !ok || m[key] == nil {
		return msg, nil
	}

	var attachments []decorator.Attachment
	if err := decodeValue(m[key], &attachments); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	for _, a := range attachments {
		format := ""

		for _, f := range wire.Formats {
			if f.AttachID == a.ID {
				format = f.Format
			}
		}

		msg.Attachments = append(msg.Attachments, a.ToV2(format))
	}

	return msg, nil
}

func (c *legacyCodec) Encode(msg *StageMessage) (service.DIDCommMsgMap, error) {
	msgType := c.Type(msg.Stage)

	var thread *decorator.Thread
	if (msg.ThreadID != "" && msg.ThreadID != msg.ID) || msg.ParentThreadID != "" {
		thread = &decorator.Thread{ID: msg.ThreadID, PID: msg.ParentThreadID}
	}

	header := model.Header{Type: msgType, ID: msg.ID, Thread: thread}

	switch msg.Stage {
	case StageAck:
		return service.NewDIDCommMsgMap(model.Ack{Header: header, Status: msg.Status})
	case StageProblemReport:
		return service.NewDIDCommMsgMap(model.ProblemReport{
			Header:      header,
			Description: model.Code{Code: msg.Code, Message: msg.Comment},
		})
	}

	wire := legacyMessage{
		ID:          msg.ID,
		Type:        msgType,
		Thread:      thread,
		Comment:     msg.Comment,
		GoalCode:    msg.GoalCode,
		WillConfirm: msg.WillConfirm,
	}

	attachments := make([]decorator.Attachment, 0, len(msg.Attachments))

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		wire.Formats = append(wire.Formats, FormatSpec{AttachID: att.ID, Format: msg.FormatOf(att)})
		attachments = append(attachments, att.ToV1())
	}

	if c.naming.PreviewStages[msg.Stage] && len(msg.Preview) > 0 {
		wire.Preview = &legacyPreview{
			Type:       c.naming.SpecURI(c.version) + c.naming.PreviewType,
			Attributes: msg.Preview,
		}
	}

	m, err := service.NewDIDCommMsgMap(wire)
	if err != nil {
		return nil, err
	}

	if key, ok := c.naming.AttachKeys[msg.Stage]; ok && len(attachments) > 0 {
		value, err := jsonValue(attachments)
		if err != nil {
			return nil, err
		}

		m[key] = value
	}

	return m, nil
}

type v3Preview struct {
	Type       string             `json:"type,omitempty"`
	Attributes []PreviewAttribute `json:"attributes"`
}

type v3Body struct {
	GoalCode    string     `json:"goal_code,omitempty"`
	Comment     string     `json:"comment,omitempty"`
	WillConfirm bool       `json:"will_confirm,omitempty"`
	Preview     *v3Preview `json:"credential_preview,omitempty"`
	Status      string     `json:"status,omitempty"`
	Code        string     `json:"code,omitempty"`
}

type v3Message struct {
	ID             string                   `json:"id,omitempty"`
	Type           string                   `json:"type,omitempty"`
	ThreadID       string                   `json:"thid,omitempty"`
	ParentThreadID string                   `json:"pthid,omitempty"`
	Body           v3Body                   `json:"body"`
	Attachments    []decorator.AttachmentV2 `json:"attachments,omitempty"`
}

type v3Codec struct {
	naming Naming
}

// NewV3Codec returns the codec of the v3 layout: `id`, `thid`, a `body` and format tagged attachments.
func NewV3Codec(naming Naming) Codec {
	return &v3Codec{naming: naming}
}

func (c *v3Codec) Version() Version {
	return V3
}

func (c *v3Codec) Accept(msgType string) bool {
	_, ok := c.naming.stageOf(V3, msgType)

	return ok
}

func (c *v3Codec) Type(stage Stage) string {
	return c.naming.SpecURI(V3) + c.naming.messageName(stage)
}

func (c *v3Codec) Decode(m service.DIDCommMsgMap) (*StageMessage, error) {
	stage, ok := c.naming.stageOf(V3, m.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, m.Type())
	}

	wire := v3Message{}
	if err := m.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Type(), err)
	}

	msg, err := newDecodedMessage(m, stage, V3)
	if err != nil {
		return nil, err
	}

	msg.Comment = wire.Body.Comment
	msg.GoalCode = wire.Body.GoalCode
	msg.WillConfirm = wire.Body.WillConfirm
	msg.Status = wire.Body.Status
	msg.Code = wire.Body.Code
	msg.Attachments = wire.Attachments

	if wire.Body.Preview != nil {
		msg.Preview = wire.Body.Preview.Attributes
	}

	for _, a := range wire.Attachments {
		msg.Formats = append(msg.Formats, FormatSpec{AttachID: a.ID, Format: a.Format})
	}

	return msg, nil
}

func (c *v3Codec) Encode(msg *StageMessage) (service.DIDCommMsgMap, error) {
	msgType := c.Type(msg.Stage)

	thid := msg.ThreadID
	if thid == msg.ID {
		thid = ""
	}

	header := model.HeaderV2{ID: msg.ID, Type: msgType, ThreadID: thid, ParentThreadID: msg.ParentThreadID}

	switch msg.Stage {
	case StageAck:
		return service.NewDIDCommMsgMap(model.AckV2{
			HeaderV2: header,
			Body:     model.AckV2Body{Status: msg.Status},
		})
	case StageProblemReport:
		return service.NewDIDCommMsgMap(model.ProblemReportV2{
			HeaderV2: header,
			Body:     model.ProblemReportV2Body{Code: msg.Code, Comment: msg.Comment},
		})
	}

	wire := v3Message{
		ID:             msg.ID,
		Type:           msgType,
		ThreadID:       thid,
		ParentThreadID: msg.ParentThreadID,
		Body: v3Body{
			GoalCode:    msg.GoalCode,
			Comment:     msg.Comment,
			WillConfirm: msg.WillConfirm,
		},
	}

	for i := range msg.Attachments {
		att := msg.Attachments[i]
		att.Format = msg.FormatOf(&msg.Attachments[i])
		wire.Attachments = append(wire.Attachments, att)
	}

	if c.naming.PreviewStages[msg.Stage] && len(msg.Preview) > 0 {
		wire.Body.Preview = &v3Preview{
			Type:       c.naming.SpecURI(V3) + c.naming.PreviewType,
			Attributes: msg.Preview,
		}
	}

	return service.NewDIDCommMsgMap(wire)
}

func newDecodedMessage(m service.DIDCommMsgMap, stage Stage, v Version) (*StageMessage, error) {
	if m.ID() == "" {
		return nil, fmt.Errorf("%s message without id", m.Type())
	}

	thid, err := m.ThreadID()
	if err != nil {
		return nil, fmt.Errorf("%s message: %w", m.Type(), err)
	}

	return &StageMessage{
		ID:             m.ID(),
		Type:           m.Type(),
		Stage:          stage,
		Version:        v,
		ThreadID:       thid,
		ParentThreadID: m.ParentThreadID(),
	}, nil
}

func decodeValue(input, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func jsonValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return value, nil
}
