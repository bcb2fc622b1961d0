/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	jsonID             = "@id"
	jsonType           = "@type"
	jsonThread         = "~thread"
	jsonThreadID       = "thid"
	jsonParentThreadID = "pthid"
	jsonMetadata       = "_internal_metadata"

	jsonIDV2             = "id"
	jsonTypeV2           = "type"
	jsonThreadIDV2       = "thid"
	jsonParentThreadIDV2 = "pthid"
)

// ErrThreadIDNotFound is returned when a message carries neither a thread nor an id.
var ErrThreadIDNotFound = errors.New("threadID not found")

// DIDCommMsgMap is the generic, map backed form of a DIDComm message.
// It understands both the V1 (`@id`, `@type`, `~thread`) and the V2 (`id`, `type`, `thid`) layouts.
type DIDCommMsgMap map[string]interface{}

// NewDIDCommMsgMap converts a structure into a DIDCommMsgMap through its JSON form.
func NewDIDCommMsgMap(v interface{}) (DIDCommMsgMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return ParseDIDCommMsgMap(raw)
}

// ParseDIDCommMsgMap parses a raw JSON payload.
func ParseDIDCommMsgMap(payload []byte) (DIDCommMsgMap, error) {
	var msg DIDCommMsgMap

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid payload data format: %w", err)
	}

	return msg, nil
}

// IsDIDCommV2 reports whether the message uses the V2 envelope layout.
func (m DIDCommMsgMap) IsDIDCommV2() bool {
	if m == nil {
		return false
	}

	_, hasIDV2 := m[jsonIDV2]
	_, hasTypeV2 := m[jsonTypeV2]
	_, hasIDV1 := m[jsonID]

	return (hasIDV2 || hasTypeV2) && !hasIDV1
}

// ID returns the message id.
func (m DIDCommMsgMap) ID() string {
	if m.IsDIDCommV2() {
		return m.stringValue(jsonIDV2)
	}

	return m.stringValue(jsonID)
}

// Type returns the message type URI.
func (m DIDCommMsgMap) Type() string {
	if m.IsDIDCommV2() {
		return m.stringValue(jsonTypeV2)
	}

	return m.stringValue(jsonType)
}

// ThreadID returns the thread id. A message that opens a thread uses its own id.
func (m DIDCommMsgMap) ThreadID() (string, error) {
	if m == nil {
		return "", ErrThreadIDNotFound
	}

	if m.IsDIDCommV2() {
		if thid := m.stringValue(jsonThreadIDV2); thid != "" {
			return thid, nil
		}

		if id := m.stringValue(jsonIDV2); id != "" {
			return id, nil
		}

		return "", ErrThreadIDNotFound
	}

	if thread, ok := m[jsonThread].(map[string]interface{}); ok {
		if thid, ok := thread[jsonThreadID].(string); ok && thid != "" {
			return thid, nil
		}
	}

	if id := m.stringValue(jsonID); id != "" {
		return id, nil
	}

	return "", ErrThreadIDNotFound
}

// ParentThreadID returns the parent thread id, if any.
func (m DIDCommMsgMap) ParentThreadID() string {
	if m == nil {
		return ""
	}

	if m.IsDIDCommV2() {
		return m.stringValue(jsonParentThreadIDV2)
	}

	thread, ok := m[jsonThread].(map[string]interface{})
	if !ok {
		return ""
	}

	pthid, _ := thread[jsonParentThreadID].(string) //nolint:errcheck

	return pthid
}

// SetID sets the message id in the layout of the message.
func (m DIDCommMsgMap) SetID(id string) {
	if m == nil {
		return
	}

	if m.IsDIDCommV2() {
		m[jsonIDV2] = id

		return
	}

	m[jsonID] = id
}

// SetThread sets the thread and parent thread ids in the layout of the message.
func (m DIDCommMsgMap) SetThread(thid, pthid string) {
	if m == nil || (thid == "" && pthid == "") {
		return
	}

	if m.IsDIDCommV2() {
		if thid != "" {
			m[jsonThreadIDV2] = thid
		}

		if pthid != "" {
			m[jsonParentThreadIDV2] = pthid
		}

		return
	}

	thread := map[string]interface{}{}
	if thid != "" {
		thread[jsonThreadID] = thid
	}

	if pthid != "" {
		thread[jsonParentThreadID] = pthid
	}

	m[jsonThread] = thread
}

// Metadata returns the internal metadata attached to the message.
func (m DIDCommMsgMap) Metadata() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}

	if md, ok := m[jsonMetadata].(map[string]interface{}); ok {
		return md
	}

	return map[string]interface{}{}
}

// Clone returns a shallow copy of the message.
func (m DIDCommMsgMap) Clone() DIDCommMsgMap {
	if m == nil {
		return nil
	}

	msg := make(DIDCommMsgMap, len(m))
	for k, v := range m {
		msg[k] = v
	}

	return msg
}

// Decode converts the message into the given structure. Field names follow the `json` tags.
func (m DIDCommMsgMap) Decode(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           v,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(m)
}

func (m DIDCommMsgMap) stringValue(key string) string {
	if m == nil {
		return ""
	}

	s, _ := m[key].(string) //nolint:errcheck

	return s
}

func decodeHook(rt1, rt2 reflect.Type, v interface{}) (interface{}, error) {
	if rt1.Kind() != reflect.String {
		return v, nil
	}

	if rt2 == reflect.TypeOf(time.Time{}) {
		return time.Parse(time.RFC3339Nano, v.(string))
	}

	if rt2.Kind() == reflect.Slice && rt2.Elem().Kind() == reflect.Uint8 {
		return base64.StdEncoding.DecodeString(v.(string))
	}

	return v, nil
}
