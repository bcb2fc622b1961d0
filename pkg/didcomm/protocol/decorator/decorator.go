/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package decorator holds the DIDComm message decorators and attachment shapes shared by all protocol versions.
package decorator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Thread thread data.
type Thread struct {
	ID  string `json:"thid,omitempty"`
	PID string `json:"pthid,omitempty"`
}

// Attachment is the DIDComm V1 attachment decorator (`~attach` lists).
// The format of an attachment is not carried here but in the message level formats list.
type Attachment struct {
	ID          string         `json:"@id,omitempty"`
	Description string         `json:"description,omitempty"`
	MimeType    string         `json:"mime-type,omitempty"`
	LastModTime string         `json:"lastmod_time,omitempty"`
	ByteCount   int64          `json:"byte_count,omitempty"`
	Data        AttachmentData `json:"data"`
}

// AttachmentV2 is the DIDComm V2 attachment. It carries its own format tag.
type AttachmentV2 struct {
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description,omitempty"`
	MediaType   string         `json:"media_type,omitempty"`
	Format      string         `json:"format,omitempty"`
	LastModTime string         `json:"lastmod_time,omitempty"`
	ByteCount   int64          `json:"byte_count,omitempty"`
	Data        AttachmentData `json:"data"`
}

// AttachmentData holds the payload of an attachment. Exactly one of JSON or Base64 is expected.
type AttachmentData struct {
	// Sha256 is the hash of the content. Optional.
	Sha256 string `json:"sha256,omitempty"`
	// Base64 encoded content.
	Base64 string `json:"base64,omitempty"`
	// JSON content, inlined.
	JSON interface{} `json:"json,omitempty"`
}

// Fetch returns the raw bytes of the payload. JSON content is marshalled, base64 content is decoded.
func (d *AttachmentData) Fetch() ([]byte, error) {
	if d.JSON != nil {
		bits, err := json.Marshal(d.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json contents: %w", err)
		}

		return bits, nil
	}

	if d.Base64 != "" {
		bits, err := base64.StdEncoding.DecodeString(d.Base64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 contents: %w", err)
		}

		return bits, nil
	}

	return nil, errors.New("no contents in this attachment")
}

// ToV2 converts a V1 attachment to the V2 shape with the given format.
func (a Attachment) ToV2(format string) AttachmentV2 {
	return AttachmentV2{
		ID:          a.ID,
		Description: a.Description,
		MediaType:   a.MimeType,
		Format:      format,
		LastModTime: a.LastModTime,
		ByteCount:   a.ByteCount,
		Data:        a.Data,
	}
}

// ToV1 converts a V2 attachment to the V1 shape. The format tag is dropped.
func (a AttachmentV2) ToV1() Attachment {
	return Attachment{
		ID:          a.ID,
		Description: a.Description,
		MimeType:    a.MediaType,
		LastModTime: a.LastModTime,
		ByteCount:   a.ByteCount,
		Data:        a.Data,
	}
}
