/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"mime"
	"strings"
)

const (
	// MediaTypeV1PlaintextPayload is the media type for DIDComm V1 plaintext messages as per Aries RFC 0044.
	MediaTypeV1PlaintextPayload = "application/json;flavor=didcomm-msg"
	// MediaTypeV2PlaintextPayload is the media type for DIDComm V2 plaintext messages.
	MediaTypeV2PlaintextPayload = "application/didcomm-plain+json"
	// MediaTypeJSON is accepted inbound for plain JSON clients.
	MediaTypeJSON = "application/json"
)

// MediaTypeFor returns the plaintext media type of a message of the given DIDComm generation.
func MediaTypeFor(didCommV2 bool) string {
	if didCommV2 {
		return MediaTypeV2PlaintextPayload
	}

	return MediaTypeV1PlaintextPayload
}

// IsPlaintextMediaType reports whether contentType is one of the plaintext media types the agent reads.
func IsPlaintextMediaType(contentType string) bool {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch mediaType {
	case MediaTypeV2PlaintextPayload:
		return true
	case MediaTypeJSON:
		flavor, ok := params["flavor"]

		return !ok || strings.EqualFold(flavor, "didcomm-msg")
	default:
		return false
	}
}
