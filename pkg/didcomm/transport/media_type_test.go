/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaTypes(t *testing.T) {
	require.Equal(t, MediaTypeV2PlaintextPayload, MediaTypeFor(true))
	require.Equal(t, MediaTypeV1PlaintextPayload, MediaTypeFor(false))

	tests := []struct {
		contentType string
		accepted    bool
	}{
		{MediaTypeV1PlaintextPayload, true},
		{MediaTypeV2PlaintextPayload, true},
		{MediaTypeJSON, true},
		{"application/json; charset=utf-8", true},
		{"application/json;flavor=other", false},
		{"application/didcomm-encrypted+json", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tc := range tests {
		require.Equal(t, tc.accepted, IsPlaintextMediaType(tc.contentType), tc.contentType)
	}
}
