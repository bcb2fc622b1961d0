/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	offerV2 = "https://didcomm.org/issue-credential/2.0/offer-credential"
	offerV3 = "https://didcomm.org/issue-credential/3.0/offer-credential"
)

func TestDIDCommMsgMap_Layouts(t *testing.T) {
	tests := []struct {
		name  string
		msg   DIDCommMsgMap
		v2    bool
		id    string
		typ   string
		thid  string
		pthid string
		err   error
	}{{
		name: "nil",
		err:  ErrThreadIDNotFound,
	}, {
		name: "v1 opening a thread",
		msg:  DIDCommMsgMap{jsonID: "m1", jsonType: offerV2},
		id:   "m1",
		typ:  offerV2,
		thid: "m1",
	}, {
		name:  "v1 inside a thread",
		msg:   DIDCommMsgMap{jsonID: "m2", jsonType: offerV2, jsonThread: map[string]interface{}{"thid": "t1", "pthid": "p1"}},
		id:    "m2",
		typ:   offerV2,
		thid:  "t1",
		pthid: "p1",
	}, {
		name: "v2 opening a thread",
		msg:  DIDCommMsgMap{jsonIDV2: "m3", jsonTypeV2: offerV3},
		v2:   true,
		id:   "m3",
		typ:  offerV3,
		thid: "m3",
	}, {
		name:  "v2 inside a thread",
		msg:   DIDCommMsgMap{jsonIDV2: "m4", jsonTypeV2: offerV3, jsonThreadIDV2: "t2", jsonParentThreadIDV2: "p2"},
		v2:    true,
		id:    "m4",
		typ:   offerV3,
		thid:  "t2",
		pthid: "p2",
	}, {
		name: "v2 without ids",
		msg:  DIDCommMsgMap{jsonTypeV2: offerV3},
		v2:   true,
		typ:  offerV3,
		err:  ErrThreadIDNotFound,
	}, {
		name: "v1 without ids",
		msg:  DIDCommMsgMap{jsonType: offerV2, jsonThread: "not a thread"},
		typ:  offerV2,
		err:  ErrThreadIDNotFound,
	}, {
		name: "ids of the wrong type",
		msg:  DIDCommMsgMap{jsonID: 42, jsonType: []string{offerV2}},
		err:  ErrThreadIDNotFound,
	}}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.v2, tc.msg.IsDIDCommV2())
			require.Equal(t, tc.id, tc.msg.ID())
			require.Equal(t, tc.typ, tc.msg.Type())
			require.Equal(t, tc.pthid, tc.msg.ParentThreadID())

			thid, err := tc.msg.ThreadID()
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, tc.thid, thid)
		})
	}
}

func TestDIDCommMsgMap_Setters(t *testing.T) {
	t.Run("v1", func(t *testing.T) {
		msg := DIDCommMsgMap{jsonType: offerV2}
		msg.SetID("m1")
		msg.SetThread("t1", "")

		require.Equal(t, "m1", msg[jsonID])
		require.Equal(t, map[string]interface{}{"thid": "t1"}, msg[jsonThread])

		msg.SetThread("", "p1")
		require.Equal(t, "p1", msg.ParentThreadID())
	})

	t.Run("v2", func(t *testing.T) {
		msg := DIDCommMsgMap{jsonTypeV2: offerV3}
		msg.SetID("m2")
		msg.SetThread("t2", "p2")

		require.Equal(t, DIDCommMsgMap{
			jsonTypeV2: offerV3, jsonIDV2: "m2", jsonThreadIDV2: "t2", jsonParentThreadIDV2: "p2",
		}, msg)
	})

	t.Run("nothing to set", func(t *testing.T) {
		msg := DIDCommMsgMap{jsonType: offerV2}
		msg.SetThread("", "")
		require.NotContains(t, msg, jsonThread)

		var empty DIDCommMsgMap
		empty.SetID("m3")
		empty.SetThread("t3", "")
		require.Nil(t, empty)
	})
}

func TestDIDCommMsgMap_Metadata(t *testing.T) {
	require.Empty(t, DIDCommMsgMap(nil).Metadata())
	require.Empty(t, DIDCommMsgMap{jsonMetadata: "flat"}.Metadata())
	require.Equal(t, map[string]interface{}{"names": "degree"},
		DIDCommMsgMap{jsonMetadata: map[string]interface{}{"names": "degree"}}.Metadata())
}

func TestDIDCommMsgMap_Clone(t *testing.T) {
	require.Nil(t, DIDCommMsgMap(nil).Clone())

	msg := DIDCommMsgMap{jsonID: "m1", jsonType: offerV2}
	clone := msg.Clone()
	clone.SetID("m2")

	require.Equal(t, "m1", msg.ID())
	require.Equal(t, "m2", clone.ID())
}

func TestDIDCommMsgMap_Decode(t *testing.T) {
	type offer struct {
		ID      string    `json:"@id"`
		Comment string    `json:"comment"`
		Issued  time.Time `json:"issued"`
		Payload []byte    `json:"payload"`
		Count   int       `json:"count"`
	}

	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	msg, err := ParseDIDCommMsgMap([]byte(`{
		"@id": "m1",
		"comment": "degree",
		"issued": "2024-03-01T10:00:00Z",
		"payload": "eyJkZWdyZWUiOiJNU2MifQ==",
		"count": "2"
	}`))
	require.NoError(t, err)

	decoded := offer{}
	require.NoError(t, msg.Decode(&decoded))
	require.Equal(t, offer{
		ID:      "m1",
		Comment: "degree",
		Issued:  issued,
		Payload: []byte(`{"degree":"MSc"}`),
		Count:   2,
	}, decoded)

	require.Error(t, DIDCommMsgMap{"issued": "yesterday"}.Decode(&decoded))
}

func TestNewDIDCommMsgMap(t *testing.T) {
	msg, err := NewDIDCommMsgMap(struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}{ID: "m1", Type: offerV3})
	require.NoError(t, err)
	require.True(t, msg.IsDIDCommV2())
	require.Equal(t, "m1", msg.ID())

	_, err = NewDIDCommMsgMap(make(chan int))
	require.ErrorContains(t, err, "marshal")

	_, err = ParseDIDCommMsgMap([]byte("not json"))
	require.ErrorContains(t, err, "invalid payload data format")
}
