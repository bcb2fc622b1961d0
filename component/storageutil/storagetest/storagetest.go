/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storagetest holds the conformance tests every spi/storage provider in this repository must pass.
package storagetest

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	spi "github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// TestAll runs every conformance test against the provider.
func TestAll(t *testing.T, provider spi.Provider) {
	t.Helper()

	t.Run("Store config", func(t *testing.T) { TestProviderOpenStoreSetGetConfig(t, provider) })
	t.Run("Put and get", func(t *testing.T) { TestPutGet(t, provider) })
	t.Run("Get tags", func(t *testing.T) { TestStoreGetTags(t, provider) })
	t.Run("Query", func(t *testing.T) { TestStoreQuery(t, provider) })
	t.Run("Delete", func(t *testing.T) { TestStoreDelete(t, provider) })
	t.Run("Batch", func(t *testing.T) { TestStoreBatch(t, provider) })
}

// TestProviderOpenStoreSetGetConfig checks store configuration round trips.
func TestProviderOpenStoreSetGetConfig(t *testing.T, provider spi.Provider) {
	t.Helper()

	name := randomStoreName()

	_, err := provider.GetStoreConfig(name)
	require.True(t, errors.Is(err, spi.ErrStoreNotFound))

	_, err = provider.OpenStore(name)
	require.NoError(t, err)

	config := spi.StoreConfiguration{TagNames: []string{"thid", "role"}}
	require.NoError(t, provider.SetStoreConfig(name, config))

	actual, err := provider.GetStoreConfig(name)
	require.NoError(t, err)
	require.ElementsMatch(t, config.TagNames, actual.TagNames)

	require.Error(t, provider.SetStoreConfig(name, spi.StoreConfiguration{TagNames: []string{"in:valid"}}))
}

// TestPutGet checks basic reads and writes.
func TestPutGet(t *testing.T, provider spi.Provider) {
	t.Helper()

	store, err := provider.OpenStore(randomStoreName())
	require.NoError(t, err)

	require.NoError(t, store.Put("key", []byte("value")))

	value, err := store.Get("key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	require.NoError(t, store.Put("key", []byte("updated")))

	value, err = store.Get("key")
	require.NoError(t, err)
	require.Equal(t, []byte("updated"), value)

	_, err = store.Get("missing")
	require.True(t, errors.Is(err, spi.ErrDataNotFound))

	require.Error(t, store.Put("", []byte("value")))
	require.Error(t, store.Put("key", nil))
	require.Error(t, store.Put("key", []byte("value"), spi.Tag{Name: "a:b"}))
	require.Error(t, store.Put("key", []byte("value"), spi.Tag{Name: "a", Value: "b:c"}))

	_, err = store.Get("")
	require.Error(t, err)
}

// TestStoreGetTags checks tags are stored with a value.
func TestStoreGetTags(t *testing.T, provider spi.Provider) {
	t.Helper()

	store, err := provider.OpenStore(randomStoreName())
	require.NoError(t, err)

	tags := []spi.Tag{{Name: "thid", Value: "t1"}, {Name: "role", Value: "holder"}}
	require.NoError(t, store.Put("key", []byte("value"), tags...))

	actual, err := store.GetTags("key")
	require.NoError(t, err)
	require.ElementsMatch(t, tags, actual)

	_, err = store.GetTags("missing")
	require.True(t, errors.Is(err, spi.ErrDataNotFound))
}

// TestStoreQuery checks single and conjunctive tag queries.
func TestStoreQuery(t *testing.T, provider spi.Provider) {
	t.Helper()

	name := randomStoreName()

	store, err := provider.OpenStore(name)
	require.NoError(t, err)

	require.NoError(t, provider.SetStoreConfig(name, spi.StoreConfiguration{TagNames: []string{"thid", "role"}}))

	require.NoError(t, store.Put("k1", []byte("v1"), spi.Tag{Name: "thid", Value: "t1"}, spi.Tag{Name: "role", Value: "holder"}))
	require.NoError(t, store.Put("k2", []byte("v2"), spi.Tag{Name: "thid", Value: "t1"}, spi.Tag{Name: "role", Value: "issuer"}))
	require.NoError(t, store.Put("k3", []byte("v3"), spi.Tag{Name: "thid", Value: "t2"}, spi.Tag{Name: "role", Value: "holder"}))

	require.ElementsMatch(t, []string{"k1", "k2"}, queryKeys(t, store, "thid:t1"))
	require.ElementsMatch(t, []string{"k1"}, queryKeys(t, store, "thid:t1&&role:holder"))
	require.ElementsMatch(t, []string{"k1", "k2", "k3"}, queryKeys(t, store, "role"))
	require.Empty(t, queryKeys(t, store, "thid:t3"))

	_, err = store.Query("")
	require.Error(t, err)

	_, err = store.Query("a:b:c")
	require.Error(t, err)
}

// TestStoreDelete checks deletes remove the value and its tags.
func TestStoreDelete(t *testing.T, provider spi.Provider) {
	t.Helper()

	store, err := provider.OpenStore(randomStoreName())
	require.NoError(t, err)

	require.NoError(t, store.Put("key", []byte("value"), spi.Tag{Name: "thid", Value: "t1"}))
	require.NoError(t, store.Delete("key"))

	_, err = store.Get("key")
	require.True(t, errors.Is(err, spi.ErrDataNotFound))
	require.Empty(t, queryKeys(t, store, "thid:t1"))

	require.Error(t, store.Delete(""))
}

// TestStoreBatch checks batches apply in order and honor IsNewKey.
func TestStoreBatch(t *testing.T, provider spi.Provider) {
	t.Helper()

	store, err := provider.OpenStore(randomStoreName())
	require.NoError(t, err)

	require.NoError(t, store.Put("existing", []byte("old")))

	require.NoError(t, store.Batch([]spi.Operation{
		{Key: "k1", Value: []byte("v1"), Tags: []spi.Tag{{Name: "thid", Value: "t1"}}},
		{Key: "existing"},
		{Key: "k2", Value: []byte("v2"), PutOptions: &spi.PutOptions{IsNewKey: true}},
	}))

	value, err := store.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), value)

	_, err = store.Get("existing")
	require.True(t, errors.Is(err, spi.ErrDataNotFound))

	err = store.Batch([]spi.Operation{
		{Key: "k3", Value: []byte("v3")},
		{Key: "k2", Value: []byte("dup"), PutOptions: &spi.PutOptions{IsNewKey: true}},
	})
	require.True(t, errors.Is(err, spi.ErrDuplicateKey))

	_, err = store.Get("k3")
	require.True(t, errors.Is(err, spi.ErrDataNotFound), "failed batch must not be applied")

	require.Error(t, store.Batch(nil))
	require.Error(t, store.Batch([]spi.Operation{{Key: "", Value: []byte("v")}}))
}

func queryKeys(t *testing.T, store spi.Store, expression string) []string {
	t.Helper()

	it, err := store.Query(expression)
	require.NoError(t, err)

	defer func() { require.NoError(t, it.Close()) }()

	var keys []string

	for {
		more, err := it.Next()
		require.NoError(t, err)

		if !more {
			break
		}

		key, err := it.Key()
		require.NoError(t, err)

		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func randomStoreName() string {
	return "store-" + uuid.NewString()
}
