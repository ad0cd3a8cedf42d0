package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irrecv/irrecv/irp"
)

func tempCache(t *testing.T) *Cache {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "irrecvd-cache-*.db")
	require.NoError(t, err)
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	c, err := Open(tmpFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := tempCache(t)

	key := Key("{flash 9000,-4500}", irp.DefaultOptions("nec1"))
	require.NoError(t, c.Put(key, "nec1", []byte{0x01, 0x02, 0x03}))

	entry, err := c.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "nec1", entry.Name)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, entry.Bytecode)
}

func TestGetReportsNilNotErrorOnMiss(t *testing.T) {
	c := tempCache(t)
	entry, err := c.Get("does-not-exist")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestPutUpdatesExistingEntry(t *testing.T) {
	c := tempCache(t)
	key := Key("source", irp.DefaultOptions("x"))
	require.NoError(t, c.Put(key, "x", []byte{0x01}))
	require.NoError(t, c.Put(key, "x-renamed", []byte{0x02}))

	entry, err := c.Get(key)
	require.NoError(t, err)
	require.Equal(t, "x-renamed", entry.Name)
	require.Equal(t, []byte{0x02}, entry.Bytecode)
}

func TestListReturnsAllEntries(t *testing.T) {
	c := tempCache(t)
	require.NoError(t, c.Put("k1", "one", []byte{0x01}))
	require.NoError(t, c.Put("k2", "two", []byte{0x02}))

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := tempCache(t)
	require.NoError(t, c.Put("k1", "one", []byte{0x01}))
	require.NoError(t, c.Delete("k1"))

	entry, err := c.Get("k1")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestDeleteReportsErrorWhenMissing(t *testing.T) {
	c := tempCache(t)
	require.Error(t, c.Delete("does-not-exist"))
}

func TestKeyIsStableAndSensitiveToOptions(t *testing.T) {
	opts1 := irp.DefaultOptions("nec1")
	opts2 := irp.DefaultOptions("nec1")
	opts2.Eps = 10

	k1 := Key("same source", opts1)
	k2 := Key("same source", opts1)
	k3 := Key("same source", opts2)

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}
