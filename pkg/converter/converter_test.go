package converter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/durabletask/pkg/payloadstore"
)

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestSerializeInlineUnderThreshold(t *testing.T) {
	c := New(nil, DefaultThreshold)
	data, err := c.Serialize(context.Background(), payload{Name: "x", Value: 1})
	require.NoError(t, err)
	assert.False(t, IsExternalToken(data))

	var out payload
	require.NoError(t, c.Deserialize(context.Background(), data, &out))
	assert.Equal(t, payload{Name: "x", Value: 1}, out)
}

func TestSerializeExternalizesAboveThreshold(t *testing.T) {
	store, err := payloadstore.NewFilePayloadStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, 16)

	big := payload{Name: strings.Repeat("a", 1024), Value: 42}
	data, err := c.Serialize(context.Background(), big)
	require.NoError(t, err)
	require.True(t, IsExternalToken(data))
	assert.True(t, strings.HasPrefix(string(data), externalTokenPrefix))

	var out payload
	require.NoError(t, c.Deserialize(context.Background(), data, &out))
	assert.Equal(t, big, out)
}

func TestDeserializePassesThroughUnrecognizedValue(t *testing.T) {
	c := New(nil, DefaultThreshold)
	var out payload
	err := c.Deserialize(context.Background(), []byte(`{"name":"y","value":2}`), &out)
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "y", Value: 2}, out)
}

func TestSerializeWithoutStoreFailsOverThreshold(t *testing.T) {
	c := New(nil, 8)
	_, err := c.Serialize(context.Background(), payload{Name: strings.Repeat("z", 100)})
	require.Error(t, err)
	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestBoltPayloadStoreRoundTrip(t *testing.T) {
	store, err := payloadstore.NewBoltPayloadStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	c := New(store, 4)
	big := payload{Name: strings.Repeat("b", 2048), Value: 7}
	data, err := c.Serialize(context.Background(), big)
	require.NoError(t, err)
	require.True(t, IsExternalToken(data))

	var out payload
	require.NoError(t, c.Deserialize(context.Background(), data, &out))
	assert.Equal(t, big, out)
}
