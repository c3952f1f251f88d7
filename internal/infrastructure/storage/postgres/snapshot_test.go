package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapDoc struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func TestSnapshotCodec(t *testing.T) {
	codec, err := NewSnapshotCodec(64)
	require.NoError(t, err)

	small := snapDoc{Name: "Mug"}
	raw, compressed, algo, err := codec.Encode(small)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)
	assert.Nil(t, compressed)
	assert.JSONEq(t, `{"name":"Mug","notes":""}`, string(raw))

	large := snapDoc{Name: "Mug", Notes: strings.Repeat("glazed ceramic ", 20)}
	raw, compressed, algo, err = codec.Encode(large)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, raw)
	assert.NotEmpty(t, compressed)

	var got snapDoc
	ok, err := codec.Decode(raw, compressed, algo, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, large, got)

	ok, err = codec.Decode(nil, nil, CompressionNone, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
