package redisearch

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorBytesLayout(t *testing.T) {
	buf := vectorBytes([]float32{1, -0.5})

	assert.Len(t, buf, 8)
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, math.Float32bits(-0.5), binary.LittleEndian.Uint32(buf[4:8]))
}

func TestVectorBytesEmpty(t *testing.T) {
	assert.Empty(t, vectorBytes(nil))
}

func TestKeyNaming(t *testing.T) {
	assert.Equal(t, "rag:contracts", indexName("contracts"))
	assert.Equal(t, "rag:contracts:ab12", keyFor("contracts", "ab12"))
	// Metadata lives outside the index prefix so it is never indexed.
	assert.Equal(t, "ragmeta:contracts", metaKey("contracts"))
}

func TestIsUnknownIndex(t *testing.T) {
	assert.True(t, isUnknownIndex(errors.New("Unknown index name")))
	assert.True(t, isUnknownIndex(errors.New("ERR no such index")))
	assert.False(t, isUnknownIndex(errors.New("connection refused")))
	assert.False(t, isUnknownIndex(nil))
}
