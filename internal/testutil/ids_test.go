package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedIDGenerator()

	assert.Equal(t, "00000000-0000-7000-8000-000000000001", gen.Generate())
	assert.Equal(t, "00000000-0000-7000-8000-000000000002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", gen.Generate())
}

func TestFixedIDGenerator_ParsesAsUUIDv7(t *testing.T) {
	gen := NewFixedIDGenerator()

	id, err := uuid.Parse(gen.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
}

func TestFixedIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedIDGenerator()

	done := make(chan []string)
	for i := 0; i < 10; i++ {
		go func() {
			ids := make([]string, 100)
			for j := range ids {
				ids[j] = gen.Generate()
			}
			done <- ids
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		for _, id := range <-done {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 1000)
}
