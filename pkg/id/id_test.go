package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 1000; i++ {
		s := New()
		assert.Len(t, s, 26)
		assert.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
		if prev != "" {
			assert.Less(t, prev, s, "ids must sort by mint order")
		}
		prev = s
	}
}

func TestMinted(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	s := New()
	minted, err := Minted(s)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), minted, time.Minute)
	assert.True(t, minted.After(before))

	_, err = Minted("not-a-ulid")
	assert.Error(t, err)
}
