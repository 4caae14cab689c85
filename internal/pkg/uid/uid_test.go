package uid

import (
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDIsMonotonic(t *testing.T) {
	g := NewULID()

	ids := make([]string, 0, 100)
	for range 100 {
		ids = append(ids, g.Generate())
	}

	assert.True(t, sort.StringsAreSorted(ids))
	for _, id := range ids {
		assert.True(t, IsULID(id), id)
	}
	assert.False(t, IsULID("not-a-ulid"))
}

func TestULIDConcurrent(t *testing.T) {
	g := NewULID()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = map[string]struct{}{}
	)
	for range 8 {
		wg.Go(func() {
			for range 50 {
				id := g.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Len(t, seen, 400)
}

func TestSnowflake(t *testing.T) {
	t.Run("unique", func(t *testing.T) {
		s, err := NewSnowflake(1)
		require.NoError(t, err)

		a, b := s.Generate(), s.Generate()
		assert.NotEqual(t, a, b)
		assert.Greater(t, b, a)
	})

	t.Run("node out of range", func(t *testing.T) {
		_, err := NewSnowflake(4096)
		assert.Error(t, err)
	})
}

func TestUUIDv7(t *testing.T) {
	id, err := uuid.Parse(NewUUID().Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
