package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNavID(t *testing.T) {
	id := NewNavID()

	require.True(t, strings.HasPrefix(id, NavPrefix+"_"))
	assert.Len(t, id, len(NavPrefix)+1+26)

	ts, err := Timestamp(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestIDsSortByCreation(t *testing.T) {
	gen := NewGenerator()
	fixed := time.UnixMilli(1_700_000_000_000)
	gen.now = func() time.Time { return fixed }

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.GenerateWithPrefix(NavPrefix)
	}

	assert.True(t, sort.StringsAreSorted(ids), "same-millisecond IDs must increase")
	ts, err := Timestamp(ids[0])
	require.NoError(t, err)
	assert.True(t, ts.Equal(fixed))
}

func TestConcurrentUnique(t *testing.T) {
	const workers, per = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*per)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := NewNavID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*per)
}

func TestTimestampRejectsGarbage(t *testing.T) {
	_, err := Timestamp("nav_not-a-ulid")
	assert.Error(t, err)
}
