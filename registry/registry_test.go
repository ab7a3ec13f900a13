package registry

import (
	"sync"
	"testing"

	"github.com/nshkrdotcom/agentrt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLookupDeregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a1", "handle-1"))

	h, err := r.Lookup("a1")
	require.NoError(t, err)
	assert.Equal(t, "handle-1", h)

	r.Deregister("a1")
	_, err = r.Lookup("a1")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestRegisterCollisionIsHardError(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a1", "handle-1"))
	err := r.Register("a1", "handle-2")
	require.Error(t, err)
}

func TestConcurrentRegisterOnlyOneWins(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	successes := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			successes <- r.Register("shared", "x") == nil
		}()
	}
	wg.Wait()
	close(successes)

	wins := 0
	for ok := range successes {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestIdsAndLen(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a1", "h1"))
	require.NoError(t, r.Register("a2", "h2"))
	assert.Equal(t, 2, r.Len())
	assert.ElementsMatch(t, []string{"a1", "a2"}, r.Ids())
}
