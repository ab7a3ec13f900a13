package router

import (
	"testing"

	"github.com/nshkrdotcom/agentrt/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSignal(t *testing.T, typ string) *signal.Signal {
	t.Helper()
	sig, err := signal.New("test://src", typ)
	require.NoError(t, err)
	return sig
}

func TestExactVsWildcardPriorityOrdering(t *testing.T) {
	r := New()
	h1, h2, h3 := "H1", "H2", "H3"
	require.NoError(t, r.Add("user.123.created", h1, 1, nil))
	require.NoError(t, r.Add("user.*.created", h2, 10, nil))
	require.NoError(t, r.Add("**", h3, -100, nil))

	matches, err := r.Lookup(mustSignal(t, "user.123.created"))
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []Handler{h2, h1, h3}, []Handler{matches[0].Handler, matches[1].Handler, matches[2].Handler})
}

func TestPriorityTiesPreserveRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("a.b", "first", 5, nil))
	require.NoError(t, r.Add("a.*", "second", 5, nil))

	matches, err := r.Lookup(mustSignal(t, "a.b"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Handler)
	assert.Equal(t, "second", matches[1].Handler)
}

func TestNoHandlerError(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("a.b", "h", 0, nil))
	_, err := r.Lookup(mustSignal(t, "x.y"))
	require.Error(t, err)
}

func TestInvalidPatternsRejectedAtRegistration(t *testing.T) {
	r := New()
	cases := []string{"", "a..b", "a.**.**", "a.b!"}
	for _, p := range cases {
		err := r.Add(p, "h", 0, nil)
		assert.Error(t, err, p)
	}
}

func TestPredicateFailureIsNoMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("order.placed", "h1", 0, func(sig *signal.Signal) bool {
		panic("boom")
	}))
	matches, err := r.Lookup(mustSignal(t, "order.placed"))
	require.Error(t, err)
	assert.Empty(t, matches)
}

func TestRemoveKeepsSiblingRoutes(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("a.b", "h1", 0, nil))
	require.NoError(t, r.Add("a.c", "h2", 0, nil))
	r.Remove("a.b", "h1")

	_, err := r.Lookup(mustSignal(t, "a.b"))
	require.Error(t, err)

	matches, err := r.Lookup(mustSignal(t, "a.c"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
