package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesIDAndValidates(t *testing.T) {
	sig, err := New("agent://counter-1", "counter.incremented", WithData(map[string]interface{}{"by": 1}))
	require.NoError(t, err)
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, "1.0.2", sig.SpecVersion)
	assert.False(t, sig.Time.IsZero())
}

func TestNewRejectsEmptySource(t *testing.T) {
	_, err := New("", "counter.incremented")
	require.Error(t, err)
}

func TestValidateTypeRules(t *testing.T) {
	cases := []struct {
		typ string
		ok  bool
	}{
		{"user.123.created", true},
		{"a", true},
		{"", false},
		{"user..created", false},
		{"user.123-created", false},
		{"user.123.created!", false},
	}
	for _, c := range cases {
		err := ValidateType(c.typ)
		if c.ok {
			assert.NoError(t, err, c.typ)
		} else {
			assert.Error(t, err, c.typ)
		}
	}
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"user", "123", "created"}, Segments("user.123.created"))
	assert.Equal(t, []string{"tick"}, Segments("tick"))
}
