package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsSequentialSeq(t *testing.T) {
	th := New("")
	th = th.Append(Entry{Kind: "instruction_start"}, Entry{Kind: "instruction_end"})
	require.Len(t, th.Entries, 2)
	assert.Equal(t, uint64(0), th.Entries[0].Seq)
	assert.Equal(t, uint64(1), th.Entries[1].Seq)
	assert.Equal(t, uint64(2), th.Rev)

	th2 := th.Append(Entry{Kind: "checkpoint"})
	assert.Equal(t, uint64(3), th2.Rev)
	assert.Equal(t, uint64(2), th2.Entries[2].Seq)
	// original thread unchanged (value semantics)
	assert.Equal(t, uint64(2), th.Rev)
}

func TestEntriesAfter(t *testing.T) {
	th := New("t1").Append(Entry{Kind: "a"}, Entry{Kind: "b"}, Entry{Kind: "c"})
	tail := th.EntriesAfter(1)
	require.Len(t, tail, 2)
	assert.Equal(t, "b", tail[0].Kind)
}
