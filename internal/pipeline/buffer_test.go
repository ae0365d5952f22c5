package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/model"
)

func TestStreamBuffer_FlushOnTimer(t *testing.T) {
	b := newStreamBuffer(20*time.Millisecond, 0)
	assert.Nil(t, b.flushCh())

	b.add(model.RawEvent{LogID: "a"})
	b.add(model.RawEvent{LogID: "b"})
	require.NotNil(t, b.flushCh())

	select {
	case <-b.flushCh():
	case <-time.After(time.Second):
		t.Fatal("flush timer did not fire")
	}
	evs := b.drain()
	assert.Len(t, evs, 2)
	assert.Nil(t, b.flushCh())
	assert.Empty(t, b.drain())
}

func TestStreamBuffer_MaxSize(t *testing.T) {
	b := newStreamBuffer(time.Hour, 2)
	assert.False(t, b.add(model.RawEvent{LogID: "a"}))
	assert.True(t, b.add(model.RawEvent{LogID: "b"}))
	assert.Len(t, b.drain(), 2)
}

func TestStreamBuffer_DropsRepeatedLogIDsWithinBatch(t *testing.T) {
	b := newStreamBuffer(time.Hour, 0)
	b.add(model.RawEvent{LogID: "a", Message: "first"})
	b.add(model.RawEvent{LogID: "a", Message: "second"})
	b.add(model.RawEvent{Message: "no id"})
	b.add(model.RawEvent{Message: "no id"})

	evs := b.drain()
	require.Len(t, evs, 3)
	assert.Equal(t, "first", evs[0].Message)

	// The next batch starts fresh.
	b.add(model.RawEvent{LogID: "a"})
	assert.Len(t, b.drain(), 1)
}
