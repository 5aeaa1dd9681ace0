package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq, err := NewRingQueue[int](2)
	require.NoError(t, err)

	_, err = rq.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue(3), ErrQueueFull)

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, rq.Enqueue(3))
	assert.Equal(t, []int{2, 3}, rq.Items())
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	rq, err := NewRingQueue[string](3)
	require.NoError(t, err)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		rq.Push(s)
	}
	assert.Equal(t, 3, rq.Len())
	assert.Equal(t, []string{"c", "d", "e"}, rq.Items())

	head, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, "c", head)

	_, err = NewRingQueue[int](0)
	assert.Error(t, err)
}
