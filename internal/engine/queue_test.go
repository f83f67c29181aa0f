package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectQueue_FIFO(t *testing.T) {
	q := newEffectQueue[string, string]()

	for _, a := range []string{"a", "b", "c"} {
		ok := q.Enqueue(queueItem[string, string]{token: "t", effect: Dispatch[string, string](a)})
		require.True(t, ok)
	}

	for _, want := range []string{"a", "b", "c"} {
		it, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, it.effect.action)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "queue should be empty")
}

func TestEffectQueue_TryDequeue_Empty(t *testing.T) {
	q := newEffectQueue[string, string]()

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEffectQueue_EnqueueAfterClose(t *testing.T) {
	q := newEffectQueue[string, string]()
	q.Close()

	ok := q.Enqueue(queueItem[string, string]{effect: Dispatch[string, string]("x")})
	assert.False(t, ok, "enqueue after close should be rejected")
}

func TestEffectQueue_Clear(t *testing.T) {
	q := newEffectQueue[string, string]()

	for i := 0; i < 5; i++ {
		q.Enqueue(queueItem[string, string]{effect: Dispatch[string, string]("x")})
	}

	assert.Equal(t, 5, q.Clear())
	assert.Equal(t, 0, q.Len())
}

func TestEffectQueue_Len(t *testing.T) {
	q := newEffectQueue[string, string]()

	assert.Equal(t, 0, q.Len())
	q.Enqueue(queueItem[string, string]{effect: Dispatch[string, string]("x")})
	assert.Equal(t, 1, q.Len())
	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEffectQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEffectQueue[string, string]()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(queueItem[string, string]{
					effect: Dispatch[string, string](fmt.Sprintf("%d-%d", p, i)),
				})
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
