package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	require.NotNil(t, q)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	assert.Equal(t, 1, q.Len())

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())
}

func TestQueue_DrainKeepsOrder(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2}, testItem{ID: 3})

	items := q.Drain()
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+1, item.ID)
	}
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_DrainFuncAllowsPushDuringDrain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	var seen []int
	n := q.DrainFunc(func(v int) {
		seen = append(seen, v)
		q.Push(v * 10)
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []int{10, 20}, q.Drain(), "pushed items wait for the next drain")
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := New[int]()

	const writers = 10
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Push(w*perWriter + i)
			}
		}(w)
	}

	var total int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			total += len(q.Drain())
			assert.Equal(t, writers*perWriter, total)
			return
		default:
			total += len(q.Drain())
		}
	}
}
