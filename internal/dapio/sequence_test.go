package dapio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceCounterStartsAtOne(t *testing.T) {
	t.Parallel()

	c := NewSequenceCounter()
	assert.Equal(t, 1, c.Next())
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 3, c.Next())
}

func TestSequenceCounterConcurrentUse(t *testing.T) {
	t.Parallel()

	c := NewSequenceCounter()
	const n = 100

	var wg sync.WaitGroup
	seen := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int]bool{}
	for v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, n, "every Next() call must return a distinct value")
}
