package opfuture

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseSlotStartsEmpty(t *testing.T) {
	s := newResponseSlot()
	assert.Equal(t, any(empty), s.read())
}

func TestResponseSlotCAS(t *testing.T) {
	s := newResponseSlot()

	assert.False(t, s.cas(waitAgain, nullReply), "CAS from the wrong expected value must fail")
	assert.Equal(t, any(empty), s.read())

	assert.True(t, s.cas(empty, waitAgain))
	assert.Equal(t, any(waitAgain), s.read())

	assert.False(t, s.cas(empty, nullReply), "stale expected value must fail once the slot has moved on")
	assert.True(t, s.cas(waitAgain, nullReply))
	assert.Equal(t, any(nullReply), s.read())
}

func TestResponseSlotFirstWriterWins(t *testing.T) {
	s := newResponseSlot()

	var wg sync.WaitGroup
	wins := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			if s.cas(empty, i) {
				wins <- i
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	var winner int
	for w := range wins {
		count++
		winner = w
	}
	assert.Equal(t, 1, count, "exactly one goroutine's CAS must succeed")
	assert.Equal(t, any(winner), s.read())
}
