package opfuture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInlineRejectingExecutorAlwaysRejects(t *testing.T) {
	var e InlineRejectingExecutor
	ran := false
	err := e.Submit(func() { ran = true })
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestPoolExecutorRunsTask(t *testing.T) {
	p := NewPoolExecutor(2)
	defer p.Close()

	done := make(chan struct{})
	err := p.Submit(func() { close(done) })
	assert.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestPoolExecutorBoundsConcurrency(t *testing.T) {
	p := NewPoolExecutor(1)
	defer p.Close()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
		assert.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestPoolExecutorRejectsAfterClose(t *testing.T) {
	p := NewPoolExecutor(1)
	p.Close()
	err := p.Submit(func() {})
	assert.ErrorIs(t, err, errPoolClosed)
}

func TestExecutorFuncAdapts(t *testing.T) {
	var got func()
	e := ExecutorFunc(func(task func()) error {
		got = task
		return nil
	})
	task := func() {}
	assert.NoError(t, e.Submit(task))
	assert.NotNil(t, got)
}
