package opfuture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinuationListPushIsLIFO(t *testing.T) {
	var l continuationList
	var order []int

	l.push(func(any, error) { order = append(order, 1) }, InlineRejectingExecutor{})
	l.push(func(any, error) { order = append(order, 2) }, InlineRejectingExecutor{})
	l.push(func(any, error) { order = append(order, 3) }, InlineRejectingExecutor{})

	head := l.detachAndDrain()
	for n := head; n != nil; n = n.next {
		n.callback(nil, nil)
	}
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestContinuationListDetachIsOneShot(t *testing.T) {
	var l continuationList
	l.push(func(any, error) {}, InlineRejectingExecutor{})

	first := l.detachAndDrain()
	assert.NotNil(t, first)
	assert.Nil(t, l.head)

	second := l.detachAndDrain()
	assert.Nil(t, second)
}
