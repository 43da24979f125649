package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	k := NewKeyed()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(ItemKey("a"), ItemKey("b"))
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, k.Len())
}

func TestKeyed_OppositeOrderDoesNotDeadlock(t *testing.T) {
	k := NewKeyed()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			k.Lock("x", "y")()
		}()
		go func() {
			defer wg.Done()
			k.Lock("y", "x")()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, k.Len())
}

func TestKeyed_DuplicateKeysAndDoubleUnlock(t *testing.T) {
	k := NewKeyed()
	unlock := k.Lock("a", "a", LedgerSequenceKey)
	assert.Equal(t, 2, k.Len())
	unlock()
	unlock()
	assert.Equal(t, 0, k.Len())
}
