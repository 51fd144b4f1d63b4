package archive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocksSerializeSameDocket(t *testing.T) {
	l := NewLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("12-345")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.size())
}

func TestLocksIndependentDockets(t *testing.T) {
	l := NewLocks()
	unlockA := l.Lock("a")
	unlockB := l.Lock("b")
	assert.Equal(t, 2, l.size())
	unlockA()
	unlockB()
	assert.Zero(t, l.size())
}
