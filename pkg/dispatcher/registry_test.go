package dispatcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryMembership(t *testing.T) {
	r := NewFDRegistry()

	assert.False(t, r.Contains(5))
	r.Insert(5)
	assert.True(t, r.Contains(5))
	assert.Equal(t, 1, r.Len())

	r.Remove(5)
	assert.False(t, r.Contains(5))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	r := NewFDRegistry()
	r.Insert(1)
	r.Remove(2)
	assert.True(t, r.Contains(1))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewFDRegistry()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(fd int64) {
			defer wg.Done()
			r.Insert(fd)
			if !r.Contains(fd) {
				t.Errorf("fd %d vanished", fd)
			}
			r.Remove(fd)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
