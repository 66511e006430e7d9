package kv

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	s := New[string, int]()

	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Set("b", 2)
	s.Set("a", 1)
	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.False(t, s.SetIfAbsent("a", 10))
	assert.True(t, s.SetIfAbsent("c", 3))
	v, _ = s.Get("a")
	assert.Equal(t, 1, v)

	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, 3, s.Len())

	s.Delete("b")
	assert.Equal(t, []string{"a", "c"}, s.Keys())
}

func TestStore_Concurrent(t *testing.T) {
	s := New[string, int]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			s.SetIfAbsent(key, i)
			s.Get(key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}
