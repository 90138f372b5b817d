package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	counts := map[string]*int{"a": new(int), "b": new(int)}
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()
			*counts[key]++
		}(key)
	}
	wg.Wait()

	assert.Equal(t, 50, *counts["a"])
	assert.Equal(t, 50, *counts["b"])
	assert.Empty(t, km.locks)
}
