package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	counts := map[string]int{}
	var countsMu sync.Mutex
	for i := 0; i < 50; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			defer unlock()
			countsMu.Lock()
			counts[key]++
			countsMu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, counts["a"])
	assert.Equal(t, 25, counts["b"])
	assert.Zero(t, k.size(), "entries are released once unused")
}
