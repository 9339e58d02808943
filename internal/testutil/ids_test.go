package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("imp")

	assert.Equal(t, "imp-0001", gen.Generate())
	assert.Equal(t, "imp-0002", gen.Generate())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	gen := NewSequentialIDs("")

	assert.Equal(t, "track-0001", gen.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("p")

	done := make(chan map[string]bool)
	for i := 0; i < 10; i++ {
		go func() {
			ids := make(map[string]bool)
			for j := 0; j < 100; j++ {
				ids[gen.Generate()] = true
			}
			done <- ids
		}()
	}

	all := make(map[string]bool)
	for i := 0; i < 10; i++ {
		for id := range <-done {
			assert.False(t, all[id], "duplicate id %s", id)
			all[id] = true
		}
	}
	assert.Len(t, all, 1000)
}
