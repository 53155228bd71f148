package usage_test

import (
	"sync"
	"testing"

	"github.com/germanamz/localmcp/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
)

func TestTokenCountTotal(t *testing.T) {
	assert.Equal(t, 150, usage.TokenCount{InputTokens: 100, OutputTokens: 50}.Total())
	assert.Equal(t, 0, usage.TokenCount{}.Total())
}

func TestTracker(t *testing.T) {
	var tr usage.Tracker

	_, ok := tr.Last()
	assert.False(t, ok)

	tr.Add(usage.TokenCount{InputTokens: 10, OutputTokens: 5})
	tr.Add(usage.TokenCount{InputTokens: 20, OutputTokens: 10})

	last, ok := tr.Last()
	assert.True(t, ok)
	assert.Equal(t, 20, last.InputTokens)
	assert.Equal(t, 2, tr.Count())
	assert.Equal(t, usage.TokenCount{InputTokens: 30, OutputTokens: 15}, tr.Total())
}

func TestTrackerConcurrent(t *testing.T) {
	var tr usage.Tracker
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add(usage.TokenCount{InputTokens: 1, OutputTokens: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Count())
	assert.Equal(t, 100, tr.Total().Total())
}
