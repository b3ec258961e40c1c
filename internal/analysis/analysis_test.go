package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink/internal/config"
	"carelink/internal/goal"
)

type countingAnalyzer struct {
	calls int
	err   error
}

func (c *countingAnalyzer) ProcessText(ctx context.Context, text string) (goal.ExtractionResult, error) {
	c.calls++
	if c.err != nil {
		return goal.ExtractionResult{}, c.err
	}
	return goal.Extract(text), nil
}

func TestHeuristicAnalyzer(t *testing.T) {
	res, err := HeuristicAnalyzer{}.ProcessText(context.Background(), "walk at least 6000 steps daily")
	require.NoError(t, err)
	assert.Equal(t, 6000, res.PrimaryGoal().Target)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = HeuristicAnalyzer{}.ProcessText(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteAnalyzer(t *testing.T) {
	_, err := RemoteAnalyzer{}.ProcessText(context.Background(), "walk 6000 steps")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestCachingAnalyzer(t *testing.T) {
	inner := &countingAnalyzer{}
	c, err := NewCachingAnalyzer(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.ProcessText(ctx, "walk 4000 steps")
	require.NoError(t, err)
	first.Goals[0].Target = 1

	second, err := c.ProcessText(ctx, "walk 4000 steps")
	require.NoError(t, err)
	assert.Equal(t, 4000, second.Goals[0].Target)
	assert.Equal(t, 1, inner.calls)

	_, _ = c.ProcessText(ctx, "walk 1 steps")
	_, _ = c.ProcessText(ctx, "walk 2 steps")
	assert.Equal(t, 2, c.Len())
	_, _ = c.ProcessText(ctx, "walk 4000 steps")
	assert.Equal(t, 4, inner.calls)
}

func TestCachingAnalyzer_DoesNotCacheErrors(t *testing.T) {
	inner := &countingAnalyzer{err: errors.New("offline")}
	c, err := NewCachingAnalyzer(inner, 4)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.ProcessText(context.Background(), "text")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, c.Len())
}

func TestNew(t *testing.T) {
	a, err := New(config.AnalysisConfig{Engine: "heuristic"})
	require.NoError(t, err)
	assert.IsType(t, HeuristicAnalyzer{}, a)

	a, err = New(config.AnalysisConfig{Engine: "heuristic", CacheSize: 8})
	require.NoError(t, err)
	assert.IsType(t, &CachingAnalyzer{}, a)

	a, err = New(config.AnalysisConfig{Engine: "remote"})
	require.NoError(t, err)
	_, err = a.ProcessText(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = New(config.AnalysisConfig{Engine: "oracle"})
	assert.Error(t, err)
}
