// Package analysis turns care plan text into goals, a clinician summary and a
// patient reminder.
package analysis

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"carelink/internal/config"
	"carelink/internal/goal"
)

var ErrNotImplemented = errors.New("analysis engine not implemented")

// Analyzer processes extracted document text.
type Analyzer interface {
	ProcessText(ctx context.Context, text string) (goal.ExtractionResult, error)
}

// HeuristicAnalyzer runs the regular-expression step goal extractor.
type HeuristicAnalyzer struct{}

func (HeuristicAnalyzer) ProcessText(ctx context.Context, text string) (goal.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return goal.ExtractionResult{}, err
	}
	return goal.Extract(text), nil
}

// RemoteAnalyzer is reserved for a hosted language model.
type RemoteAnalyzer struct{}

func (RemoteAnalyzer) ProcessText(context.Context, string) (goal.ExtractionResult, error) {
	return goal.ExtractionResult{}, ErrNotImplemented
}

// CachingAnalyzer memoises results of the wrapped analyzer by text digest.
// Errors are not cached.
type CachingAnalyzer struct {
	next  Analyzer
	cache *lru.Cache[[sha256.Size]byte, goal.ExtractionResult]
}

func NewCachingAnalyzer(next Analyzer, size int) (*CachingAnalyzer, error) {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[[sha256.Size]byte, goal.ExtractionResult](size)
	if err != nil {
		return nil, err
	}
	return &CachingAnalyzer{next: next, cache: c}, nil
}

func (c *CachingAnalyzer) ProcessText(ctx context.Context, text string) (goal.ExtractionResult, error) {
	key := sha256.Sum256([]byte(text))
	if res, ok := c.cache.Get(key); ok {
		return cloneResult(res), nil
	}
	res, err := c.next.ProcessText(ctx, text)
	if err != nil {
		return goal.ExtractionResult{}, err
	}
	c.cache.Add(key, cloneResult(res))
	return res, nil
}

// Len reports how many results are cached.
func (c *CachingAnalyzer) Len() int { return c.cache.Len() }

func cloneResult(r goal.ExtractionResult) goal.ExtractionResult {
	r.Goals = append([]goal.Goal(nil), r.Goals...)
	return r
}

// New builds the analyzer selected by cfg.Engine, wrapped in a cache when
// cfg.CacheSize is positive.
func New(cfg config.AnalysisConfig) (Analyzer, error) {
	var a Analyzer
	switch cfg.Engine {
	case "", "heuristic":
		a = HeuristicAnalyzer{}
	case "remote":
		a = RemoteAnalyzer{}
	default:
		return nil, fmt.Errorf("unknown analysis engine %q", cfg.Engine)
	}
	if cfg.CacheSize <= 0 {
		return a, nil
	}
	return NewCachingAnalyzer(a, cfg.CacheSize)
}
