package vol

import (
	"sync"

	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/utils"
)

type queryKind uint8

const (
	queryAbsolute queryKind = iota
	queryDelta
)

type cacheKey struct {
	kind     queryKind
	strike   float64
	maturity float64
	forward  float64
}

// resultCache memoises successful queries. Inputs are rounded before both the lookup and the
// computation, so a hit returns exactly what a miss would have computed. Concurrent misses on
// one key may compute twice; the stored value is the same either way.
type resultCache struct {
	entries  sync.Map
	decimals uint32
}

func newResultCache() *resultCache {
	return &resultCache{decimals: config.GetConfig().CacheKeyDecimals}
}

func (c *resultCache) get(kind queryKind, strike, maturity, forward float64, compute func(strike, maturity, forward float64) (float64, error)) (float64, error) {
	k := cacheKey{
		kind:     kind,
		strike:   utils.RoundTo(strike, c.decimals),
		maturity: utils.RoundTo(maturity, c.decimals),
		forward:  utils.RoundTo(forward, c.decimals),
	}
	if v, ok := c.entries.Load(k); ok {
		return v.(float64), nil
	}
	v, err := compute(k.strike, k.maturity, k.forward)
	if err != nil {
		return 0, err
	}
	c.entries.Store(k, v)
	return v, nil
}
