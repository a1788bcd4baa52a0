package vol

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// BumpMode selects how a wing-quote bump is spread across wing deltas.
type BumpMode int

const (
	// BumpParallel moves every wing quote by the bump.
	BumpParallel BumpMode = iota
	// BumpOuterWingProportional moves the outermost wing by the bump and each inner wing by
	// bump*quote/outerQuote.
	BumpOuterWingProportional
)

func (m BumpMode) String() string {
	if m == BumpOuterWingProportional {
		return "OuterWingProportional"
	}
	return "Parallel"
}

// scenarioPillars returns the indices of the pillars up to lastDate plus the two after it.
func scenarioPillars(expiries []time.Time, lastDate *time.Time) []int {
	out := make([]int, 0, len(expiries))
	extra := 0
	for i, e := range expiries {
		if lastDate == nil || !e.After(*lastDate) {
			out = append(out, i)
			continue
		}
		if extra < 2 {
			out = append(out, i)
			extra++
		}
	}
	return out
}

// buildScenarios builds one surface per pillar concurrently and keys them by label.
func buildScenarios(labels []string, pillars []int, build func(i int) (Surface, error)) (map[string]Surface, error) {
	out := make([]Surface, len(pillars))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j, i := range pillars {
		g.Go(func() error {
			s, err := build(i)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", labels[i], err)
			}
			out[j] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	scenarios := make(map[string]Surface, len(pillars))
	for j, i := range pillars {
		scenarios[labels[i]] = out[j]
	}
	return scenarios, nil
}

// wingBumps spreads bump over wing quotes. outer is the index of the outermost wing.
func wingBumps(quotes []float64, outer int, bump float64, mode BumpMode) []float64 {
	out := make([]float64, len(quotes))
	for j := range quotes {
		switch {
		case mode == BumpParallel || j == outer:
			out[j] = bump
		case quotes[outer] != 0:
			out[j] = bump * quotes[j] / quotes[outer]
		}
	}
	return out
}
