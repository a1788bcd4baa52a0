package vol

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/utils"
)

// SparsePoint is one quoted (expiry, strike) vol.
type SparsePoint struct {
	Expiry time.Time
	Strike float64
	Vol    float64
}

type sparseKey struct {
	maturity float64
	strike   float64
}

// Sparse holds isolated quotes with no interpolation: queries must hit a quoted point exactly.
type Sparse struct {
	base
	points   []SparsePoint
	lookup   map[sparseKey]float64
	expiries []time.Time
	labels   []string
	decimals uint32
}

// NewSparse indexes points. Duplicate (expiry, strike) pairs are rejected.
func NewSparse(m Meta, points []SparsePoint) (*Sparse, error) {
	s := &Sparse{
		points:   append([]SparsePoint(nil), points...),
		lookup:   make(map[sparseKey]float64, len(points)),
		decimals: config.GetConfig().CacheKeyDecimals,
	}
	s.init(m)

	seen := make(map[time.Time]bool)
	for _, p := range points {
		if p.Strike <= 0 || p.Vol < 0 {
			return nil, fmt.Errorf("NewSparse: %w: strike %g, vol %g", ErrInvalidInput, p.Strike, p.Vol)
		}
		k := s.key(p.Strike, s.TimeToMaturity(p.Expiry))
		if _, dup := s.lookup[k]; dup {
			return nil, fmt.Errorf("NewSparse: %w: duplicate point %s/%g", ErrInvalidInput, utils.FormatDate(p.Expiry), p.Strike)
		}
		s.lookup[k] = p.Vol
		if !seen[p.Expiry] {
			seen[p.Expiry] = true
			s.expiries = append(s.expiries, p.Expiry)
		}
	}
	sort.Slice(s.expiries, func(i, j int) bool { return s.expiries[i].Before(s.expiries[j]) })
	labels, err := pillarLabels(s.expiries, nil)
	if err != nil {
		return nil, fmt.Errorf("NewSparse: %w", err)
	}
	s.labels = labels
	s.pillars = labelIndex(labels, s.expiries)
	return s, nil
}

func (s *Sparse) key(strike, maturity float64) sparseKey {
	return sparseKey{maturity: utils.RoundTo(maturity, s.decimals), strike: utils.RoundTo(strike, s.decimals)}
}

// Points returns a copy of the quoted points.
func (s *Sparse) Points() []SparsePoint {
	return append([]SparsePoint(nil), s.points...)
}

func (s *Sparse) GetVolForAbsoluteStrike(strike, maturity, _ float64) (float64, error) {
	v, ok := s.lookup[s.key(strike, maturity)]
	if !ok {
		return 0, fmt.Errorf("Sparse.GetVolForAbsoluteStrike: %w: strike %g at T=%g", ErrPointNotFound, strike, maturity)
	}
	return v, nil
}

func (s *Sparse) GetVolForDeltaStrike(float64, float64, float64) (float64, error) {
	return 0, fmt.Errorf("Sparse.GetVolForDeltaStrike: %w", ErrNotSupported)
}

// GetATMVegaScenarios shifts every point of one expiry at a time.
func (s *Sparse) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	return buildScenarios(s.labels, scenarioPillars(s.expiries, lastDate), func(i int) (Surface, error) {
		points := s.Points()
		for j := range points {
			if points[j].Expiry.Equal(s.expiries[i]) {
				points[j].Vol += bumpSize
			}
		}
		return NewSparse(s.meta(), points)
	})
}
