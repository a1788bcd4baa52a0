package vol

import (
	"fmt"
	"sort"
)

// GenerateCompositeSmile returns composite vols at strikes (asset strike times FX strike) by
// averaging sqrt(vA^2 + vFx^2 + 2*rho*vA*vFx) over the sampled asset and FX strikes, weighted
// by the product of their CDF bucket probabilities. Each sample pair lands in the output strike
// nearest to its product; an output strike that receives no weight takes the ATM composite vol.
// The cost is quadratic in numSamples.
func GenerateCompositeSmile(asset, fx Surface, correlation, maturity, assetForward, fxForward float64, strikes []float64, numSamples int) ([]float64, error) {
	return compositeSmile(asset, fx, correlation, maturity, assetForward, fxForward, strikes, numSamples,
		func(a, x *Distribution, i, j int) float64 {
			return bucketMass(a.CDF, i) * bucketMass(x.CDF, j)
		})
}

// GenerateCompositeSmile2 is GenerateCompositeSmile weighted by the product of the sampled
// densities.
func GenerateCompositeSmile2(asset, fx Surface, correlation, maturity, assetForward, fxForward float64, strikes []float64, numSamples int) ([]float64, error) {
	return compositeSmile(asset, fx, correlation, maturity, assetForward, fxForward, strikes, numSamples,
		func(a, x *Distribution, i, j int) float64 {
			return a.PDF[i] * x.PDF[j]
		})
}

func bucketMass(cdf []float64, i int) float64 {
	if i == 0 {
		return cdf[0]
	}
	return cdf[i] - cdf[i-1]
}

func compositeSmile(asset, fx Surface, correlation, maturity, assetForward, fxForward float64, strikes []float64, numSamples int,
	weight func(a, x *Distribution, i, j int) float64) ([]float64, error) {
	if len(strikes) == 0 || !sort.Float64sAreSorted(strikes) {
		return nil, fmt.Errorf("composite smile: %w: output strikes must be non-empty and sorted", ErrInvalidInput)
	}
	if correlation < -1 || correlation > 1 {
		return nil, fmt.Errorf("composite smile: %w: correlation %g", ErrInvalidInput, correlation)
	}
	da, err := SampleDistribution(asset, maturity, assetForward, numSamples)
	if err != nil {
		return nil, fmt.Errorf("composite smile: asset: %w", err)
	}
	dx, err := SampleDistribution(fx, maturity, fxForward, numSamples)
	if err != nil {
		return nil, fmt.Errorf("composite smile: fx: %w", err)
	}
	volsA, err := volsAt(asset, da.Strikes, maturity, assetForward)
	if err != nil {
		return nil, fmt.Errorf("composite smile: asset: %w", err)
	}
	volsX, err := volsAt(fx, dx.Strikes, maturity, fxForward)
	if err != nil {
		return nil, fmt.Errorf("composite smile: fx: %w", err)
	}
	atmA, err := asset.GetVolForAbsoluteStrike(assetForward, maturity, assetForward)
	if err != nil {
		return nil, fmt.Errorf("composite smile: asset ATM: %w", err)
	}
	atmX, err := fx.GetVolForAbsoluteStrike(fxForward, maturity, fxForward)
	if err != nil {
		return nil, fmt.Errorf("composite smile: fx ATM: %w", err)
	}

	bounds := make([]float64, len(strikes)-1)
	for b := range bounds {
		bounds[b] = 0.5 * (strikes[b] + strikes[b+1])
	}
	sumW := make([]float64, len(strikes))
	sumWV := make([]float64, len(strikes))
	for i, ka := range da.Strikes {
		for j, kx := range dx.Strikes {
			w := weight(da, dx, i, j)
			if w <= 0 {
				continue
			}
			b := sort.SearchFloat64s(bounds, ka*kx)
			sumW[b] += w
			sumWV[b] += w * compositeVol(volsA[i], volsX[j], correlation)
		}
	}

	atm := compositeVol(atmA, atmX, correlation)
	out := make([]float64, len(strikes))
	for b := range out {
		if sumW[b] > 0 {
			out[b] = sumWV[b] / sumW[b]
		} else {
			out[b] = atm
		}
	}
	return out, nil
}

func volsAt(s Surface, strikes []float64, maturity, forward float64) ([]float64, error) {
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		v, err := s.GetVolForAbsoluteStrike(k, maturity, forward)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
