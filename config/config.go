package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds solver, cache and sampling parameters for surface construction and queries.
type Config struct {
	// BrentTolerance is the absolute x-tolerance of the bracketed root finder.
	BrentTolerance float64 `mapstructure:"brent_tolerance"`

	// BrentMaxIterations bounds every bracketed root search.
	BrentMaxIterations int `mapstructure:"brent_max_iterations"`

	// GaussNewtonTolerance stops least-squares fits once the largest parameter step is smaller.
	GaussNewtonTolerance float64 `mapstructure:"gauss_newton_tolerance"`

	// GaussNewtonMaxIterations bounds every least-squares fit.
	GaussNewtonMaxIterations int `mapstructure:"gauss_newton_max_iterations"`

	// JacobianBump is the forward-difference step used to build Jacobians.
	JacobianBump float64 `mapstructure:"jacobian_bump"`

	// FlatDeltaPoint is the delta flattening floor: delta searches run over (FlatDeltaPoint, 1-FlatDeltaPoint).
	FlatDeltaPoint float64 `mapstructure:"flat_delta_point"`

	// ImpliedVolLower and ImpliedVolUpper bracket the implied volatility root search.
	ImpliedVolLower float64 `mapstructure:"implied_vol_lower"`
	ImpliedVolUpper float64 `mapstructure:"implied_vol_upper"`

	// StrikeSearchLower and StrikeSearchUpperMultiple bracket absolute-strike searches as
	// (StrikeSearchLower, StrikeSearchUpperMultiple*forward).
	StrikeSearchLower         float64 `mapstructure:"strike_search_lower"`
	StrikeSearchUpperMultiple float64 `mapstructure:"strike_search_upper_multiple"`

	// CacheKeyDecimals is the rounding applied to cache key components.
	CacheKeyDecimals uint32 `mapstructure:"cache_key_decimals"`

	// CDFSamples is the default number of strike samples used for CDF/PDF extraction.
	CDFSamples int `mapstructure:"cdf_samples"`

	// LocalVolStencil is the log-moneyness step of the five point local-vol stencil.
	LocalVolStencil float64 `mapstructure:"local_vol_stencil"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	BrentTolerance:            1e-12,
	BrentMaxIterations:        200,
	GaussNewtonTolerance:      1e-10,
	GaussNewtonMaxIterations:  100,
	JacobianBump:              1e-6,
	FlatDeltaPoint:            1e-3,
	ImpliedVolLower:           1e-9,
	ImpliedVolUpper:           5.0,
	StrikeSearchLower:         1e-9,
	StrikeSearchUpperMultiple: 10.0,
	CacheKeyDecimals:          12,
	CDFSamples:                1000,
	LocalVolStencil:           1e-3,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
// It must be called before surfaces are built; it is not synchronised with queries.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Load reads a config file on top of DefaultConfig. Environment variables prefixed with
// VOLIB_ (e.g. VOLIB_BRENT_TOLERANCE) override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig)

	v.SetEnvPrefix("VOLIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	var out Config
	if err := v.Unmarshal(&out); err != nil {
		return Config{}, fmt.Errorf("config.Load: decode: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// Validate rejects settings that would make the solvers loop or divide by zero.
func (c Config) Validate() error {
	switch {
	case c.BrentTolerance <= 0 || c.GaussNewtonTolerance <= 0:
		return fmt.Errorf("config: tolerances must be positive")
	case c.BrentMaxIterations <= 0 || c.GaussNewtonMaxIterations <= 0:
		return fmt.Errorf("config: iteration caps must be positive")
	case c.JacobianBump <= 0:
		return fmt.Errorf("config: jacobian_bump must be positive")
	case c.FlatDeltaPoint <= 0 || c.FlatDeltaPoint >= 0.5:
		return fmt.Errorf("config: flat_delta_point must be in (0, 0.5)")
	case c.ImpliedVolLower <= 0 || c.ImpliedVolUpper <= c.ImpliedVolLower:
		return fmt.Errorf("config: implied vol bracket is empty")
	case c.StrikeSearchLower <= 0 || c.StrikeSearchUpperMultiple <= 1:
		return fmt.Errorf("config: strike search bracket is empty")
	case c.CDFSamples < 10:
		return fmt.Errorf("config: cdf_samples must be at least 10")
	case c.LocalVolStencil <= 0:
		return fmt.Errorf("config: local_vol_stencil must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("brent_tolerance", c.BrentTolerance)
	v.SetDefault("brent_max_iterations", c.BrentMaxIterations)
	v.SetDefault("gauss_newton_tolerance", c.GaussNewtonTolerance)
	v.SetDefault("gauss_newton_max_iterations", c.GaussNewtonMaxIterations)
	v.SetDefault("jacobian_bump", c.JacobianBump)
	v.SetDefault("flat_delta_point", c.FlatDeltaPoint)
	v.SetDefault("implied_vol_lower", c.ImpliedVolLower)
	v.SetDefault("implied_vol_upper", c.ImpliedVolUpper)
	v.SetDefault("strike_search_lower", c.StrikeSearchLower)
	v.SetDefault("strike_search_upper_multiple", c.StrikeSearchUpperMultiple)
	v.SetDefault("cache_key_decimals", c.CacheKeyDecimals)
	v.SetDefault("cdf_samples", c.CDFSamples)
	v.SetDefault("local_vol_stencil", c.LocalVolStencil)
}
