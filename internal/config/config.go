// Package config loads the deployment configuration: the static signal weight
// table, the watch list, and pipeline tuning. Everything here is read-only
// after load; a malformed file is fatal at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"token-sniper/internal/domain"
)

// Default tuning values. The exact constants are deployment knobs, not
// invariants, so every one of them is overridable from the config file.
const (
	DefaultDebounce       = 2 * time.Second
	DefaultProfileTTL     = 15 * time.Minute
	DefaultTopSignals     = 3
	DefaultConcurrency    = 8
	DefaultRequestTimeout = 5 * time.Second
	DefaultQueueCeiling   = 64
)

// Config is the loaded, validated deployment configuration.
type Config struct {
	// Weights is the static per-type multiplier table. Types absent from
	// the table weigh 0 (their contribution drops but the signal is kept).
	Weights map[domain.SignalType]float64

	// Watch is the set of (address, tx type) pairs the collector accepts.
	Watch []WatchEntry

	// Collector tuning.
	Debounce   time.Duration
	ProfileTTL time.Duration
	TopSignals int

	// AI router tuning.
	Concurrency    int
	RequestTimeout time.Duration
	QueueCeiling   int

	// Scoring thresholds.
	Scoring Scoring
}

// WatchEntry is one watched address with its accepted transaction types.
type WatchEntry struct {
	Address          string   `yaml:"address"`
	TransactionTypes []string `yaml:"transaction_types"`
	Channel          string   `yaml:"channel"`
}

// Scoring holds the score band boundaries used by risk discretization and
// the action classifier. Lower bounds are inclusive.
type Scoring struct {
	RiskLowMax    float64 `yaml:"risk_low_max"`    // risk_score below this is Low
	RiskMediumMax float64 `yaml:"risk_medium_max"` // risk_score below this is Medium
	IgnoreBelow   float64 `yaml:"ignore_below"`    // weighted_score below this is Ignore
	MonitorBelow  float64 `yaml:"monitor_below"`   // weighted_score below this is Monitor
	CerebroBelow  float64 `yaml:"cerebro_below"`   // weighted_score below this is SendToCerebro
}

// DefaultScoring returns the score bands from the observed payloads.
func DefaultScoring() Scoring {
	return Scoring{
		RiskLowMax:    0.33,
		RiskMediumMax: 0.66,
		IgnoreBelow:   0.3,
		MonitorBelow:  0.6,
		CerebroBelow:  0.85,
	}
}

// fileConfig is the YAML shape of the config file.
type fileConfig struct {
	Weights map[string]float64 `yaml:"weights"`
	Watch   []WatchEntry       `yaml:"watch"`

	Pipeline struct {
		Debounce   string `yaml:"debounce"`
		ProfileTTL string `yaml:"profile_ttl"`
		TopSignals int    `yaml:"top_signals"`
	} `yaml:"pipeline"`

	Router struct {
		Concurrency    int    `yaml:"concurrency"`
		RequestTimeout string `yaml:"request_timeout"`
		QueueCeiling   int    `yaml:"queue_ceiling"`
	} `yaml:"router"`

	Scoring *Scoring `yaml:"scoring"`
}

// Default returns the built-in configuration: the weight table observed in
// production payloads, no watch entries, default tuning.
func Default() *Config {
	return &Config{
		Weights: map[domain.SignalType]float64{
			domain.SignalVolumeSpike:     0.7,
			domain.SignalHighLiquidity:   0.7,
			domain.SignalSwapActivity:    0.6,
			domain.SignalLiquidityAdd:    0.6,
			domain.SignalWhaleActivity:   0.5,
			domain.SignalPriceMovement:   0.5,
			domain.SignalNewListing:      0.4,
			domain.SignalMintEvent:       0.3,
			domain.SignalBurnEvent:       0.8,
			domain.SignalLiquidityRemove: 0.9,
		},
		Debounce:       DefaultDebounce,
		ProfileTTL:     DefaultProfileTTL,
		TopSignals:     DefaultTopSignals,
		Concurrency:    DefaultConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		QueueCeiling:   DefaultQueueCeiling,
		Scoring:        DefaultScoring(),
	}
}

// Load reads and validates the YAML config file at path. Missing sections
// fall back to defaults; a malformed weight table or watch list returns a
// *domain.ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{File: path, Reason: fmt.Sprintf("read: %v", err)}
	}
	return Parse(data, path)
}

// Parse validates raw YAML config bytes. The name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("parse yaml: %v", err)}
	}

	cfg := Default()

	if fc.Weights != nil {
		weights := make(map[domain.SignalType]float64, len(fc.Weights))
		for typ, w := range fc.Weights {
			if w < 0 || w > 1 {
				return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("weight for %q out of range [0,1]: %v", typ, w)}
			}
			st := domain.SignalType(typ)
			if !st.IsValid() {
				return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("unknown signal type in weight table: %q", typ)}
			}
			weights[st] = w
		}
		cfg.Weights = weights
	}

	for i, entry := range fc.Watch {
		if entry.Address == "" {
			return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("watch[%d]: empty address", i)}
		}
		if len(entry.TransactionTypes) == 0 {
			return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("watch[%d]: no transaction types", i)}
		}
	}
	cfg.Watch = fc.Watch

	if fc.Pipeline.Debounce != "" {
		d, err := time.ParseDuration(fc.Pipeline.Debounce)
		if err != nil || d <= 0 {
			return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("invalid pipeline.debounce: %q", fc.Pipeline.Debounce)}
		}
		cfg.Debounce = d
	}
	if fc.Pipeline.ProfileTTL != "" {
		d, err := time.ParseDuration(fc.Pipeline.ProfileTTL)
		if err != nil || d <= 0 {
			return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("invalid pipeline.profile_ttl: %q", fc.Pipeline.ProfileTTL)}
		}
		cfg.ProfileTTL = d
	}
	if fc.Pipeline.TopSignals != 0 {
		if fc.Pipeline.TopSignals < 0 {
			return nil, &domain.ConfigError{File: name, Reason: "pipeline.top_signals must be positive"}
		}
		cfg.TopSignals = fc.Pipeline.TopSignals
	}

	if fc.Router.Concurrency != 0 {
		if fc.Router.Concurrency < 0 {
			return nil, &domain.ConfigError{File: name, Reason: "router.concurrency must be positive"}
		}
		cfg.Concurrency = fc.Router.Concurrency
	}
	if fc.Router.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.Router.RequestTimeout)
		if err != nil || d <= 0 {
			return nil, &domain.ConfigError{File: name, Reason: fmt.Sprintf("invalid router.request_timeout: %q", fc.Router.RequestTimeout)}
		}
		cfg.RequestTimeout = d
	}
	if fc.Router.QueueCeiling != 0 {
		if fc.Router.QueueCeiling < 0 {
			return nil, &domain.ConfigError{File: name, Reason: "router.queue_ceiling must be positive"}
		}
		cfg.QueueCeiling = fc.Router.QueueCeiling
	}

	if fc.Scoring != nil {
		s := *fc.Scoring
		if s.RiskLowMax <= 0 || s.RiskMediumMax <= s.RiskLowMax || s.RiskMediumMax > 1 {
			return nil, &domain.ConfigError{File: name, Reason: "scoring: risk bands must satisfy 0 < risk_low_max < risk_medium_max <= 1"}
		}
		if s.IgnoreBelow <= 0 || s.MonitorBelow <= s.IgnoreBelow || s.CerebroBelow <= s.MonitorBelow || s.CerebroBelow > 1 {
			return nil, &domain.ConfigError{File: name, Reason: "scoring: action bands must satisfy 0 < ignore_below < monitor_below < cerebro_below <= 1"}
		}
		cfg.Scoring = s
	}

	return cfg, nil
}

// WatchKey identifies one accepted (address, tx type) pair.
type WatchKey struct {
	Address string
	TxType  string
}

// WatchSet builds the lookup set the collector filters against.
func (c *Config) WatchSet() map[WatchKey]WatchEntry {
	set := make(map[WatchKey]WatchEntry)
	for _, entry := range c.Watch {
		for _, txType := range entry.TransactionTypes {
			set[WatchKey{Address: entry.Address, TxType: txType}] = entry
		}
	}
	return set
}
