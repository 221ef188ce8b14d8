package checker

import (
	"fmt"
	"time"
)

// Config is the yaml/env-facing configuration for the checking pipeline.
type Config struct {
	MaxBatchSize     int    `yaml:"max_batch_size" envconfig:"CHECKER_MAX_BATCH_SIZE"`
	InterCallDelayMS int    `yaml:"inter_call_delay_ms" envconfig:"CHECKER_INTER_CALL_DELAY_MS"`
	CountryCode      string `yaml:"country_code" envconfig:"CHECKER_COUNTRY_CODE"`
	TrunkPrefix      string `yaml:"trunk_prefix" envconfig:"CHECKER_TRUNK_PREFIX"`
	NationalLength   int    `yaml:"national_length" envconfig:"CHECKER_NATIONAL_LENGTH"`
	// IndeterminatePolicy is "optimistic" or "strict".
	IndeterminatePolicy string `yaml:"indeterminate_policy" envconfig:"CHECKER_INDETERMINATE_POLICY"`
}

// Normalize validates checker configuration and applies defaults. The
// defaults mirror the numbering plan and throttle the service was tuned for.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil checker config")
	}
	if cfg.MaxBatchSize < 0 {
		return fmt.Errorf("checker.max_batch_size must be >= 0")
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = 50
	}
	if cfg.InterCallDelayMS < 0 {
		return fmt.Errorf("checker.inter_call_delay_ms must be >= 0")
	}
	if cfg.InterCallDelayMS == 0 {
		cfg.InterCallDelayMS = 1500
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "88"
	}
	if cfg.TrunkPrefix == "" {
		cfg.TrunkPrefix = "01"
	}
	if cfg.NationalLength < 0 {
		return fmt.Errorf("checker.national_length must be >= 0")
	}
	if cfg.NationalLength == 0 {
		cfg.NationalLength = 11
	}
	policy, ok := ParseIndeterminatePolicy(cfg.IndeterminatePolicy)
	if !ok {
		return fmt.Errorf("invalid checker.indeterminate_policy %q; allowed: optimistic, strict", cfg.IndeterminatePolicy)
	}
	cfg.IndeterminatePolicy = string(policy)
	return nil
}

// NormalizerConfigOf extracts the numbering-plan settings.
func (c Config) NormalizerConfigOf() NormalizerConfig {
	return NormalizerConfig{
		CountryCode:    c.CountryCode,
		TrunkPrefix:    c.TrunkPrefix,
		NationalLength: c.NationalLength,
	}
}

// InterCallDelay returns the throttle delay as a duration.
func (c Config) InterCallDelay() time.Duration {
	return time.Duration(c.InterCallDelayMS) * time.Millisecond
}

// Policy returns the parsed indeterminate-credential policy. Normalize has
// already rejected unknown values.
func (c Config) Policy() IndeterminatePolicy {
	policy, _ := ParseIndeterminatePolicy(c.IndeterminatePolicy)
	return policy
}
