package engine

import (
	"fmt"
	"time"
)

// Config holds the decision thresholds of the engine. The defaults mirror
// the dispatch policy this engine was built for; whether dwell guard and
// average speed should become tenant-level settings is still an open product
// question, so for now they are deployment-level knobs.
type Config struct {
	// RejectBelow is the confidence below which a negative validator
	// recommendation turns into an automatic rejection.
	RejectBelow float64 `json:"reject_below"`
	// AssignAbove is the minimum candidate score for automatic assignment.
	AssignAbove float64 `json:"assign_above"`
	// MaxCandidates caps how many ranked candidates are requested.
	MaxCandidates int `json:"max_candidates"`
	// DwellGuardMinutes is the minimum time a stamped delivery arrival must
	// age before the order is promoted to DELIVERED.
	DwellGuardMinutes int `json:"dwell_guard_minutes"`
	// AvgSpeedKmh is the fixed average road speed used for ETA estimation.
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
	// DefaultDelayThresholdMinutes applies to customers without a
	// configured delay-alert threshold.
	DefaultDelayThresholdMinutes int `json:"default_delay_threshold_minutes"`
	// CriticalDelayMinutes is the boundary between warning and critical
	// delay alerts.
	CriticalDelayMinutes float64 `json:"critical_delay_minutes"`
	// ClaimLeaseSeconds bounds how long a row stays invisible to concurrent
	// invocations once claimed.
	ClaimLeaseSeconds int `json:"claim_lease_seconds"`
}

// SetDefaults applies the engine's standard policy values.
func (c *Config) SetDefaults() {
	if c.RejectBelow == 0 {
		c.RejectBelow = 50
	}
	if c.AssignAbove == 0 {
		c.AssignAbove = 80
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = 3
	}
	if c.DwellGuardMinutes == 0 {
		c.DwellGuardMinutes = 5
	}
	if c.AvgSpeedKmh == 0 {
		c.AvgSpeedKmh = 50
	}
	if c.DefaultDelayThresholdMinutes == 0 {
		c.DefaultDelayThresholdMinutes = 15
	}
	if c.CriticalDelayMinutes == 0 {
		c.CriticalDelayMinutes = 30
	}
	if c.ClaimLeaseSeconds == 0 {
		c.ClaimLeaseSeconds = 30
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.RejectBelow < 0 || c.RejectBelow > 100 {
		return fmt.Errorf("reject_below must be within [0,100]")
	}
	if c.AssignAbove < 0 || c.AssignAbove > 100 {
		return fmt.Errorf("assign_above must be within [0,100]")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive")
	}
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avg_speed_kmh must be positive")
	}
	if c.ClaimLeaseSeconds <= 0 {
		return fmt.Errorf("claim_lease_seconds must be positive")
	}
	return nil
}

// DwellGuard returns the dwell guard as a duration.
func (c Config) DwellGuard() time.Duration {
	return time.Duration(c.DwellGuardMinutes) * time.Minute
}

// ClaimLease returns the claim lease as a duration.
func (c Config) ClaimLease() time.Duration {
	return time.Duration(c.ClaimLeaseSeconds) * time.Second
}
