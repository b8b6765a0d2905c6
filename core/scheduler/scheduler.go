// Package scheduler drives the dispatch automation engine on a fixed
// interval. Each tick sweeps the four stages for every configured tenant,
// bounded by a per-stage timeout so one slow collaborator cannot stall the
// whole loop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/logger"
)

// Config defines the sweep loop parameters.
type Config struct {
	IntervalSeconds     int      `json:"interval_seconds" yaml:"interval_seconds"`
	StageTimeoutSeconds int      `json:"stage_timeout_seconds" yaml:"stage_timeout_seconds"`
	BatchLimit          int      `json:"batch_limit" yaml:"batch_limit"`
	Tenants             []string `json:"tenants" yaml:"tenants"`

	AcceptanceEnabled bool `json:"acceptance_enabled" yaml:"acceptance_enabled"`
	AssignmentEnabled bool `json:"assignment_enabled" yaml:"assignment_enabled"`
	ArrivalEnabled    bool `json:"arrival_enabled" yaml:"arrival_enabled"`
	ETAEnabled        bool `json:"eta_enabled" yaml:"eta_enabled"`
}

// SetDefaults applies the standard sweep cadence. Stages default to enabled
// only when no stage is explicitly switched on.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 60
	}
	if c.StageTimeoutSeconds == 0 {
		c.StageTimeoutSeconds = 30
	}
	if c.BatchLimit == 0 {
		c.BatchLimit = 100
	}
	if !c.AcceptanceEnabled && !c.AssignmentEnabled && !c.ArrivalEnabled && !c.ETAEnabled {
		c.AcceptanceEnabled = true
		c.AssignmentEnabled = true
		c.ArrivalEnabled = true
		c.ETAEnabled = true
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	if c.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("stage_timeout_seconds must be positive")
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive")
	}
	if len(c.Tenants) == 0 {
		return fmt.Errorf("at least one tenant must be configured")
	}
	return nil
}

// Scheduler periodically sweeps all enabled stages.
type Scheduler struct {
	engine *engine.Engine
	cfg    Config
	log    logger.Logger
}

// New creates a Scheduler. cfg is completed with defaults and validated.
func New(eng *engine.Engine, cfg Config, log logger.Logger) (*Scheduler, error) {
	if eng == nil {
		return nil, fmt.Errorf("scheduler: nil engine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{engine: eng, cfg: cfg, log: log}, nil
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.cfg.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Infof("scheduler stopped: %v", ctx.Err())
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs every enabled stage for every configured tenant.
func (s *Scheduler) Sweep(ctx context.Context) {
	for _, tenant := range s.cfg.Tenants {
		if ctx.Err() != nil {
			return
		}
		s.sweepTenant(ctx, tenant)
	}
}

func (s *Scheduler) sweepTenant(ctx context.Context, tenant string) {
	if s.cfg.AcceptanceEnabled {
		s.runStage(ctx, tenant, "acceptance", func(c context.Context) (any, error) {
			return s.engine.RunAcceptance(c, tenant, s.cfg.BatchLimit)
		})
	}
	if s.cfg.AssignmentEnabled {
		s.runStage(ctx, tenant, "assignment", func(c context.Context) (any, error) {
			return s.engine.RunAssignment(c, tenant, s.cfg.BatchLimit)
		})
	}
	if s.cfg.ArrivalEnabled {
		s.runStage(ctx, tenant, "arrival", func(c context.Context) (any, error) {
			return s.engine.RunArrivalDetection(c, tenant, s.cfg.BatchLimit)
		})
	}
	if s.cfg.ETAEnabled {
		s.runStage(ctx, tenant, "eta", func(c context.Context) (any, error) {
			return s.engine.RunETARecalc(c, tenant, s.cfg.BatchLimit)
		})
	}
}

func (s *Scheduler) runStage(ctx context.Context, tenant, stage string, fn func(context.Context) (any, error)) {
	stageCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.StageTimeoutSeconds)*time.Second)
	defer cancel()
	res, err := fn(stageCtx)
	if err != nil {
		s.log.Errorf("sweep %s for tenant %s: %v", stage, tenant, err)
		return
	}
	s.log.Debugw("sweep stage done", map[string]any{
		"stage":  stage,
		"tenant": tenant,
		"result": res,
	})
}
