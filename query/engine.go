package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"procinfo/collector"
	"procinfo/models"
)

// Engine answers process queries. Every Execute builds its own provider,
// so concurrent queries never share a CPU baseline.
type Engine struct {
	newProvider   collector.ProviderFactory
	defaultSettle time.Duration
	maxSettle     time.Duration
	logger        *slog.Logger
}

func NewEngine(newProvider collector.ProviderFactory, defaultSettle, maxSettle time.Duration, logger *slog.Logger) *Engine {
	if defaultSettle < 0 {
		defaultSettle = DefaultSettle
	}
	return &Engine{
		newProvider:   newProvider,
		defaultSettle: defaultSettle,
		maxSettle:     maxSettle,
		logger:        logger,
	}
}

// Execute samples the process table twice, settle apart, and returns the
// processes matching f. The refresh, wait, refresh, read order is required
// for valid CPU figures.
func (e *Engine) Execute(ctx context.Context, f Filter) ([]models.ProcessMetrics, error) {
	if err := f.Validate(e.maxSettle); err != nil {
		return nil, err
	}

	provider := e.newProvider()
	settle := f.Settle(e.defaultSettle)
	start := time.Now()

	if err := provider.RefreshAll(ctx); err != nil {
		return nil, fmt.Errorf("baseline refresh: %w", err)
	}

	if err := sleep(ctx, settle); err != nil {
		return nil, err
	}

	if err := provider.RefreshAll(ctx); err != nil {
		return nil, fmt.Errorf("sample refresh: %w", err)
	}

	candidates := resolve(provider, f.PID)

	metrics := make([]models.ProcessMetrics, 0, len(candidates))
	for _, p := range candidates {
		metrics = append(metrics, project(p))
	}
	result := Apply(metrics, f.Predicates()...)

	e.logger.Debug("query executed",
		"candidates", len(candidates),
		"matched", len(result),
		"settle", settle,
		"took", time.Since(start))

	return result, nil
}

func resolve(provider collector.Provider, pid *int64) []collector.Process {
	if pid == nil {
		return provider.List()
	}
	if *pid < math.MinInt32 || *pid > math.MaxInt32 {
		return nil
	}
	p, ok := provider.Lookup(int32(*pid))
	if !ok {
		return nil
	}
	return []collector.Process{p}
}

func project(p collector.Process) models.ProcessMetrics {
	return models.ProcessMetrics{
		PID:       p.PID,
		Usage:     p.CPUPercent,
		Name:      p.Name,
		RSS:       p.RSS,
		RuntimeMS: p.RunTimeSecs * 1000,
		VSZ:       p.VMS,
	}
}

// sleep waits d or until ctx is done. A zero d still checks ctx.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
