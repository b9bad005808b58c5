package background

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/observability/metrics"
)

// LimitsSource yields the raw limits candidate from wherever operators keep it.
type LimitsSource interface {
	Load(ctx context.Context) (any, error)
}

// LimitsRefresher polls a LimitsSource and applies what it finds to a Holder.
// A failed poll keeps the limits already in effect.
type LimitsRefresher struct {
	source   LimitsSource
	holder   *limits.Holder
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	metrics  *metrics.CustomsMetrics
}

// NewLimitsRefresher creates a new limits refresher
func NewLimitsRefresher(source LimitsSource, holder *limits.Holder, logger *slog.Logger, interval time.Duration) *LimitsRefresher {
	return &LimitsRefresher{
		source:   source,
		holder:   holder,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// SetMetrics enables reload counting.
func (lr *LimitsRefresher) SetMetrics(m *metrics.CustomsMetrics) {
	lr.metrics = m
}

// Start polls until stopped or ctx is cancelled. The first poll happens
// immediately.
func (lr *LimitsRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(lr.interval)
	defer ticker.Stop()

	lr.Refresh(ctx)

	for {
		select {
		case <-ticker.C:
			lr.Refresh(ctx)
		case <-lr.stopCh:
			lr.logger.Info("limits refresher stopped")
			return
		case <-ctx.Done():
			lr.logger.Info("limits refresher context cancelled")
			return
		}
	}
}

// Refresh performs a single poll. It reports whether the limits changed.
func (lr *LimitsRefresher) Refresh(ctx context.Context) bool {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	candidate, err := lr.source.Load(loadCtx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			lr.logger.Debug("no limits published, keeping current", slog.String("op", "limits.refresh"))
			lr.metrics.IncLimitsReload("unchanged")
			return false
		}
		lr.logger.Error("failed to load limits", slog.String("op", "limits.refresh"), slog.Any("error", err))
		lr.metrics.IncLimitsReload("failed")
		return false
	}

	before := lr.holder.Settings()
	after, err := lr.holder.Apply(candidate)
	if err != nil {
		lr.logger.Error("failed to apply limits", slog.String("op", "limits.refresh"), slog.Any("error", err))
		lr.metrics.IncLimitsReload("failed")
		return false
	}

	if after == before {
		lr.metrics.IncLimitsReload("unchanged")
		return false
	}
	lr.logger.Info("limits updated", slog.String("op", "limits.refresh.changed"))
	lr.metrics.IncLimitsReload("changed")
	return true
}

// Stop signals the refresher to stop
func (lr *LimitsRefresher) Stop() {
	close(lr.stopCh)
}
