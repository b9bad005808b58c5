package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/customs/internal/limits"
)

// LimitsStore persists accepted settings so every instance picks them up.
type LimitsStore interface {
	Save(ctx context.Context, settings limits.Settings) error
}

// LimitsService applies operator updates to the live limits.
type LimitsService struct {
	holder *limits.Holder
	store  LimitsStore
	logger *slog.Logger
}

// NewLimitsService creates a new LimitsService. store may be nil when limits
// are static, in which case updates only affect this instance.
func NewLimitsService(holder *limits.Holder, store LimitsStore, logger *slog.Logger) *LimitsService {
	return &LimitsService{holder: holder, store: store, logger: logger}
}

// Current returns the settings in effect.
func (s *LimitsService) Current() limits.Settings {
	return s.holder.Settings()
}

// Update validates candidate key by key, publishes the result and persists
// it. Rejected keys keep their current value.
func (s *LimitsService) Update(ctx context.Context, candidate any) (limits.Settings, error) {
	settings, err := s.holder.Apply(candidate)
	if err != nil {
		return limits.Settings{}, err
	}

	if s.store != nil {
		if err := s.store.Save(ctx, settings); err != nil {
			return settings, fmt.Errorf("failed to persist limits: %w", err)
		}
	}

	s.logger.Info("limits updated by operator",
		slog.String("op", "limits.update"),
		slog.String("actor", actorFrom(ctx)))
	return settings, nil
}
