package settings

import (
	"context"
	"errors"
)

// Numeric tunables stored as {key, numeric_value} rows. The only consumer in
// the core is the Thinking-status cooldown, but the table is generic so new
// tunables need no schema change.
const (
	KeyThinkingCooldownHours = "thinking_cooldown_hours"
)

// DefaultThinkingCooldownHours applies until an admin sets the tunable.
const DefaultThinkingCooldownHours = 48.0

var (
	ErrNotFound   = errors.New("settings: not found")
	ErrInvalidKey = errors.New("settings: invalid key")
	// ErrInvalidValue rejects out-of-range tunables (cooldown hours must be > 0).
	ErrInvalidValue = errors.New("settings: invalid value")
)

// Repository is the persistence contract for numeric settings.
type Repository interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, value float64) error
}

// Service validates and serves admin-tunable numeric settings.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// ThinkingCooldownHours satisfies lead.SettingsSource.
func (s *Service) ThinkingCooldownHours(ctx context.Context) (float64, error) {
	v, ok, err := s.repo.Get(ctx, KeyThinkingCooldownHours)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultThinkingCooldownHours, nil
	}
	if v <= 0 {
		// A zero/negative stored value would freeze Thinking leads out of the
		// pool forever or not at all; fall back rather than propagate it.
		return DefaultThinkingCooldownHours, nil
	}
	return v, nil
}

// Set validates and stores a tunable.
func (s *Service) Set(ctx context.Context, key string, value float64) error {
	switch key {
	case KeyThinkingCooldownHours:
		if value <= 0 {
			return ErrInvalidValue
		}
	default:
		return ErrInvalidKey
	}
	return s.repo.Set(ctx, key, value)
}

// Get returns the stored value for key, or (0, ErrNotFound).
func (s *Service) Get(ctx context.Context, key string) (float64, error) {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}
