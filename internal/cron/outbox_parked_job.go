package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type parkedCounter interface {
	CountParked(ctx context.Context, tx *gorm.DB, maxAttempts int) (int64, error)
}

type parkedGauge interface {
	SetOutboxParked(count int64)
}

type OutboxParkedJobParams struct {
	Logger      *logger.Logger
	Repository  parkedCounter
	Gauge       parkedGauge
	MaxAttempts int
}

type outboxParkedJob struct {
	logg        *logger.Logger
	repo        parkedCounter
	gauge       parkedGauge
	maxAttempts int
}

// NewOutboxParkedJob reports outbox rows the publisher has given up on.
func NewOutboxParkedJob(params OutboxParkedJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	return &outboxParkedJob{
		logg:        params.Logger,
		repo:        params.Repository,
		gauge:       params.Gauge,
		maxAttempts: params.MaxAttempts,
	}, nil
}

func (j *outboxParkedJob) Name() string { return "outbox-parked-report" }

func (j *outboxParkedJob) Run(ctx context.Context) error {
	count, err := j.repo.CountParked(ctx, nil, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("count parked outbox rows: %w", err)
	}
	if j.gauge != nil {
		j.gauge.SetOutboxParked(count)
	}
	if count > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"parked":       count,
			"max_attempts": j.maxAttempts,
		}), "outbox rows parked after exhausting publish attempts")
	}
	return nil
}
