package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/templeconnect/backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
)

// OutboxRetentionJobParams configure the outbox retention job.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	Outbox       publishedPruner
	DLQ          dlqPruner
	Retention    int
	DLQRetention int
}

type publishedPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes delivered outbox rows and stale DLQ entries.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqRetention := params.DLQRetention
	if dlqRetention <= 0 {
		dlqRetention = dlqRetentionDays
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		outbox:       params.Outbox,
		dlq:          params.DLQ,
		retention:    retention,
		dlqRetention: dlqRetention,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	outbox       publishedPruner
	dlq          dlqPruner
	retention    int
	dlqRetention int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes both tables even when one of them fails.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	var errs error
	nowUTC := j.now().UTC()

	publishedCutoff := nowUTC.Add(-time.Duration(j.retention) * 24 * time.Hour)
	published, err := j.outbox.DeletePublishedBefore(publishedCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("prune published events: %w", err))
	}

	dlqCutoff := nowUTC.Add(-time.Duration(j.dlqRetention) * 24 * time.Hour)
	failed, err := j.dlq.DeleteFailedBefore(ctx, dlqCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("prune dlq rows: %w", err))
	}
	if errs != nil {
		return fmt.Errorf("outbox retention: %w", errs)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"published_cutoff":  publishedCutoff,
		"dlq_cutoff":        dlqCutoff,
		"published_deleted": published,
		"dlq_deleted":       failed,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
