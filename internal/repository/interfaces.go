package repository

import (
	"context"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// IAlarmRepository stores fired alarms.
type IAlarmRepository interface {
	Create(ctx context.Context, alarm *models.Alarm) error
	List(ctx context.Context, limit, offset int) ([]models.Alarm, error)
}

// ISampleRepository stores chart channel samples.
type ISampleRepository interface {
	Insert(ctx context.Context, sample models.ChannelSample) error
	Range(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.Sample, error)
}

// ICommandRepository audits outbound device commands.
type ICommandRepository interface {
	Create(ctx context.Context, cmd *models.Command) error
	UpdateStatus(ctx context.Context, id, status, errMsg string, sentAt *time.Time) error
	ListRecent(ctx context.Context, limit int) ([]models.Command, error)
}

// Pruner deletes rows created before a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

var (
	_ IAlarmRepository   = (*AlarmRepository)(nil)
	_ ISampleRepository  = (*SampleRepository)(nil)
	_ ICommandRepository = (*CommandRepository)(nil)
	_ Pruner             = (*AlarmRepository)(nil)
	_ Pruner             = (*SampleRepository)(nil)
)
