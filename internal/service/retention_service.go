package service

import (
	"context"
	"time"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/repository"
)

// RetentionService periodically drops history older than the retention age.
type RetentionService struct {
	tables map[string]repository.Pruner
	age    time.Duration
	log    *logger.Logger
	now    func() time.Time
}

func NewRetentionService(age time.Duration, tables map[string]repository.Pruner, log *logger.Logger) *RetentionService {
	return &RetentionService{
		tables: tables,
		age:    age,
		log:    log.Named("retention"),
		now:    time.Now,
	}
}

// Prune runs one pass and returns the number of removed rows per table.
func (s *RetentionService) Prune(ctx context.Context) map[string]int64 {
	cutoff := s.now().Add(-s.age)
	removed := make(map[string]int64, len(s.tables))

	for name, table := range s.tables {
		n, err := table.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.log.Error("Failed to prune %s: %v", name, err)
			continue
		}
		removed[name] = n
		if n > 0 {
			s.log.Info("Removed %d %s older than %s", n, name, cutoff.Format(time.DateTime))
		}
	}
	return removed
}

// Run prunes immediately and then every interval until ctx is cancelled.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	if s.age <= 0 {
		s.log.Info("Retention disabled, history is kept forever")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(ctx)
		}
	}
}
