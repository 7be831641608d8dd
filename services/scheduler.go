package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// AdvancementScheduler периодически применяет auto_apply правила завершенных соревнований.
type AdvancementScheduler struct {
	scheduler   gocron.Scheduler
	advancement AdvancementService
	interval    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

func NewAdvancementScheduler(advancement AdvancementService, interval time.Duration, logger *slog.Logger) (*AdvancementScheduler, error) {
	if interval <= 0 {
		return nil, newValidationError("invalid_interval", nil, "advancement interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &AdvancementScheduler{
		scheduler:   sched,
		advancement: advancement,
		interval:    interval,
		timeout:     interval,
		logger:      loggerOrDefault(logger),
	}, nil
}

// Start регистрирует задачу и запускает планировщик. Первый прогон выполняется сразу.
func (s *AdvancementScheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.RunOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register advancement job: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("advancement scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// RunOnce applies the rules once and logs every outcome.
func (s *AdvancementScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	outcomes, err := s.advancement.ApplyCompletedRules(ctx)
	if err != nil {
		s.logger.Error("scheduler: advancement run failed", slog.Any("error", err))
		return
	}
	for _, o := range outcomes {
		attrs := []any{
			slog.String("rule_id", o.RuleID.String()),
			slog.String("from_competition_id", o.FromCompetitionID.String()),
			slog.String("rule_type", string(o.RuleType)),
			slog.String("status", string(o.Status)),
			slog.Int("advanced", o.Advanced),
		}
		if o.Status == OutcomeError {
			s.logger.Warn("scheduler: rule failed", append(attrs, slog.String("message", o.Message))...)
			continue
		}
		s.logger.Debug("scheduler: rule applied", attrs...)
	}
}

func (s *AdvancementScheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
