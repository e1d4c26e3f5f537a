package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HoldExpirer снимает просроченные холды
type HoldExpirer interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	expirer  HoldExpirer
	schedule string
	cron     *cron.Cron
	job      cron.Job
	logger   *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	first  sync.WaitGroup
}

// NewScheduler создаёт новый планировщик. schedule в формате robfig/cron, например "@every 1m".
func NewScheduler(expirer HoldExpirer, schedule string, logger *zap.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		expirer:  expirer,
		schedule: schedule,
		cron:     cron.New(cron.WithLogger(cl)),
		logger:   logger,
		ctx:      context.Background(),
	}

	// Один и тот же обёрнутый job и для первого прохода, и для расписания,
	// поэтому проходы никогда не пересекаются
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.tick))
	s.cron.Schedule(sched, s.job)

	return s, nil
}

// Start запускает фоновые задачи; первый проход выполняется сразу
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.String("schedule", s.schedule))

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.job.Run()
	}()
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт текущий проход
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.first.Wait()
	s.logger.Info("Background scheduler stopped")
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.expireHolds(ctx)
}

// expireHolds один проход по просроченным холдам
func (s *Scheduler) expireHolds(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	expired, err := s.expirer.ExpireStaleHolds(ctx)
	if err != nil {
		s.logger.Error("Failed to expire stale holds", zap.Int("expired", expired), zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Stale holds expired", zap.Int("expired", expired))
	}
}

// cronLogger cron.Logger поверх zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
