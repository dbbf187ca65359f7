package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mavillena/aemet-track/internal/climate"
	"github.com/mavillena/aemet-track/internal/config"
	"github.com/mavillena/aemet-track/internal/logger"
)

// Scheduler periodically refreshes the history and summary in daemon
// mode, honoring the configured work-day gate.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *climate.Service
	conf      *config.Config
	log       *logger.Logger
}

// New creates a new Scheduler.
func New(conf *config.Config, service *climate.Service, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		conf:      conf,
		log:       log,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// Jobs run in singleton mode so a slow rebuild is never overlapped by
// the next tick.
func (s *Scheduler) Start() error {
	interval := s.conf.Server.RefreshInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		now := time.Now()
		if !s.conf.RunsOn(now) {
			s.log.Debug("refresh skipped by work-day gate", slog.String("workDay", s.conf.WorkDay))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		s.log.Info("running scheduled refresh")
		if _, err := s.service.Refresh(ctx, now); err != nil {
			s.log.Error("scheduled refresh failed", logger.Err(err))
			return
		}
		s.log.Info("scheduled refresh completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
