// Package scheduler runs the recurring background jobs: the nightly GSA
// per-diem refresh and the weekly contract-end reminder emails.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/travelcomp/offer-service/internal/service"
)

type Scheduler struct {
	cron *cron.Cron
	svc  *service.Service
	log  *logrus.Logger
}

// NewScheduler initializes a scheduler around the service
func NewScheduler(svc *service.Service, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		svc:  svc,
		log:  log,
	}
}

// Start registers the jobs and starts the cron loop in its own goroutine
func (s *Scheduler) Start() error {
	// Nightly at 03:00: refresh cached GSA rates for localities in use.
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.svc.RefreshPerDiemRates(); err != nil {
			s.log.Errorf("Scheduled per-diem refresh failed: %v", err)
		}
	}); err != nil {
		return err
	}

	// Monday mornings: remind users whose contracts end within two weeks.
	if _, err := s.cron.AddFunc("0 9 * * 1", func() {
		if err := s.svc.SendContractEndReminders(); err != nil {
			s.log.Errorf("Scheduled contract reminders failed: %v", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}
