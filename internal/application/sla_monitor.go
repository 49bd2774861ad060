package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"

	"github.com/wms-platform/batching-service/internal/domain"
)

// SLAMonitor periodically raises urgent alerts for orders close to their deadline
type SLAMonitor struct {
	repo      domain.FloorRepository
	clock     Clock
	config    SLAConfig
	metrics   *metrics.Metrics
	logger    *logging.Logger
	mu        sync.RWMutex
	running   bool
	stopChan  chan struct{}
	lastCheck *time.Time
}

// NewSLAMonitor creates a new SLA monitor
func NewSLAMonitor(repo domain.FloorRepository, clock Clock, config SLAConfig, m *metrics.Metrics, logger *logging.Logger) *SLAMonitor {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SLAMonitor{
		repo:     repo,
		clock:    clock,
		config:   config,
		metrics:  m,
		logger:   logger.WithComponent("sla-monitor"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic scan
func (s *SLAMonitor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sla monitor is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.logger.Info("Starting SLA monitor", "interval", s.config.CheckInterval, "threshold", s.config.Threshold)
	go s.run(ctx, stop)
	return nil
}

// Stop stops the periodic scan
func (s *SLAMonitor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
		s.logger.Info("SLA monitor stopped")
	}
}

// IsRunning returns whether the monitor is running
func (s *SLAMonitor) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Status describes the monitor
func (s *SLAMonitor) Status() SLAStatusDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SLAStatusDTO{
		Running:       s.running,
		CheckInterval: s.config.CheckInterval.String(),
		Threshold:     s.config.Threshold.String(),
		Cooldown:      s.config.Cooldown.String(),
	}
	if s.lastCheck != nil {
		t := *s.lastCheck
		status.LastCheck = &t
	}
	return status
}

func (s *SLAMonitor) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.stopChan == stop {
				s.running = false
			}
			s.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.CheckNow(ctx); err != nil {
				s.logger.WithError(err).Error("SLA check failed")
			}
		}
	}
}

// CheckNow runs one scan and returns the alerts it raised
func (s *SLAMonitor) CheckNow(ctx context.Context) (*SLACheckDTO, error) {
	now := s.clock.Now()
	var raised []domain.Alert
	_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		raised = f.RaiseSLAAlerts(s.config.SLAPolicy, now)
		return nil
	})
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	s.mu.Lock()
	s.lastCheck = &now
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSLACheck(len(raised))
	}
	if len(raised) > 0 {
		s.logger.Warn("Orders at SLA risk", "alerts", len(raised))
	}

	return &SLACheckDTO{CheckedAt: now, Alerts: ToAlertDTOs(raised)}, nil
}
