package service

import (
	"context"
	"time"

	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository"
)

// HealthService reports the status of backing dependencies.
type HealthService interface {
	Check(ctx context.Context) model.HealthCheck
}

type HealthServiceImpl struct {
	db      repository.HealthRepository
	timeout time.Duration
	now     func() time.Time
}

// NewHealthService constructs HealthService; timeout bounds each probe.
func NewHealthService(db repository.HealthRepository, timeout time.Duration) *HealthServiceImpl {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthServiceImpl{db: db, timeout: timeout, now: time.Now}
}

// Check pings the database. A failed ping makes the service unhealthy;
// a ping slower than half the timeout makes it degraded.
func (s *HealthServiceImpl) Check(ctx context.Context) model.HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	err := s.db.Ping(ctx)
	elapsed := s.now().Sub(start)

	hc := model.HealthCheck{
		Status:    model.HealthHealthy,
		Timestamp: s.now().UTC(),
		Details:   map[string]string{"database": "healthy"},
	}
	switch {
	case err != nil:
		hc.Status = model.HealthUnhealthy
		hc.Details["database"] = "unhealthy"
		hc.Details["error"] = "database ping failed"
	case elapsed > s.timeout/2:
		hc.Status = model.HealthDegraded
		hc.Details["database"] = "slow"
	}
	return hc
}
