package worker

import (
	"context"
	"sync"
	"time"

	"pawnshop-service/internal/service"
	"pawnshop-service/internal/util"

	"go.uber.org/zap"
)

// DefaultMonitorInterval is the pause between monitoring passes
const DefaultMonitorInterval = time.Hour

// MonitorLockKey names the lock that keeps one monitor running across replicas
const MonitorLockKey = "price-monitor"

// AlertChecker re-prices every armed alert once
type AlertChecker interface {
	CheckAll(ctx context.Context) (service.CheckSummary, error)
}

// Locker is a distributed lock with owner tokens
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// MonitorStatus describes the monitoring loop
type MonitorStatus struct {
	Running     bool                  `json:"running"`
	Interval    string                `json:"interval,omitempty"`
	Passes      int                   `json:"passes"`
	LastRun     *time.Time            `json:"last_run,omitempty"`
	LastSummary *service.CheckSummary `json:"last_summary,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
}

// MonitoringLoop periodically checks every armed price alert. There is one
// loop per process; with a Locker, passes only run on the replica holding
// the lock.
type MonitoringLoop struct {
	checker AlertChecker
	locker  Locker
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	status   MonitorStatus
}

// NewMonitoringLoop creates a new monitoring loop. locker may be nil.
func NewMonitoringLoop(checker AlertChecker, locker Locker) *MonitoringLoop {
	return &MonitoringLoop{
		checker: checker,
		locker:  locker,
		logger:  util.GetLogger(),
	}
}

// Start runs a pass immediately and then every interval until Stop or
// until ctx is cancelled. It returns false when the loop is already running.
func (m *MonitoringLoop) Start(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.interval = interval
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info("Price monitoring started", zap.Duration("interval", interval))
	go m.run(ctx, loopCtx, interval, m.done)
	return true
}

// Stop cancels future passes. A pass already in flight runs to completion.
func (m *MonitoringLoop) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.cancel()
	m.running = false
	m.logger.Info("Price monitoring stopped")
}

// Wait blocks until the last started loop has exited
func (m *MonitoringLoop) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the loop state and the outcome of the last pass
func (m *MonitoringLoop) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.status
	s.Running = m.running
	if m.running {
		s.Interval = m.interval.String()
	}
	return s
}

// run drives the ticker. Passes use ctx so that Stop, which cancels only
// loopCtx, leaves an in-flight pass alone.
func (m *MonitoringLoop) run(ctx, loopCtx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	var token string
	defer func() { m.releaseLock(ctx, token) }()

	m.tick(ctx, interval, &token)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			if loopCtx.Err() != nil {
				return
			}
			m.tick(ctx, interval, &token)
		}
	}
}

func (m *MonitoringLoop) tick(ctx context.Context, interval time.Duration, token *string) {
	if !m.holdLock(ctx, interval, token) {
		m.logger.Debug("Monitor lock held elsewhere, skipping pass")
		return
	}

	start := time.Now()
	summary, err := m.checker.CheckAll(ctx)
	util.MonitoringTickDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.logger.Error("Monitoring pass failed", zap.Error(err))
	} else {
		m.logger.Info("Monitoring pass completed",
			zap.Int("checked", summary.Checked),
			zap.Int("triggered", summary.Triggered),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Duration("elapsed", time.Since(start)))
	}

	m.mu.Lock()
	m.status.Passes++
	m.status.LastRun = &start
	m.status.LastSummary = &summary
	m.status.LastError = ""
	if err != nil {
		m.status.LastError = err.Error()
	}
	m.mu.Unlock()
}

// holdLock takes or extends the cross-replica lock. Without a locker the
// process always holds it. A Redis outage does not stop local monitoring.
func (m *MonitoringLoop) holdLock(ctx context.Context, interval time.Duration, token *string) bool {
	if m.locker == nil {
		return true
	}
	ttl := 2 * interval

	if *token != "" {
		ok, err := m.locker.ExtendLock(ctx, MonitorLockKey, *token, ttl)
		if err != nil {
			m.logger.Warn("Failed to extend monitor lock", zap.Error(err))
			return true
		}
		if ok {
			return true
		}
		*token = ""
	}

	acquired, ok, err := m.locker.AcquireLock(ctx, MonitorLockKey, ttl)
	if err != nil {
		m.logger.Warn("Failed to acquire monitor lock", zap.Error(err))
		return true
	}
	if !ok {
		return false
	}
	*token = acquired
	return true
}

func (m *MonitoringLoop) releaseLock(ctx context.Context, token string) {
	if m.locker == nil || token == "" {
		return
	}
	if err := m.locker.ReleaseLock(context.WithoutCancel(ctx), MonitorLockKey, token); err != nil {
		m.logger.Warn("Failed to release monitor lock", zap.Error(err))
	}
}
