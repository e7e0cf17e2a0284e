package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/config"
)

// Checker probes the store on an interval and alerts on failure streaks.
type Checker struct {
	prober  *Prober
	alerter *Alerter
	cfg     config.MonitoringConfig

	streak  int
	alerted bool
}

// NewChecker creates a background health checker.
func NewChecker(prober *Prober, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		prober:  prober,
		alerter: alerter,
		cfg:     cfg,
	}
}

// Run starts the periodic probe loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker",
		zap.Duration("interval", interval),
		zap.Int("failure_streak", c.failureStreak()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) failureStreak() int {
	if c.cfg.FailureStreak <= 0 {
		return 3
	}
	return c.cfg.FailureStreak
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap := c.prober.Probe(ctx)

	if snap.StoreUp {
		if c.alerted {
			if err := c.alerter.Send(ctx, RecoveredAlert(snap)); err != nil {
				log.Error("monitoring: failed to send recovery alert", zap.Error(err))
			}
		}
		c.streak = 0
		c.alerted = false
		log.Debug("monitoring: store healthy",
			zap.Duration("latency", snap.StoreLatency),
		)
		return
	}

	c.streak++
	log.Warn("monitoring: store probe failed",
		zap.Int("streak", c.streak),
		zap.String("error", snap.Error),
	)

	if c.streak >= c.failureStreak() && !c.alerted {
		if err := c.alerter.Send(ctx, DownAlert(snap, c.streak)); err != nil {
			log.Error("monitoring: failed to send down alert", zap.Error(err))
			return
		}
		c.alerted = true
	}
}
