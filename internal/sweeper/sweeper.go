package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"esupchat/pkg/campus"
	"esupchat/pkg/logger"
)

// Sweeper expires idle campus sessions on a cron schedule, so credentials
// are not kept authenticated against the university backend longer than
// needed.
type Sweeper struct {
	client  *campus.Client
	cron    string
	maxIdle time.Duration
}

func New(client *campus.Client, cronExpr string, maxIdle time.Duration) (*Sweeper, error) {
	if cronExpr == "" {
		cronExpr = "*/15 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cronExpr)
	}
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	return &Sweeper{client: client, cron: cronExpr, maxIdle: maxIdle}, nil
}

// Start launches the scheduler goroutine. The returned cancel func stops it.
func (s *Sweeper) Start(ctx context.Context) context.CancelFunc {
	ctx2, cancel := context.WithCancel(ctx)
	logger.Info("session_sweeper_started", "cron", s.cron, "max_idle", s.maxIdle.String())
	go s.run(ctx2)
	return cancel
}

// RunOnce sweeps immediately and reports how many sessions were dropped.
func (s *Sweeper) RunOnce() int {
	n := s.client.SweepSessions(s.maxIdle)
	if n > 0 {
		logger.Info("campus_sessions_swept", "dropped", n, "remaining", s.client.SessionCount())
	}
	return n
}

// run computes each next tick with gronx and sleeps until it fires.
func (s *Sweeper) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("session_sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(s.cron, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", s.cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			s.RunOnce()
		case <-ctx.Done():
			logger.Info("session_sweeper_stopping")
			return
		}
	}
}
