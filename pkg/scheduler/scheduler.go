// pkg/scheduler/scheduler.go
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// dailySpec fires the unattended run once a day at 01:02.
const dailySpec = "2 1 * * *"

// Scheduler owns the recurring daily trigger. It is constructed and started
// explicitly during process initialization and stopped on shutdown; overlap
// with a still-running previous fire is skipped rather than queued.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler that invokes job once daily
func New(job func()) (*Scheduler, error) {
	logger := zap.L().Named("scheduler")
	cronLog := &zapCronLogger{logger: logger}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	if _, err := c.AddFunc(dailySpec, job); err != nil {
		return nil, fmt.Errorf("failed to register daily job: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", zap.String("spec", dailySpec))
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// zapCronLogger adapts zap to the cron logger interface
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
