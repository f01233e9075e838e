package jobs

import (
	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/dca"
)

// RunDailyJob creates the day's pending trades for active plans
type RunDailyJob struct {
	runner *dca.Runner
	log    zerolog.Logger
}

// NewRunDailyJob creates a new daily plan job
func NewRunDailyJob(runner *dca.Runner, log zerolog.Logger) *RunDailyJob {
	return &RunDailyJob{
		runner: runner,
		log:    log.With().Str("job", "dca_run_daily").Logger(),
	}
}

// Name implements scheduler.Job
func (j *RunDailyJob) Name() string {
	return "dca_run_daily"
}

// Run executes the plan run for today
func (j *RunDailyJob) Run() error {
	_, err := j.runner.RunDaily(domain.Today())
	return err
}
