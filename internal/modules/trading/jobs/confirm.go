package jobs

import (
	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// ConfirmJob runs the daily confirmation pass
type ConfirmJob struct {
	confirmer *trading.Confirmer
	log       zerolog.Logger
}

// NewConfirmJob creates a new confirm job
func NewConfirmJob(confirmer *trading.Confirmer, log zerolog.Logger) *ConfirmJob {
	return &ConfirmJob{
		confirmer: confirmer,
		log:       log.With().Str("job", "trade_confirm").Logger(),
	}
}

// Name implements scheduler.Job
func (j *ConfirmJob) Name() string {
	return "trade_confirm"
}

// Run executes one confirmation pass for today
func (j *ConfirmJob) Run() error {
	result, err := j.confirmer.Run(domain.Today())
	if err != nil {
		return err
	}

	if result.Delayed > 0 {
		j.log.Warn().Int("delayed", result.Delayed).Msg("Trades waiting on missing NAVs")
	}
	return nil
}
