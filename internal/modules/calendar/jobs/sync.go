package jobs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/modules/calendar"
)

// dayRecord is one row of the remote calendar document
type dayRecord struct {
	Market string `json:"market"`
	Day    string `json:"day"`
	IsOpen bool   `json:"is_open"`
}

// SyncJob pulls a calendar document from a configured URL and upserts
// the day statuses per market. A missing URL makes the job a no-op.
type SyncJob struct {
	service *calendar.Service
	url     string
	client  *http.Client
	log     zerolog.Logger
}

// NewSyncJob creates a new calendar sync job
func NewSyncJob(service *calendar.Service, url string, log zerolog.Logger) *SyncJob {
	return &SyncJob{
		service: service,
		url:     url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("job", "calendar_sync").Logger(),
	}
}

// Name implements scheduler.Job
func (j *SyncJob) Name() string {
	return "calendar_sync"
}

// Run fetches the remote document and upserts every market it covers
func (j *SyncJob) Run() error {
	if j.url == "" {
		j.log.Debug().Msg("No calendar sync URL configured, skipping")
		return nil
	}

	resp, err := j.client.Get(j.url)
	if err != nil {
		return fmt.Errorf("failed to fetch calendar document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calendar sync returned status %d", resp.StatusCode)
	}

	var records []dayRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode calendar document: %w", err)
	}

	byMarket := make(map[string][]calendar.DayStatus)
	for _, rec := range records {
		byMarket[rec.Market] = append(byMarket[rec.Market], calendar.DayStatus{
			Day:    rec.Day,
			IsOpen: rec.IsOpen,
		})
	}

	for market, days := range byMarket {
		if err := j.service.UpsertDays(market, days); err != nil {
			j.log.Error().Err(err).Str("market", market).Msg("Failed to upsert calendar days")
			continue
		}
		j.log.Info().Str("market", market).Int("days", len(days)).Msg("Calendar synced")
	}

	return nil
}
