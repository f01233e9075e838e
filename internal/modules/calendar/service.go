package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// ErrCalendarDataMissing means the calendar has no row for a queried
// market day. The service never guesses from weekdays: callers must
// sync or patch the calendar and retry.
var ErrCalendarDataMissing = errors.New("calendar data missing")

// nextOpenScanLimit bounds the forward walk of NextOpenOnOrAfter.
const nextOpenScanLimit = 366

// Service answers open/closed questions against stored calendar data only
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new calendar service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "calendar").Logger(),
	}
}

// IsOpen reports whether the market trades on the given date.
// A missing row is ErrCalendarDataMissing, never a weekday guess.
func (s *Service) IsOpen(market string, date time.Time) (bool, error) {
	day := domain.FormatDate(date)
	open, found, err := s.repo.Lookup(market, day)
	if err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("no calendar data for market %s on %s, run calendar sync or patch: %w",
			market, day, ErrCalendarDataMissing)
	}
	return open, nil
}

// NextOpenOnOrAfter returns date itself when the market is open that day,
// otherwise the first open day after it.
func (s *Service) NextOpenOnOrAfter(market string, date time.Time) (time.Time, error) {
	d := date
	for i := 0; i < nextOpenScanLimit; i++ {
		open, err := s.IsOpen(market, d)
		if err != nil {
			return time.Time{}, err
		}
		if open {
			return d, nil
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("no open day for market %s within %d days of %s: %w",
		market, nextOpenScanLimit, domain.FormatDate(date), ErrCalendarDataMissing)
}

// Shift advances n open days starting strictly after date. n == 0
// returns date itself, which must be an open day.
func (s *Service) Shift(market string, date time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, fmt.Errorf("shift count must be >= 0, got %d", n)
	}
	if n == 0 {
		open, err := s.IsOpen(market, date)
		if err != nil {
			return time.Time{}, err
		}
		if !open {
			return time.Time{}, fmt.Errorf("market %s is closed on %s, cannot shift 0 days from it",
				market, domain.FormatDate(date))
		}
		return date, nil
	}

	limit := n*10 + nextOpenScanLimit
	d := date
	remaining := n
	for i := 0; i < limit; i++ {
		d = d.AddDate(0, 0, 1)
		open, err := s.IsOpen(market, d)
		if err != nil {
			return time.Time{}, err
		}
		if open {
			remaining--
			if remaining == 0 {
				return d, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("could not shift %d open days for market %s from %s within %d days: %w",
		n, market, domain.FormatDate(date), limit, ErrCalendarDataMissing)
}

// UpsertDays patches or extends the stored calendar for a market
func (s *Service) UpsertDays(market string, days []DayStatus) error {
	for _, d := range days {
		if _, err := domain.ParseDate(d.Day); err != nil {
			return err
		}
	}
	return s.repo.UpsertDays(market, days)
}

// Coverage reports the span of known days for a market
func (s *Service) Coverage(market string) (*Coverage, error) {
	return s.repo.Coverage(market)
}
