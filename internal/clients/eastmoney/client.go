package eastmoney

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 30
	maxRetries      = 3
	refererURL      = "http://fundf10.eastmoney.com/"
)

// NavPoint is one published net asset value
type NavPoint struct {
	Day string
	Nav decimal.Decimal
}

// Client fetches fund NAV history from the eastmoney f10 endpoint
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new eastmoney client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "eastmoney").Logger(),
	}
}

// lsjzResponse is the wire shape of the NAV history endpoint. FSRQ is
// the publication date, DWJZ the unit NAV.
type lsjzResponse struct {
	Data struct {
		LSJZList []struct {
			FSRQ string `json:"FSRQ"`
			DWJZ string `json:"DWJZ"`
		} `json:"LSJZList"`
	} `json:"Data"`
	ErrCode int    `json:"ErrCode"`
	ErrMsg  string `json:"ErrMsg"`
}

// FetchNavHistory returns the most recent NAV points for a fund,
// newest first, retrying transient failures with backoff.
func (c *Client) FetchNavHistory(fundCode string, pageSize int) ([]NavPoint, error) {
	if fundCode == "" {
		return nil, fmt.Errorf("fund code is required")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		points, err := c.fetchPage(fundCode, pageSize)
		if err == nil {
			return points, nil
		}
		lastErr = err
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).
				Str("fund", fundCode).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to fetch NAV history, retrying")
			time.Sleep(waitTime)
		}
	}
	return nil, fmt.Errorf("failed to fetch nav history for %s: %w", fundCode, lastErr)
}

func (c *Client) fetchPage(fundCode string, pageSize int) ([]NavPoint, error) {
	query := url.Values{}
	query.Set("fundCode", fundCode)
	query.Set("pageIndex", "1")
	query.Set("pageSize", fmt.Sprintf("%d", pageSize))

	endpoint := fmt.Sprintf("%s/f10/lsjz?%s", c.baseURL, query.Encode())
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// The endpoint rejects requests without a fund page referer
	req.Header.Set("Referer", refererURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed lsjzResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.ErrCode != 0 {
		return nil, fmt.Errorf("api error %d: %s", parsed.ErrCode, parsed.ErrMsg)
	}

	var points []NavPoint
	for _, row := range parsed.Data.LSJZList {
		if row.FSRQ == "" || row.DWJZ == "" {
			continue
		}
		nav, err := decimal.NewFromString(row.DWJZ)
		if err != nil {
			c.log.Warn().Str("fund", fundCode).Str("day", row.FSRQ).Str("nav", row.DWJZ).Msg("Skipping unparseable NAV")
			continue
		}
		points = append(points, NavPoint{Day: row.FSRQ, Nav: nav})
	}

	c.log.Debug().Str("fund", fundCode).Int("points", len(points)).Msg("NAV history fetched")
	return points, nil
}
