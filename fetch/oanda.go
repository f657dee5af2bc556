package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dnldd/hammer/shared"
)

const (
	// PracticeBaseURL is the base url of the broker's practice api.
	PracticeBaseURL = "https://api-fxpractice.oanda.com"
	// midpointPrice requests candles built from midpoint prices.
	midpointPrice = "M"
)

// OandaConfig represents the configuration for the Oanda client.
type OandaConfig struct {
	// APIKey is the Oanda API key.
	APIKey string
	// BaseURL is the base url of the Oanda api.
	BaseURL string
}

// OandaClient represents the Oanda v20 REST API client.
type OandaClient struct {
	cfg   *OandaConfig
	httpc http.Client
}

// Ensure the OandaClient implements the CandleFetcher interface.
var _ shared.CandleFetcher = (*OandaClient)(nil)

// NewOandaClient instantiates a new Oanda client.
func NewOandaClient(cfg *OandaConfig) *OandaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PracticeBaseURL
	}

	return &OandaClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}
}

// FetchCandles fetches the most recent candles of the provided market and timeframe.
func (c *OandaClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, count int) ([]byte, error) {
	params := url.Values{}
	params.Add("count", strconv.Itoa(count))
	params.Add("granularity", timeframe.String())
	params.Add("price", midpointPrice)

	formedURL := fmt.Sprintf("%s/v3/instruments/%s/candles?%s", c.cfg.BaseURL, market, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating candles request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching candles (%s) for %s: %w", timeframe.String(), market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching candles (%s) for %s: status %d: %s",
			timeframe.String(), market, resp.StatusCode, string(body))
	}

	return body, nil
}
