// Package eia is a minimal client for the EIA v2 open data API and the
// producers built on it. The API pages results (5000 rows max per request)
// and reports numeric fields inconsistently as numbers or strings, so the
// client paginates transparently and decoding goes through json.Number.
package eia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gridwatch/txlake/utils/pkg/retry"
)

const (
	// DefaultBaseURL is the EIA v2 API root.
	DefaultBaseURL = "https://api.eia.gov/v2"

	// pageSize is the maximum row count the API returns per request.
	pageSize = 5000
)

type ClientConfig struct {
	Logger     *slog.Logger
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Retry      retry.Config
}

func (cfg *ClientConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.APIKey == "" {
		return errors.New("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limiter == nil {
		// EIA asks clients to stay polite; one request every 200ms is
		// plenty for a handful of pages per refresh.
		cfg.Limiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg ClientConfig
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{log: cfg.Logger, cfg: cfg}, nil
}

// apiPage is the envelope every v2 data route returns. Total arrives as a
// string in practice, hence json.Number.
type apiPage struct {
	Response struct {
		Total json.Number       `json:"total"`
		Data  []json.RawMessage `json:"data"`
	} `json:"response"`
}

// FetchSeries pages through a v2 data route and returns every raw row.
// params must not include api_key, offset, or length; those are managed here.
func (c *Client) FetchSeries(ctx context.Context, route string, params url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		q.Set("api_key", c.cfg.APIKey)
		q.Set("offset", fmt.Sprint(offset))
		q.Set("length", fmt.Sprint(pageSize))

		var page apiPage
		if err := c.getJSON(ctx, route, q, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch %s at offset %d: %w", route, offset, err)
		}
		if len(page.Response.Data) == 0 {
			break
		}
		all = append(all, page.Response.Data...)

		total, err := page.Response.Total.Int64()
		if err != nil || int64(offset+pageSize) >= total {
			break
		}
		offset += pageSize
		c.log.Debug("eia: fetching next page", "route", route, "offset", offset, "total", total)
	}
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, route string, q url.Values, out any) error {
	u := fmt.Sprintf("%s/%s/data/", strings.TrimRight(c.cfg.BaseURL, "/"), route)

	return retry.Do(ctx, c.cfg.Retry, func() error {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return &retry.StatusError{Code: resp.StatusCode, URL: u}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
