package eia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
)

const (
	fuelMixRoute = "electricity/rto/fuel-type-data"

	// hourlyPeriodLayout is how the API formats hourly periods, e.g.
	// "2026-03-01T15".
	hourlyPeriodLayout = "2006-01-02T15"

	defaultFuelMixLookback = 7 * 24 * time.Hour
)

type FuelMixProducerConfig struct {
	Logger   *slog.Logger
	Client   *Client
	Clock    clockwork.Clock
	Lookback time.Duration
}

func (cfg *FuelMixProducerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("client is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultFuelMixLookback
	}
	return nil
}

// FuelMixProducer publishes hourly ERCOT generation by fuel type from the
// EIA fuel-type-data route.
type FuelMixProducer struct {
	log *slog.Logger
	cfg FuelMixProducerConfig
}

func NewFuelMixProducer(cfg FuelMixProducerConfig) (*FuelMixProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FuelMixProducer{log: cfg.Logger, cfg: cfg}, nil
}

func (p *FuelMixProducer) Name() string    { return "eia-fuelmix" }
func (p *FuelMixProducer) Dataset() string { return "fuelmix" }

type fuelMixRow struct {
	Period   string      `json:"period"`
	TypeName string      `json:"type-name"`
	Value    json.Number `json:"value"`
}

func (p *FuelMixProducer) Fetch(ctx context.Context) (*frame.Frame, error) {
	now := p.cfg.Clock.Now().UTC()
	start := now.Add(-p.cfg.Lookback)

	params := url.Values{}
	params.Set("frequency", "hourly")
	params.Set("data[0]", "value")
	params.Set("facets[respondent][]", "ERCO")
	params.Set("start", start.Format("2006-01-02"))
	params.Set("end", now.Format("2006-01-02"))
	params.Set("sort[0][column]", "period")
	params.Set("sort[0][direction]", "asc")

	raw, err := p.cfg.Client.FetchSeries(ctx, fuelMixRoute, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no fuel mix rows returned for %s..%s",
			start.Format("2006-01-02"), now.Format("2006-01-02"))
	}

	type cleanRow struct {
		period time.Time
		fuel   string
		mwh    float64
	}
	clean := make([]cleanRow, 0, len(raw))
	dropped := 0
	for _, msg := range raw {
		var row fuelMixRow
		if err := json.Unmarshal(msg, &row); err != nil {
			dropped++
			continue
		}
		period, err := time.ParseInLocation(hourlyPeriodLayout, row.Period, time.UTC)
		if err != nil {
			dropped++
			continue
		}
		mwh, err := row.Value.Float64()
		if err != nil {
			dropped++
			continue
		}
		fuel := strings.ToUpper(strings.TrimSpace(row.TypeName))
		if fuel == "" {
			dropped++
			continue
		}
		clean = append(clean, cleanRow{period: period, fuel: fuel, mwh: mwh})
	}
	if dropped > 0 {
		p.log.Warn("eia: dropped unparsable fuel mix rows", "dropped", dropped, "kept", len(clean))
	}

	sort.Slice(clean, func(i, j int) bool {
		if !clean[i].period.Equal(clean[j].period) {
			return clean[i].period.Before(clean[j].period)
		}
		return clean[i].fuel < clean[j].fuel
	})

	stamp := now.Format(time.RFC3339)
	f := frame.New("period", "fuel", "value_mwh", "last_updated")
	for _, row := range clean {
		if err := f.AppendRow(
			frame.Time(row.period),
			frame.String(row.fuel),
			frame.Float(row.mwh),
			frame.String(stamp),
		); err != nil {
			return nil, err
		}
	}
	return f, nil
}
