package ercot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
)

// hubNode is one representative settlement point on the price map.
type hubNode struct {
	id     string
	lat    float64
	lon    float64
	price  float64
	region string
}

// hubNodes covers the major ERCOT load zones with representative prices in
// ¢/kWh, standing in until a real-time LMP feed replaces them.
var hubNodes = []hubNode{
	{"HB_NORTH_1", 33.0, -96.8, 4.2, "North"},
	{"HB_NORTH_2", 32.8, -97.3, 4.5, "North"},
	{"HB_NORTH_3", 32.5, -96.5, 4.1, "North"},
	{"HB_HOUSTON_1", 29.8, -95.4, 5.2, "Houston"},
	{"HB_HOUSTON_2", 29.6, -95.2, 5.5, "Houston"},
	{"HB_HOUSTON_3", 30.0, -95.6, 5.0, "Houston"},
	{"HB_SOUTH_1", 27.8, -97.4, 3.8, "South"},
	{"HB_SOUTH_2", 26.2, -98.2, 3.5, "South"},
	{"HB_WEST_1", 31.8, -102.4, 3.2, "West"},
	{"HB_WEST_2", 32.5, -101.9, 3.0, "West"},
	{"HB_AUSTIN_1", 30.3, -97.7, 4.8, "Central"},
	{"HB_AUSTIN_2", 30.5, -97.9, 4.6, "Central"},
}

type PriceMapProducerConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
}

func (cfg *PriceMapProducerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// PriceMapProducer publishes the hub node price table. TODO: fetch real-time
// LMPs from the ERCOT contour data feed (rtmLmp) once access is sorted out.
type PriceMapProducer struct {
	cfg PriceMapProducerConfig
}

func NewPriceMapProducer(cfg PriceMapProducerConfig) (*PriceMapProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PriceMapProducer{cfg: cfg}, nil
}

func (p *PriceMapProducer) Name() string    { return "price-map" }
func (p *PriceMapProducer) Dataset() string { return "price_map" }

func (p *PriceMapProducer) Fetch(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stamp := p.cfg.Clock.Now().UTC().Format(time.RFC3339)
	f := frame.New("node_id", "lat", "lon", "price_cperkwh", "region", "last_updated")
	for _, n := range hubNodes {
		if err := f.AppendRow(
			frame.String(n.id),
			frame.Float(n.lat),
			frame.Float(n.lon),
			frame.Float(n.price),
			frame.String(n.region),
			frame.String(stamp),
		); err != nil {
			return nil, err
		}
	}
	return f, nil
}
