// Package ercot holds producers for ERCOT-published data: the
// interconnection queue extracted from the CDR (Capacity, Demand and
// Reserves) report, and representative hub prices for the price map.
package ercot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/etl/pkg/geo"
	"github.com/gridwatch/txlake/utils/pkg/retry"
)

// fuelNames normalizes CDR fuel codes to display names. Unlisted codes pass
// through unchanged.
var fuelNames = map[string]string{
	"GAS":     "Natural Gas",
	"NATGAS":  "Natural Gas",
	"WIND-O":  "Wind",
	"SOLAR-O": "Solar",
	"SOLAR-W": "Solar",
	"STORAGE": "Battery Storage",
}

// planStatuses are the CDR STATUS values that mark a unit as planned, i.e.
// in the interconnection queue rather than operating.
var planStatuses = map[string]bool{
	"PLAN":     true,
	"PLAN-SLF": true,
}

type QueueProducerConfig struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	ReportURL  string
	HTTPClient *http.Client
	Retry      retry.Config
}

func (cfg *QueueProducerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ReportURL == "" {
		return errors.New("report URL is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// QueueProducer publishes planned generation projects from the CSV export of
// the ERCOT CDR report's Unit Details sheet. The export carries preamble
// rows before the header, legacy column names, and a CDR STATUS column that
// distinguishes planned units from operating ones.
type QueueProducer struct {
	log *slog.Logger
	cfg QueueProducerConfig
}

func NewQueueProducer(cfg QueueProducerConfig) (*QueueProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &QueueProducer{log: cfg.Logger, cfg: cfg}, nil
}

func (p *QueueProducer) Name() string    { return "ercot-queue" }
func (p *QueueProducer) Dataset() string { return "queue" }

func (p *QueueProducer) Fetch(ctx context.Context) (*frame.Frame, error) {
	records, err := p.download(ctx)
	if err != nil {
		return nil, err
	}

	cols, body, err := locateHeader(records)
	if err != nil {
		return nil, err
	}

	stamp := p.cfg.Clock.Now().UTC().Format(time.RFC3339)
	f := frame.New("project_name", "lat", "lon", "proposed_mw", "fuel", "status", "last_updated", "county")
	kept := 0
	for _, rec := range body {
		status := strings.ToUpper(strings.TrimSpace(at(rec, cols.status)))
		if !planStatuses[status] {
			continue
		}

		name := strings.TrimSpace(at(rec, cols.name))
		if name == "" {
			name = "Unknown Project"
		}
		rawFuel := strings.ToUpper(strings.TrimSpace(at(rec, cols.fuel)))
		fuel := rawFuel
		if mapped, ok := fuelNames[rawFuel]; ok {
			fuel = mapped
		}
		county := strings.TrimSpace(at(rec, cols.county))

		mw := 0.0
		if v, err := strconv.ParseFloat(strings.ReplaceAll(at(rec, cols.capacity), ",", ""), 64); err == nil {
			mw = v
		}

		point, ok := geo.CountyCentroid(county)
		if !ok {
			point = geo.FuelRegionPoint(fuel, name+county)
		}

		if err := f.AppendRow(
			frame.String(name),
			frame.Float(point.Lat),
			frame.Float(point.Lon),
			frame.Float(mw),
			frame.String(fuel),
			frame.String(status),
			frame.String(stamp),
			frame.String(county),
		); err != nil {
			return nil, err
		}
		kept++
	}
	if kept == 0 {
		return nil, errors.New("no planned projects found in CDR report")
	}

	p.log.Info("ercot: parsed interconnection queue", "planned", kept, "rows", len(body))
	return f, nil
}

func (p *QueueProducer) download(ctx context.Context) ([][]string, error) {
	var records [][]string
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.ReportURL, nil)
		if err != nil {
			return err
		}
		resp, err := p.cfg.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return &retry.StatusError{Code: resp.StatusCode, URL: p.cfg.ReportURL}
		}

		r := csv.NewReader(resp.Body)
		r.FieldsPerRecord = -1 // preamble rows have odd widths
		records, err = r.ReadAll()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download CDR report: %w", err)
	}
	return records, nil
}

// queueColumns are the resolved column indexes of the Unit Details export.
type queueColumns struct {
	name     int
	fuel     int
	status   int
	county   int
	capacity int
}

// locateHeader scans the leading rows for the one containing UNIT NAME and
// resolves the column layout from it. The capacity column's exact title
// varies between report revisions, so it is matched by substring.
func locateHeader(records [][]string) (queueColumns, [][]string, error) {
	const maxHeaderScan = 12

	for i, rec := range records {
		if i >= maxHeaderScan {
			break
		}
		cols := queueColumns{name: -1, fuel: -1, status: -1, county: -1, capacity: -1}
		for j, cell := range rec {
			switch title := strings.ToUpper(strings.TrimSpace(cell)); {
			case title == "UNIT NAME":
				cols.name = j
			case title == "FUEL":
				cols.fuel = j
			case title == "CDR STATUS":
				cols.status = j
			case title == "COUNTY":
				cols.county = j
			case strings.Contains(title, "INSTALLED CAPACITY") && strings.Contains(title, "MW"):
				cols.capacity = j
			}
		}
		if cols.name >= 0 && cols.status >= 0 {
			if cols.fuel < 0 || cols.county < 0 || cols.capacity < 0 {
				return cols, nil, fmt.Errorf("CDR header at row %d is missing fuel, county, or capacity columns", i)
			}
			return cols, records[i+1:], nil
		}
	}
	return queueColumns{}, nil, errors.New("could not find UNIT NAME header row in CDR report")
}

func at(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
