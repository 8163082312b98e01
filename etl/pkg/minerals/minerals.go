// Package minerals publishes the curated REE and critical-minerals deposit
// dataset. The source is a hand-maintained CSV; the producer cleans it,
// filters it to Texas, and adds the visualization attributes the map layer
// renders directly (color, radius, tooltip).
package minerals

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/etl/pkg/geo"
)

const dataSource = "Manual CSV"

// statusColors keys the marker color off development status. Unknown
// statuses are reclassified as Exploratory before lookup.
var statusColors = map[string]string{
	"Major":       "#C8102E",
	"Early":       "#FF8C00",
	"Exploratory": "#F1C40F",
	"Discovery":   "#1B365D",
}

type ProducerConfig struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	CSVPath string
}

func (cfg *ProducerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.CSVPath == "" {
		return errors.New("csv path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Producer struct {
	log *slog.Logger
	cfg ProducerConfig
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Producer{log: cfg.Logger, cfg: cfg}, nil
}

func (p *Producer) Name() string    { return "minerals" }
func (p *Producer) Dataset() string { return "minerals" }

type deposit struct {
	name     string
	lat, lon float64
	minerals string
	tonnage  float64
	status   string
	county   string
	details  string
}

func (p *Producer) Fetch(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deposits, err := p.readCSV()
	if err != nil {
		return nil, err
	}
	if len(deposits) == 0 {
		return nil, fmt.Errorf("no valid deposits in %s", p.cfg.CSVPath)
	}

	stamp := p.cfg.Clock.Now().UTC().Format(time.RFC3339)
	f := frame.New(
		"deposit_name", "lat", "lon", "minerals", "estimated_tonnage",
		"development_status", "county", "details", "color", "radius",
		"tooltip", "data_source", "last_updated",
	)
	for _, d := range deposits {
		if err := f.AppendRow(
			frame.String(d.name),
			frame.Float(d.lat),
			frame.Float(d.lon),
			frame.String(d.minerals),
			frame.Float(d.tonnage),
			frame.String(d.status),
			frame.String(d.county),
			frame.String(d.details),
			frame.String(statusColors[d.status]),
			frame.Float(markerRadius(d.tonnage)),
			frame.String(tooltip(d)),
			frame.String(dataSource),
			frame.String(stamp),
		); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *Producer) readCSV() ([]deposit, error) {
	file, err := os.Open(p.cfg.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open deposits CSV: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposits CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("deposits CSV has no data rows")
	}

	idx := map[string]int{}
	for j, title := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(title))] = j
	}
	for _, required := range []string{"deposit_name", "lat", "lon", "minerals", "development_status"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("deposits CSV is missing the %s column", required)
		}
	}

	cell := func(rec []string, name string) string {
		j, ok := idx[name]
		if !ok || j >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[j])
	}

	var deposits []deposit
	seen := map[string]bool{}
	dropped := 0
	for _, rec := range records[1:] {
		lat, latErr := strconv.ParseFloat(cell(rec, "lat"), 64)
		lon, lonErr := strconv.ParseFloat(cell(rec, "lon"), 64)
		if latErr != nil || lonErr != nil || !geo.InTexas(lat, lon) {
			dropped++
			continue
		}

		d := deposit{
			name:     cell(rec, "deposit_name"),
			lat:      lat,
			lon:      lon,
			minerals: cell(rec, "minerals"),
			tonnage:  parseTonnage(cell(rec, "estimated_tonnage")),
			status:   normalizeStatus(cell(rec, "development_status")),
			county:   cell(rec, "county"),
			details:  cell(rec, "details"),
		}
		if d.county == "" {
			d.county = "Unknown"
		}

		key := fmt.Sprintf("%s|%.6f|%.6f", d.name, d.lat, d.lon)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		deposits = append(deposits, d)
	}
	if dropped > 0 {
		p.log.Info("minerals: dropped invalid or duplicate deposits", "dropped", dropped, "kept", len(deposits))
	}
	return deposits, nil
}

// parseTonnage treats TBD/Unknown/empty and anything unparsable as zero.
func parseTonnage(s string) float64 {
	switch strings.ToLower(s) {
	case "", "tbd", "unknown":
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// normalizeStatus title-cases the status and buckets anything unrecognized
// into Exploratory.
func normalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if s != "" {
		s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	}
	if _, ok := statusColors[s]; !ok {
		return "Exploratory"
	}
	return s
}

// markerRadius scales marker size with log10 of tonnage, bottoming out at
// 2500 for unknown or sub-tonne deposits.
func markerRadius(tonnage float64) float64 {
	if tonnage <= 0 {
		return 2500
	}
	return 2500 + math.Log10(math.Max(tonnage, 1))*3000
}

func tooltip(d deposit) string {
	return fmt.Sprintf("%s\nMinerals: %s\nStatus: %s\nEst. Tonnage: %s MT\nCounty: %s",
		d.name, d.minerals, d.status, groupThousands(d.tonnage), d.county)
}

// groupThousands renders a tonnage with comma separators and no decimals.
func groupThousands(v float64) string {
	s := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
