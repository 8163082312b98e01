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
	"github.com/gridwatch/txlake/etl/pkg/geo"
)

const (
	generatorCapacityRoute = "electricity/operating-generator-capacity"

	// minPlantCapacityMW filters out tiny generators that clutter the map.
	minPlantCapacityMW = 1.0
)

// technologyFuels maps EIA generator technology descriptions to canonical
// fuel codes. Anything unlisted lands in OTHER.
var technologyFuels = map[string]string{
	"Solar Photovoltaic":                      "SOLAR",
	"Natural Gas Steam Turbine":               "GAS",
	"Natural Gas Combined Cycle":              "GAS",
	"Natural Gas Combustion Turbine":          "GAS",
	"Natural Gas Internal Combustion Engine":  "GAS",
	"Wind Turbine - Onshore":                  "WIND",
	"Wind Turbine - Offshore":                 "WIND",
	"Coal Steam Turbine":                      "COAL",
	"Nuclear Steam Turbine":                   "NUCLEAR",
	"Hydroelectric Turbine":                   "HYDRO",
	"Battery Energy Storage":                  "STORAGE",
	"Batteries":                               "STORAGE",
	"Biomass Steam Turbine":                   "BIOMASS",
	"Landfill Gas":                            "BIOMASS",
	"Municipal Solid Waste":                   "BIOMASS",
}

// fuelRegionKeys maps fuel codes to the geographic fuel regions used for
// fallback placement when a plant name matches no known region.
var fuelRegionKeys = map[string]string{
	"GAS":     "natural gas",
	"WIND":    "wind",
	"SOLAR":   "solar",
	"STORAGE": "battery storage",
}

type GenerationProducerConfig struct {
	Logger *slog.Logger
	Client *Client
	Clock  clockwork.Clock
}

func (cfg *GenerationProducerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("client is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// GenerationProducer publishes the Texas generation fleet: one row per plant,
// capacity summed across its generators, with coordinates approximated from
// the plant name's region keywords.
type GenerationProducer struct {
	log *slog.Logger
	cfg GenerationProducerConfig
}

func NewGenerationProducer(cfg GenerationProducerConfig) (*GenerationProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GenerationProducer{log: cfg.Logger, cfg: cfg}, nil
}

func (p *GenerationProducer) Name() string    { return "eia-generation" }
func (p *GenerationProducer) Dataset() string { return "generation" }

type generatorRow struct {
	PlantName  string      `json:"plantName"`
	Capacity   json.Number `json:"nameplate-capacity-mw"`
	Technology string      `json:"technology"`
}

func (p *GenerationProducer) Fetch(ctx context.Context) (*frame.Frame, error) {
	// Capacity data trails the calendar; the previous month is the most
	// recent one guaranteed to be published.
	month := p.cfg.Clock.Now().UTC().AddDate(0, -1, 0).Format("2006-01")

	params := url.Values{}
	params.Set("frequency", "monthly")
	params.Set("data[0]", "nameplate-capacity-mw")
	params.Set("facets[stateid][]", "TX")
	params.Set("start", month)
	params.Set("end", month)

	raw, err := p.cfg.Client.FetchSeries(ctx, generatorCapacityRoute, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no generator rows returned for %s", month)
	}

	type plantAgg struct {
		capacity   float64
		fuelCounts map[string]int
	}
	plants := map[string]*plantAgg{}
	dropped := 0
	for _, msg := range raw {
		var row generatorRow
		if err := json.Unmarshal(msg, &row); err != nil {
			dropped++
			continue
		}
		name := strings.TrimSpace(row.PlantName)
		if name == "" {
			dropped++
			continue
		}
		capacity, err := row.Capacity.Float64()
		if err != nil {
			dropped++
			continue
		}
		fuel, ok := technologyFuels[row.Technology]
		if !ok {
			fuel = "OTHER"
		}

		agg := plants[name]
		if agg == nil {
			agg = &plantAgg{fuelCounts: map[string]int{}}
			plants[name] = agg
		}
		agg.capacity += capacity
		agg.fuelCounts[fuel]++
	}
	if dropped > 0 {
		p.log.Warn("eia: dropped unparsable generator rows", "dropped", dropped)
	}

	type plantRow struct {
		name     string
		point    geo.Point
		capacity float64
		fuel     string
	}
	rows := make([]plantRow, 0, len(plants))
	for name, agg := range plants {
		if agg.capacity < minPlantCapacityMW {
			continue
		}
		fuel := dominantFuel(agg.fuelCounts)
		point, _, ok := geo.PlantRegion(name)
		if !ok {
			point = geo.FuelRegionPoint(fuelRegionKeys[fuel], name)
		}
		rows = append(rows, plantRow{name: name, point: point, capacity: agg.capacity, fuel: fuel})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].capacity != rows[j].capacity {
			return rows[i].capacity > rows[j].capacity
		}
		return rows[i].name < rows[j].name
	})

	stamp := p.cfg.Clock.Now().UTC().Format(time.RFC3339)
	f := frame.New("plant_name", "lat", "lon", "capacity_mw", "fuel", "last_updated")
	for _, row := range rows {
		if err := f.AppendRow(
			frame.String(row.name),
			frame.Float(row.point.Lat),
			frame.Float(row.point.Lon),
			frame.Float(row.capacity),
			frame.String(row.fuel),
			frame.String(stamp),
		); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// dominantFuel picks the most common fuel across a plant's generators,
// breaking ties lexicographically so output is stable across runs.
func dominantFuel(counts map[string]int) string {
	best, bestN := "OTHER", 0
	for fuel, n := range counts {
		if n > bestN || (n == bestN && fuel < best) {
			best, bestN = fuel, n
		}
	}
	return best
}
