// Command etl runs selected producers once and exits, for cron-style
// refreshes and for backfilling a data directory before starting dashd.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/gridwatch/txlake/etl/pkg/eia"
	"github.com/gridwatch/txlake/etl/pkg/ercot"
	"github.com/gridwatch/txlake/etl/pkg/minerals"
	"github.com/gridwatch/txlake/etl/pkg/producer"
	"github.com/gridwatch/txlake/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	dataDirFlag := flag.String("data-dir", "data", "directory to write dataset Parquet files into")

	allFlag := flag.Bool("all", false, "refresh every dataset with a configured source")
	fuelmixFlag := flag.Bool("fuelmix", false, "refresh the EIA hourly fuel mix dataset")
	generationFlag := flag.Bool("generation", false, "refresh the EIA generation fleet dataset")
	queueFlag := flag.Bool("queue", false, "refresh the ERCOT interconnection queue dataset")
	priceMapFlag := flag.Bool("price-map", false, "refresh the price map dataset")
	mineralsFlag := flag.Bool("minerals", false, "refresh the mineral deposits dataset")

	eiaAPIKeyFlag := flag.String("eia-api-key", "", "EIA open data API key (or set EIA_API_KEY env var)")
	cdrURLFlag := flag.String("cdr-url", "", "URL of the ERCOT CDR Unit Details CSV export (or set ERCOT_CDR_URL env var)")
	mineralsCSVFlag := flag.String("minerals-csv", "data/manual_mineral_deposits.csv", "path to the curated mineral deposits CSV")

	flag.Parse()

	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	if envKey := os.Getenv("EIA_API_KEY"); envKey != "" {
		*eiaAPIKeyFlag = envKey
	}
	if envURL := os.Getenv("ERCOT_CDR_URL"); envURL != "" {
		*cdrURLFlag = envURL
	}

	wantFuelmix := *allFlag || *fuelmixFlag
	wantGeneration := *allFlag || *generationFlag
	wantQueue := *allFlag || *queueFlag
	wantPriceMap := *allFlag || *priceMapFlag
	wantMinerals := *allFlag || *mineralsFlag
	if !wantFuelmix && !wantGeneration && !wantQueue && !wantPriceMap && !wantMinerals {
		flag.Usage()
		return errors.New("no datasets selected; pass --all or one or more dataset flags")
	}

	var producers []producer.Producer
	if wantFuelmix || wantGeneration {
		if *eiaAPIKeyFlag == "" {
			return errors.New("fuelmix and generation require an EIA API key")
		}
		client, err := eia.NewClient(eia.ClientConfig{Logger: log, APIKey: *eiaAPIKeyFlag})
		if err != nil {
			return err
		}
		if wantFuelmix {
			p, err := eia.NewFuelMixProducer(eia.FuelMixProducerConfig{Logger: log, Client: client})
			if err != nil {
				return err
			}
			producers = append(producers, p)
		}
		if wantGeneration {
			p, err := eia.NewGenerationProducer(eia.GenerationProducerConfig{Logger: log, Client: client})
			if err != nil {
				return err
			}
			producers = append(producers, p)
		}
	}
	if wantQueue {
		if *cdrURLFlag == "" {
			return errors.New("queue requires the CDR export URL")
		}
		p, err := ercot.NewQueueProducer(ercot.QueueProducerConfig{Logger: log, ReportURL: *cdrURLFlag})
		if err != nil {
			return err
		}
		producers = append(producers, p)
	}
	if wantPriceMap {
		p, err := ercot.NewPriceMapProducer(ercot.PriceMapProducerConfig{Logger: log})
		if err != nil {
			return err
		}
		producers = append(producers, p)
	}
	if wantMinerals {
		p, err := minerals.NewProducer(minerals.ProducerConfig{Logger: log, CSVPath: *mineralsCSVFlag})
		if err != nil {
			return err
		}
		producers = append(producers, p)
	}

	runner, err := producer.NewRunner(producer.RunnerConfig{Logger: log, DataDir: *dataDirFlag})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runAll(ctx, log, runner, producers)
}

// runAll refreshes each producer in turn; one failure does not stop the rest.
func runAll(ctx context.Context, log *slog.Logger, runner *producer.Runner, producers []producer.Producer) error {
	var errs []error
	for _, p := range producers {
		if err := runner.Run(ctx, p); err != nil {
			log.Error("etl: producer run failed", "producer", p.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
