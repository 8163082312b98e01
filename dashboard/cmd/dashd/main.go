package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/gridwatch/txlake/dashboard/pkg/loader"
	"github.com/gridwatch/txlake/dashboard/pkg/metrics"
	"github.com/gridwatch/txlake/dashboard/pkg/server"
	"github.com/gridwatch/txlake/etl/pkg/eia"
	"github.com/gridwatch/txlake/etl/pkg/ercot"
	"github.com/gridwatch/txlake/etl/pkg/minerals"
	"github.com/gridwatch/txlake/etl/pkg/producer"
	"github.com/gridwatch/txlake/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", "0.0.0.0:8080", "address to listen on for the JSON API")
	dataDirFlag := flag.String("data-dir", "data", "directory holding the dataset Parquet files")
	cacheTTLFlag := flag.Duration("cache-ttl", loader.DefaultCacheTTL, "how long loaded datasets stay cached")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 10*time.Second, "maximum time to wait for graceful shutdown")

	etlEnableFlag := flag.Bool("etl-enable", true, "run the ETL refresh loop in-process")
	etlIntervalFlag := flag.Duration("etl-interval", time.Hour, "how often producers refresh their datasets")
	eiaAPIKeyFlag := flag.String("eia-api-key", "", "EIA open data API key (or set EIA_API_KEY env var)")
	cdrURLFlag := flag.String("cdr-url", "", "URL of the ERCOT CDR Unit Details CSV export (or set ERCOT_CDR_URL env var)")
	mineralsCSVFlag := flag.String("minerals-csv", "data/manual_mineral_deposits.csv", "path to the curated mineral deposits CSV")

	flag.Parse()

	// A local .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	if envKey := os.Getenv("EIA_API_KEY"); envKey != "" {
		*eiaAPIKeyFlag = envKey
	}
	if envURL := os.Getenv("ERCOT_CDR_URL"); envURL != "" {
		*cdrURLFlag = envURL
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ldr, err := loader.New(loader.Config{
		Logger:   log,
		DataDir:  *dataDirFlag,
		CacheTTL: *cacheTTLFlag,
	})
	if err != nil {
		return err
	}

	var ready func() bool
	if *etlEnableFlag {
		producers, err := buildProducers(log, *eiaAPIKeyFlag, *cdrURLFlag, *mineralsCSVFlag)
		if err != nil {
			return err
		}
		runner, err := producer.NewRunner(producer.RunnerConfig{
			Logger:  log,
			DataDir: *dataDirFlag,
		})
		if err != nil {
			return err
		}
		sched, err := producer.NewScheduler(producer.SchedulerConfig{
			Logger:          log,
			Runner:          runner,
			Producers:       producers,
			RefreshInterval: *etlIntervalFlag,
		})
		if err != nil {
			return err
		}
		sched.Start(ctx)
		ready = sched.Ready
	}

	srv, err := server.New(server.Config{
		Logger:          log,
		Loader:          ldr,
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		VersionInfo:     server.VersionInfo{Version: version, Commit: commit, Date: date},
		Ready:           ready,
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// buildProducers assembles every producer whose source is configured. The
// price map needs no credentials so it is always present.
func buildProducers(log *slog.Logger, eiaAPIKey, cdrURL, mineralsCSV string) ([]producer.Producer, error) {
	priceMap, err := ercot.NewPriceMapProducer(ercot.PriceMapProducerConfig{Logger: log})
	if err != nil {
		return nil, err
	}
	producers := []producer.Producer{priceMap}

	if eiaAPIKey != "" {
		client, err := eia.NewClient(eia.ClientConfig{Logger: log, APIKey: eiaAPIKey})
		if err != nil {
			return nil, err
		}
		fuelMix, err := eia.NewFuelMixProducer(eia.FuelMixProducerConfig{Logger: log, Client: client})
		if err != nil {
			return nil, err
		}
		generation, err := eia.NewGenerationProducer(eia.GenerationProducerConfig{Logger: log, Client: client})
		if err != nil {
			return nil, err
		}
		producers = append(producers, fuelMix, generation)
	} else {
		log.Warn("etl: EIA_API_KEY not set, skipping fuel mix and generation producers")
	}

	if cdrURL != "" {
		queue, err := ercot.NewQueueProducer(ercot.QueueProducerConfig{Logger: log, ReportURL: cdrURL})
		if err != nil {
			return nil, err
		}
		producers = append(producers, queue)
	} else {
		log.Warn("etl: ERCOT_CDR_URL not set, skipping interconnection queue producer")
	}

	if _, err := os.Stat(mineralsCSV); err == nil {
		deposits, err := minerals.NewProducer(minerals.ProducerConfig{Logger: log, CSVPath: mineralsCSV})
		if err != nil {
			return nil, err
		}
		producers = append(producers, deposits)
	} else {
		log.Warn("etl: minerals CSV not found, skipping deposits producer", "path", mineralsCSV)
	}

	return producers, nil
}
