// Package loader is the single entry point consumers use to obtain a
// dataset's current table. It reads the dataset's parquet file, runs the
// normalize, coerce, validate pipeline and memoizes the result for a fixed
// TTL. Structural failures (missing/corrupt/empty file, missing canonical
// columns) branch on the caller's leniency flag: strict callers get a tagged
// fatal error, lenient callers get a best-effort table and a warning.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/dashboard/pkg/metrics"
	"github.com/gridwatch/txlake/dashboard/pkg/parquetio"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
)

// DefaultCacheTTL matches the original dashboard's one-hour memoization.
const DefaultCacheTTL = time.Hour

// FatalError is the "halt" outcome of a strict load. It carries everything
// the rendering layer needs to explain the failure: the dataset, the file,
// what went wrong and the expected schema.
type FatalError struct {
	Dataset  string
	Filename string
	Reason   string
	Missing  []string
	Schema   schema.Schema
}

func (e *FatalError) Error() string {
	msg := fmt.Sprintf("dataset %q (%s): %s", e.Dataset, e.Filename, e.Reason)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf("; missing columns: %s", strings.Join(e.Missing, ", "))
	}
	if !e.Schema.IsZero() {
		msg += fmt.Sprintf("; expected schema: %s", e.Schema.String())
	}
	return msg
}

// Result is a successful load. Warning is non-empty when lenient mode
// substituted an empty or partially-valid table; Extra lists the undeclared
// columns that were tolerated.
type Result struct {
	Dataset  string
	Frame    *frame.Frame
	Warning  string
	Extra    []string
	LoadedAt time.Time
}

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	DataDir  string
	CacheTTL time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DataDir == "" {
		return errors.New("data directory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return nil
}

type Loader struct {
	log   *slog.Logger
	cfg   Config
	cache *resultCache
}

func New(cfg Config) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loader{
		log:   cfg.Logger,
		cfg:   cfg,
		cache: newResultCache(cfg.Clock, cfg.CacheTTL),
	}, nil
}

// Load returns the current table for a dataset. A nil error with a non-empty
// Result.Warning is the lenient outcome; a *FatalError is the strict halt.
// Successful results (lenient ones included) are cached; fatal errors are
// recomputed on every call so a repaired file is picked up immediately.
func (l *Loader) Load(ctx context.Context, filename, dataset string, allowEmpty bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey{filename: filename, dataset: dataset, allowEmpty: allowEmpty}
	if cached, ok := l.cache.get(key); ok {
		metrics.LoadCacheHitsTotal.WithLabelValues(dataset).Inc()
		return cached, nil
	}

	start := l.cfg.Clock.Now()
	result, err := l.load(filename, dataset, allowEmpty)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues(dataset, "fatal").Inc()
		return nil, err
	}

	metrics.LoadDuration.WithLabelValues(dataset).Observe(l.cfg.Clock.Since(start).Seconds())
	if result.Warning != "" {
		metrics.LoadsTotal.WithLabelValues(dataset, "lenient").Inc()
	} else {
		metrics.LoadsTotal.WithLabelValues(dataset, "ok").Inc()
	}
	metrics.DatasetRows.WithLabelValues(dataset).Set(float64(result.Frame.NumRows()))

	l.cache.put(key, result)
	return result, nil
}

func (l *Loader) load(filename, dataset string, allowEmpty bool) (*Result, error) {
	path := filepath.Join(l.cfg.DataDir, filepath.Base(filename))
	s := schema.Get(dataset)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return l.structural(filename, dataset, allowEmpty, s.EmptyFrame(), nil,
				fmt.Sprintf("data file not found at %s", path))
		}
		return l.structural(filename, dataset, allowEmpty, s.EmptyFrame(), nil,
			fmt.Sprintf("cannot stat data file %s: %v", path, err))
	}

	raw, err := parquetio.ReadFile(path)
	if err != nil {
		return l.structural(filename, dataset, allowEmpty, s.EmptyFrame(), nil,
			fmt.Sprintf("cannot read data file: %v", err))
	}

	if raw.NumRows() == 0 {
		return l.structural(filename, dataset, allowEmpty, s.EmptyFrame(), nil,
			"data file has no rows")
	}

	f := schema.Normalize(raw, dataset)
	f = schema.Coerce(l.log, f, dataset)
	missing, extra := schema.Validate(f, dataset)

	if len(extra) > 0 {
		l.log.Info("loader: extra columns ignored", "dataset", dataset, "file", filename, "extra", strings.Join(extra, ","))
	}

	if len(missing) > 0 {
		if !allowEmpty {
			return nil, &FatalError{
				Dataset:  dataset,
				Filename: filename,
				Reason:   "required columns are missing",
				Missing:  missing,
				Schema:   s,
			}
		}
		// Lenient callers get the partially-valid table as-is.
		warning := fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
		l.log.Warn("loader: serving partially-valid table", "dataset", dataset, "file", filename, "missing", strings.Join(missing, ","))
		return &Result{
			Dataset:  dataset,
			Frame:    f,
			Warning:  warning,
			Extra:    extra,
			LoadedAt: l.cfg.Clock.Now(),
		}, nil
	}

	return &Result{
		Dataset:  dataset,
		Frame:    f,
		Extra:    extra,
		LoadedAt: l.cfg.Clock.Now(),
	}, nil
}

// structural applies the fatal-vs-lenient branching shared by the missing,
// corrupt and empty file cases.
func (l *Loader) structural(filename, dataset string, allowEmpty bool, empty *frame.Frame, extra []string, reason string) (*Result, error) {
	if !allowEmpty {
		return nil, &FatalError{
			Dataset:  dataset,
			Filename: filename,
			Reason:   reason,
			Schema:   schema.Get(dataset),
		}
	}
	l.log.Warn("loader: substituting empty table", "dataset", dataset, "file", filename, "reason", reason)
	return &Result{
		Dataset:  dataset,
		Frame:    empty,
		Warning:  reason,
		Extra:    extra,
		LoadedAt: l.cfg.Clock.Now(),
	}, nil
}
