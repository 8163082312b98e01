package parquetio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
)

func TestTxLake_ParquetIO_RoundTripCanonical(t *testing.T) {
	t.Parallel()

	s := schema.Get("fuelmix")
	f := frame.New(s.ColumnNames()...)
	require.NoError(t, f.AppendRow(
		frame.Time(time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)),
		frame.String("WIND"),
		frame.Float(1250.5),
		frame.String("2026-03-01T05:10:00Z"),
	))
	require.NoError(t, f.AppendRow(
		frame.Time(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)),
		frame.String("SOLAR"),
		frame.Null(),
		frame.String("2026-03-01T05:10:00Z"),
	))

	path := filepath.Join(t.TempDir(), "fuelmix.parquet")
	require.NoError(t, WriteFileAtomic(path, f, s))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows())
	require.ElementsMatch(t, s.ColumnNames(), got.Columns())

	// Timestamps come back as epoch-millisecond ints; the coercer owns
	// canonical typing.
	v, ok := got.At(0, "period")
	require.True(t, ok)
	ms, ok := v.Int()
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC).UnixMilli(), ms)

	v, _ = got.At(0, "value_mwh")
	mwh, ok := v.Float()
	require.True(t, ok)
	require.Equal(t, 1250.5, mwh)

	v, _ = got.At(1, "value_mwh")
	require.True(t, v.IsNull())

	v, _ = got.At(1, "fuel")
	fuel, ok := v.Str()
	require.True(t, ok)
	require.Equal(t, "SOLAR", fuel)
}

func TestTxLake_ParquetIO_WritesExtraColumnsByKind(t *testing.T) {
	t.Parallel()

	s := schema.Get("queue")
	f := frame.New("name", "capacity_mw", "lat", "lon", "fuel", "status", "last_updated", "county")
	require.NoError(t, f.AppendRow(
		frame.String("Roadrunner Solar"),
		frame.Float(250),
		frame.Float(31.2),
		frame.Float(-100.1),
		frame.String("Solar"),
		frame.String("Active"),
		frame.String("2026-03-01T00:00:00Z"),
		frame.String("Tom Green"),
	))

	path := filepath.Join(t.TempDir(), "queue.parquet")
	require.NoError(t, WriteFileAtomic(path, f, s))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	require.ElementsMatch(t, f.Columns(), got.Columns())

	v, _ := got.At(0, "capacity_mw")
	mw, ok := v.Float()
	require.True(t, ok)
	require.Equal(t, 250.0, mw)

	v, _ = got.At(0, "county")
	county, ok := v.Str()
	require.True(t, ok)
	require.Equal(t, "Tom Green", county)
}

func TestTxLake_ParquetIO_ZeroRows(t *testing.T) {
	t.Parallel()

	s := schema.Get("price_map")
	path := filepath.Join(t.TempDir(), "price_map.parquet")
	require.NoError(t, WriteFileAtomic(path, s.EmptyFrame(), s))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 0, got.NumRows())
	require.ElementsMatch(t, s.ColumnNames(), got.Columns())
}

func TestTxLake_ParquetIO_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fuelmix.parquet")
	require.NoError(t, os.WriteFile(path, []byte("this is not parquet"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
}

func TestTxLake_ParquetIO_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestTxLake_ParquetIO_AtomicWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := schema.Get("fuelmix")
	f := frame.New(s.ColumnNames()...)
	require.NoError(t, f.AppendRow(
		frame.Time(time.Now().UTC()),
		frame.String("WIND"),
		frame.Float(1),
		frame.String("x"),
	))

	path := filepath.Join(dir, "fuelmix.parquet")
	require.NoError(t, WriteFileAtomic(path, f, s))
	// Overwrite replaces in place.
	require.NoError(t, WriteFileAtomic(path, f, s))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "fuelmix.parquet", entries[0].Name())
}
