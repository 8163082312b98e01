package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
)

func TestTxLake_Schema_GetKnownDatasets(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"fuelmix", "price_map", "generation", "queue", "minerals"} {
		s := Get(name)
		require.False(t, s.IsZero(), "dataset %s must have a schema", name)
		require.Equal(t, name, s.Dataset)
		require.NotEmpty(t, s.Filename)
	}
	require.Equal(t, []string{"fuelmix", "generation", "minerals", "price_map", "queue"}, Datasets())
}

func TestTxLake_Schema_GetUnknownDatasetIsEmpty(t *testing.T) {
	t.Parallel()

	s := Get("weather")
	require.True(t, s.IsZero())
	require.Empty(t, s.ColumnNames())
}

func TestTxLake_Schema_AliasTargetsAreCanonical(t *testing.T) {
	t.Parallel()

	for _, name := range Datasets() {
		s := Get(name)
		canonical := make(map[string]bool)
		for _, c := range s.Columns {
			canonical[c.Name] = true
		}
		for alias, target := range s.Aliases {
			require.True(t, canonical[target], "dataset %s: alias %s points at non-canonical column %s", name, alias, target)
		}
	}
}

func TestTxLake_Schema_FilenamesMatchLayout(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fuelmix.parquet", Get("fuelmix").Filename)
	require.Equal(t, "minerals_deposits.parquet", Get("minerals").Filename)
}

func TestTxLake_Schema_NormalizeAliases(t *testing.T) {
	t.Parallel()

	f := frame.New("name", "capacity_mw", "latitude", "longitude", "fuel", "status", "last_updated")
	require.NoError(t, f.AppendRow(
		frame.String("Roadrunner Solar"),
		frame.Float(250),
		frame.Float(31.2),
		frame.Float(-100.1),
		frame.String("Solar"),
		frame.String("Active"),
		frame.String("2026-03-01T00:00:00Z"),
	))

	out := Normalize(f, "queue")
	require.Equal(t,
		[]string{"project_name", "proposed_mw", "lat", "lon", "fuel", "status", "last_updated"},
		out.Columns(),
	)
	for _, alias := range []string{"name", "capacity_mw", "latitude", "longitude"} {
		require.False(t, out.HasColumn(alias), "alias %s must be gone after normalization", alias)
	}
}

func TestTxLake_Schema_NormalizeUnknownDatasetPassthrough(t *testing.T) {
	t.Parallel()

	f := frame.New("whatever", "latitude")
	out := Normalize(f, "weather")
	require.Equal(t, []string{"whatever", "latitude"}, out.Columns())
}

func TestTxLake_Schema_ValidateMissingAndExtra(t *testing.T) {
	t.Parallel()

	t.Run("missing one required regardless of extras", func(t *testing.T) {
		t.Parallel()
		f := frame.New("period", "fuel", "last_updated", "bonus_a", "bonus_b")
		missing, extra := Validate(f, "fuelmix")
		require.Equal(t, []string{"value_mwh"}, missing)
		require.Equal(t, []string{"bonus_a", "bonus_b"}, extra)
	})

	t.Run("all required plus extras", func(t *testing.T) {
		t.Parallel()
		f := frame.New("period", "fuel", "value_mwh", "last_updated", "note")
		missing, extra := Validate(f, "fuelmix")
		require.Empty(t, missing)
		require.Equal(t, []string{"note"}, extra)
	})

	t.Run("unknown dataset validates clean", func(t *testing.T) {
		t.Parallel()
		f := frame.New("anything")
		missing, extra := Validate(f, "weather")
		require.Empty(t, missing)
		require.Empty(t, extra)
	})
}

func TestTxLake_Schema_EmptyFrameShape(t *testing.T) {
	t.Parallel()

	f := Get("price_map").EmptyFrame()
	require.Equal(t, 0, f.NumRows())
	require.Equal(t,
		[]string{"node_id", "lat", "lon", "price_cperkwh", "region", "last_updated"},
		f.Columns(),
	)
}
