package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxLake_Geo_InTexas(t *testing.T) {
	t.Parallel()

	require.True(t, InTexas(30.27, -97.74))   // Austin
	require.True(t, InTexas(31.77, -106.24))  // El Paso
	require.False(t, InTexas(40.71, -74.00))  // New York
	require.False(t, InTexas(30.27, -110.00)) // west of the state
}

func TestTxLake_Geo_CountyCentroid(t *testing.T) {
	t.Parallel()

	p, ok := CountyCentroid("Harris")
	require.True(t, ok)
	require.True(t, InTexas(p.Lat, p.Lon))

	for _, variant := range []string{"harris", "HARRIS", " Harris County ", "Harris County"} {
		q, ok := CountyCentroid(variant)
		require.True(t, ok, "variant %q must resolve", variant)
		require.Equal(t, p, q)
	}

	_, ok = CountyCentroid("Not A County")
	require.False(t, ok)
}

func TestTxLake_Geo_AllCentroidsInsideTexas(t *testing.T) {
	t.Parallel()

	for county, p := range countyCentroids {
		require.True(t, InTexas(p.Lat, p.Lon), "county %s centroid out of bounds", county)
	}
}

func TestTxLake_Geo_FuelRegionPointDeterministicAndBounded(t *testing.T) {
	t.Parallel()

	for _, fuel := range []string{"Wind", "Solar", "Natural Gas", "Battery Storage", "Nuclear"} {
		a := FuelRegionPoint(fuel, "Project Alpha")
		b := FuelRegionPoint(fuel, "Project Alpha")
		require.Equal(t, a, b, "placement must be deterministic for %s", fuel)
		require.True(t, InTexas(a.Lat, a.Lon), "%s placement out of bounds: %+v", fuel, a)
	}

	a := FuelRegionPoint("Wind", "Project Alpha")
	c := FuelRegionPoint("Wind", "Project Beta")
	require.NotEqual(t, a, c, "different seeds should spread out")
}

func TestTxLake_Geo_PlantRegion(t *testing.T) {
	t.Parallel()

	p, region, ok := PlantRegion("W.A. Parish Houston Generating Station")
	require.True(t, ok)
	require.Equal(t, "Houston", region)
	require.True(t, InTexas(p.Lat, p.Lon))

	_, _, ok = PlantRegion("Completely Unplaceable Plant")
	require.False(t, ok)
}
