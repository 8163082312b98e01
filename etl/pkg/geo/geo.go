// Package geo provides the static geography used to place Texas energy
// records on a map: state bounds, county centroids, and deterministic
// fallback placement by fuel-type region for records with no usable county.
package geo

import (
	"hash/fnv"
	"strings"
)

// Texas bounding box.
const (
	LatMin = 25.84
	LatMax = 36.50
	LonMin = -106.65
	LonMax = -93.51
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// InTexas reports whether the coordinate falls inside the Texas bounding box.
func InTexas(lat, lon float64) bool {
	return lat >= LatMin && lat <= LatMax && lon >= LonMin && lon <= LonMax
}

// countyCentroids maps lower-cased county names to approximate centroids.
// Covers the counties that actually appear in ERCOT queue and plant data.
var countyCentroids = map[string]Point{
	"anderson":   {31.81, -95.65},
	"andrews":    {32.30, -102.64},
	"bell":       {31.04, -97.48},
	"bexar":      {29.45, -98.52},
	"brazoria":   {29.17, -95.43},
	"brewster":   {29.81, -103.25},
	"cameron":    {26.15, -97.45},
	"chambers":   {29.71, -94.67},
	"collin":     {33.19, -96.58},
	"crane":      {31.43, -102.52},
	"culberson":  {31.45, -104.52},
	"dallas":     {32.77, -96.78},
	"denton":     {33.20, -97.12},
	"ector":      {31.87, -102.54},
	"el paso":    {31.77, -106.24},
	"fort bend":  {29.53, -95.77},
	"galveston":  {29.38, -94.90},
	"harris":     {29.86, -95.39},
	"hidalgo":    {26.40, -98.18},
	"howard":     {32.31, -101.44},
	"hudspeth":   {31.46, -105.39},
	"jefferson":  {29.85, -94.15},
	"kenedy":     {26.93, -97.64},
	"lubbock":    {33.61, -101.82},
	"mclennan":   {31.55, -97.20},
	"midland":    {31.87, -102.03},
	"nolan":      {32.30, -100.41},
	"nueces":     {27.73, -97.60},
	"pecos":      {30.78, -102.72},
	"potter":     {35.40, -101.89},
	"presidio":   {29.99, -104.24},
	"reeves":     {31.32, -103.69},
	"scurry":     {32.75, -100.92},
	"smith":      {32.38, -95.27},
	"starr":      {26.56, -98.74},
	"tarrant":    {32.77, -97.29},
	"taylor":     {32.30, -99.89},
	"tom green":  {31.40, -100.46},
	"travis":     {30.33, -97.78},
	"upton":      {31.37, -102.04},
	"ward":       {31.51, -103.10},
	"webb":       {27.76, -99.33},
	"wharton":    {29.28, -96.22},
	"williamson": {30.65, -97.60},
	"winkler":    {31.85, -103.05},
}

// CountyCentroid looks up a county centroid. Matching is case-insensitive
// and tolerates a trailing " County" suffix.
func CountyCentroid(county string) (Point, bool) {
	name := strings.ToLower(strings.TrimSpace(county))
	name = strings.TrimSuffix(name, " county")
	name = strings.TrimSpace(name)
	p, ok := countyCentroids[name]
	return p, ok
}

// fuelRegion is the lat/lon box a fuel type concentrates in: wind in the
// Panhandle and West Texas, solar in the south and west, gas along the
// Houston-Dallas corridor, storage near load centers.
type fuelRegion struct {
	latMin, latMax float64
	lonMin, lonMax float64
}

var fuelRegions = map[string]fuelRegion{
	"wind":            {31.5, 35.0, -104.0, -99.5},
	"solar":           {27.0, 33.0, -104.0, -97.0},
	"natural gas":     {29.0, 33.5, -98.5, -94.5},
	"battery storage": {29.5, 33.0, -97.5, -95.0},
}

var wholeState = fuelRegion{LatMin, LatMax, LonMin, LonMax}

// FuelRegionPoint places a record inside its fuel type's region,
// deterministically derived from seed so repeated ETL runs produce stable
// coordinates.
func FuelRegionPoint(fuel, seed string) Point {
	region, ok := fuelRegions[strings.ToLower(strings.TrimSpace(fuel))]
	if !ok {
		region = wholeState
	}

	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()

	latFrac := float64(sum>>32) / float64(1<<32)
	lonFrac := float64(sum&0xffffffff) / float64(1<<32)

	return Point{
		Lat: region.latMin + latFrac*(region.latMax-region.latMin),
		Lon: region.lonMin + lonFrac*(region.lonMax-region.lonMin),
	}
}

// plantRegions geocode power plants by name keywords, most specific first.
var plantRegions = []struct {
	name     string
	point    Point
	keywords []string
}{
	{"Houston", Point{29.7604, -95.3698}, []string{"houston", "baytown", "channelview", "pasadena"}},
	{"Dallas", Point{32.7767, -96.7970}, []string{"dallas", "plano", "garland", "mesquite"}},
	{"Austin", Point{30.2672, -97.7431}, []string{"austin", "cedar park", "round rock"}},
	{"San Antonio", Point{29.4241, -98.4936}, []string{"san antonio", "alamo", "schertz"}},
	{"Fort Worth", Point{32.7555, -97.3308}, []string{"fort worth", "arlington", "irving"}},
	{"El Paso", Point{31.7619, -106.4850}, []string{"el paso"}},
	{"Corpus Christi", Point{27.8006, -97.3964}, []string{"corpus christi", "robstown"}},
	{"Lubbock", Point{33.5779, -101.8552}, []string{"lubbock"}},
	{"Amarillo", Point{35.2220, -101.8313}, []string{"amarillo"}},
	{"Beaumont", Point{30.0802, -94.1266}, []string{"beaumont", "port arthur"}},
	{"Tyler", Point{32.3513, -95.3011}, []string{"tyler", "longview"}},
	{"Waco", Point{31.5494, -97.1467}, []string{"waco"}},
	{"Midland", Point{32.0253, -102.0779}, []string{"midland", "odessa"}},
	{"West Texas", Point{31.8, -102.5}, []string{"wind", "mesa", "desert", "pecos"}},
	{"South Texas", Point{28.5, -98.5}, []string{"eagle pass", "laredo", "brownsville"}},
	{"East Texas", Point{32.0, -94.5}, []string{"marshall", "texarkana", "carthage"}},
	{"Panhandle", Point{35.0, -101.5}, []string{"pampa", "borger", "hereford"}},
}

// PlantRegion matches a plant name against known region keywords and returns
// the region's anchor point and name.
func PlantRegion(plantName string) (Point, string, bool) {
	name := strings.ToLower(plantName)
	for _, r := range plantRegions {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.point, r.name, true
			}
		}
	}
	return Point{}, "", false
}
