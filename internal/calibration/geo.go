package calibration

import (
	"math"
	"regexp"
	"strings"
)

const earthRadiusMiles = 3958.8

// DistanceMiles is the haversine great-circle distance between two points.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]+`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// streetAbbrevs maps common street-type words to their USPS abbreviation so
// "123 Main Street" and "123 Main St." normalize identically.
var streetAbbrevs = map[string]string{
	"street": "st", "avenue": "ave", "boulevard": "blvd", "drive": "dr",
	"lane": "ln", "road": "rd", "court": "ct", "circle": "cir",
	"place": "pl", "parkway": "pkwy", "highway": "hwy", "terrace": "ter",
	"north": "n", "south": "s", "east": "e", "west": "w",
	"apartment": "apt", "suite": "ste",
}

// NormalizeAddress canonicalizes an address for exact-match lookups.
func NormalizeAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")

	words := strings.Split(s, " ")
	for i, w := range words {
		if abbrev, ok := streetAbbrevs[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
