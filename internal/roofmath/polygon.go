package roofmath

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000

// Vertex is one corner of a manually traced roof footprint.
type Vertex struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PolygonAreaSqFt computes the footprint area of a traced polygon in square
// feet. Vertices are projected onto a local tangent plane (equirectangular
// about the polygon's mean latitude), which is accurate to well under a
// percent at building scale.
func PolygonAreaSqFt(vertices []Vertex) (float64, error) {
	if len(vertices) < 3 {
		return 0, eris.Errorf("roofmath: polygon needs at least 3 vertices, got %d", len(vertices))
	}

	var meanLat float64
	for _, v := range vertices {
		meanLat += v.Latitude
	}
	meanLat = meanLat * math.Pi / 180 / float64(len(vertices))

	coords := make([]geom.Coord, 0, len(vertices)+1)
	for _, v := range vertices {
		x := earthRadiusM * v.Longitude * math.Pi / 180 * math.Cos(meanLat)
		y := earthRadiusM * v.Latitude * math.Pi / 180
		coords = append(coords, geom.Coord{x, y})
	}
	// Close the ring.
	coords = append(coords, coords[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return 0, eris.Wrap(err, "roofmath: build polygon")
	}

	areaSqM := math.Abs(poly.Area())
	if areaSqM == 0 {
		return 0, eris.New("roofmath: polygon has zero area")
	}
	return areaSqM * SqMToSqFt, nil
}
