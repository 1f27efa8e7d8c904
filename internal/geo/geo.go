package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/warroom/extension/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Geographic input is always EPSG:4326 (lon/lat degrees). Web Mercator output
// exists only for map frontends consuming the frame stream.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// LonLatFromString parses a "lon,lat" string into a core.LonLat.
// Extra components are ignored. Values outside [-180,180] x [-90,90] are rejected.
func LonLatFromString(coords string) (core.LonLat, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	return core.LonLat{Lon: lon, Lat: lat}, nil
}

// Coords3857From4326 creates a Web Mercator point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	var x, y float64
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	point, err = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	return point, err
}
