package geo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

//go:embed assets/world.geojson
var defaultWorld []byte

// ring is a closed sequence of lon/lat vertices with its bounding box.
type ring struct {
	pts                    []geom.XY
	minX, minY, maxX, maxY float64
}

func newRing(seq geom.Sequence) ring {
	n := seq.Length()
	r := ring{pts: make([]geom.XY, n)}
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		r.pts[i] = xy
		if i == 0 || xy.X < r.minX {
			r.minX = xy.X
		}
		if i == 0 || xy.X > r.maxX {
			r.maxX = xy.X
		}
		if i == 0 || xy.Y < r.minY {
			r.minY = xy.Y
		}
		if i == 0 || xy.Y > r.maxY {
			r.maxY = xy.Y
		}
	}
	return r
}

// contains is the ray-casting parity test.
func (r ring) contains(x, y float64) bool {
	if x < r.minX || x > r.maxX || y < r.minY || y > r.maxY {
		return false
	}
	inside := false
	for i, j := 0, len(r.pts)-1; i < len(r.pts); j, i = i, i+1 {
		xi, yi := r.pts[i].X, r.pts[i].Y
		xj, yj := r.pts[j].X, r.pts[j].Y
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Land is the immutable world geometry used to answer terrain queries.
//
// Holes are not subtracted. Any ring containing the point counts, so lakes
// and enclaves read as land.
type Land struct {
	rings []ring
}

type geoJSONFeature struct {
	Type     string          `json:"type"`
	Geometry json.RawMessage `json:"geometry"`
}

type geoJSONDocument struct {
	Type     string           `json:"type"`
	Geometry json.RawMessage  `json:"geometry"`
	Features []geoJSONFeature `json:"features"`
}

// LoadLand parses a GeoJSON FeatureCollection, a single Feature, or a bare
// Polygon/MultiPolygon. Non-areal geometries and null geometries are
// ignored. Rings are not validated: self-intersecting rings still take part
// in the parity test.
func LoadLand(data []byte) (*Land, error) {
	var doc geoJSONDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse world geometry: %w", err)
	}

	var raws []json.RawMessage
	switch doc.Type {
	case "FeatureCollection":
		for _, f := range doc.Features {
			raws = append(raws, f.Geometry)
		}
	case "Feature":
		raws = append(raws, doc.Geometry)
	default:
		raws = append(raws, json.RawMessage(data))
	}

	land := &Land{}
	for i, raw := range raws {
		if isNullJSON(raw) {
			continue
		}
		g, err := geom.UnmarshalGeoJSON(raw, geom.DisableAllValidations)
		if err != nil {
			return nil, fmt.Errorf("failed to parse world geometry %d: %w", i, err)
		}
		land.add(g)
	}
	if len(land.rings) == 0 {
		return nil, fmt.Errorf("world geometry has no polygon features")
	}
	return land, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DefaultLand returns the embedded coarse continent outlines.
func DefaultLand() *Land {
	land, err := LoadLand(defaultWorld)
	if err != nil {
		panic(fmt.Errorf("embedded world geometry: %w", err))
	}
	return land
}

func (l *Land) add(g geom.Geometry) {
	switch g.Type() {
	case geom.TypePolygon:
		if p, ok := g.AsPolygon(); ok {
			l.addPolygon(p)
		}
	case geom.TypeMultiPolygon:
		mp, ok := g.AsMultiPolygon()
		if !ok {
			return
		}
		for i := 0; i < mp.NumPolygons(); i++ {
			l.addPolygon(mp.PolygonN(i))
		}
	}
}

func (l *Land) addPolygon(p geom.Polygon) {
	if p.IsEmpty() {
		return
	}
	l.rings = append(l.rings, newRing(p.ExteriorRing().Coordinates()))
	for i := 0; i < p.NumInteriorRings(); i++ {
		l.rings = append(l.rings, newRing(p.InteriorRingN(i).Coordinates()))
	}
}

// IsOnLand reports whether the point falls inside any ring.
func (l *Land) IsOnLand(lon, lat float64) bool {
	for _, r := range l.rings {
		if r.contains(lon, lat) {
			return true
		}
	}
	return false
}

// NumRings returns the number of rings loaded.
func (l *Land) NumRings() int {
	return len(l.rings)
}

// EachVertex calls fn for every ring vertex in load order, including the
// closing vertex of each ring.
func (l *Land) EachVertex(fn func(lon, lat float64)) {
	for _, r := range l.rings {
		for _, xy := range r.pts {
			fn(xy.X, xy.Y)
		}
	}
}
